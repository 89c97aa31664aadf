package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Variables maps variable names to their numeric values.
type Variables map[string]float64

// Lookup returns the value of name, or 0 when the variable is not defined.
func (v Variables) Lookup(name string) float64 {
	return v[name]
}

// Clone returns a shallow copy that can be mutated without affecting v.
func (v Variables) Clone() Variables {
	out := make(Variables, len(v)+1)
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Merge returns a copy of v with every entry of overrides applied on top.
func (v Variables) Merge(overrides Variables) Variables {
	out := v.Clone()
	for k, val := range overrides {
		out[k] = val
	}
	return out
}

// Scalar is a numeric field that is either a literal number or a reference
// to a variable by name. The zero value is the literal 0.
type Scalar struct {
	value float64
	ref   string
	isRef bool
}

// Literal creates a Scalar holding a fixed number.
func Literal(v float64) Scalar {
	return Scalar{value: v}
}

// Ref creates a Scalar that resolves to the named variable.
func Ref(name string) Scalar {
	return Scalar{ref: name, isRef: true}
}

// IsRef reports whether the scalar references a variable.
func (s Scalar) IsRef() bool { return s.isRef }

// Name returns the referenced variable name (empty for literals).
func (s Scalar) Name() string { return s.ref }

// Value returns the literal value (0 for references).
func (s Scalar) Value() float64 { return s.value }

// Resolve returns the numeric value of s against vars.
// Unknown references resolve to 0 rather than failing.
func (s Scalar) Resolve(vars Variables) float64 {
	if s.isRef {
		return vars.Lookup(s.ref)
	}
	return s.value
}

// Resolve is the functional form of Scalar.Resolve.
func Resolve(s Scalar, vars Variables) float64 {
	return s.Resolve(vars)
}

func (s Scalar) String() string {
	if s.isRef {
		return s.ref
	}
	return strconv.FormatFloat(s.value, 'g', -1, 64)
}

// MarshalJSON encodes literals as numbers and references as strings.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if s.isRef {
		return json.Marshal(s.ref)
	}
	return json.Marshal(s.value)
}

// UnmarshalJSON accepts a number (literal), a string (reference) or null (literal 0).
func (s *Scalar) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseScalar(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseScalar converts a decoded wire value into a Scalar.
// Numbers become literals and strings become references, mirroring the
// editor's "number or variable name" fields.
func ParseScalar(raw any) (Scalar, error) {
	switch v := raw.(type) {
	case nil:
		return Scalar{}, nil
	case Scalar:
		return v, nil
	case float64:
		return Literal(v), nil
	case float32:
		return Literal(float64(v)), nil
	case int:
		return Literal(float64(v)), nil
	case int64:
		return Literal(float64(v)), nil
	case int32:
		return Literal(float64(v)), nil
	case uint64:
		return Literal(float64(v)), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Scalar{}, fmt.Errorf("invalid number %q: %w", v.String(), err)
		}
		return Literal(f), nil
	case string:
		return Ref(v), nil
	default:
		return Scalar{}, fmt.Errorf("expected number or variable name, got %T", raw)
	}
}
