package domain

import "math"

// Outcome is the expected cost and effectiveness of a node.
// Strategy is set only when a Decision node chose a branch.
type Outcome struct {
	Cost          float64 `json:"cost"`
	Effectiveness float64 `json:"effectiveness"`
	Strategy      string  `json:"strategy,omitempty"`
}

// SensitivityParam is one variable to perturb between Low and High.
type SensitivityParam struct {
	VariableName string  `json:"variable_name"`
	Low          float64 `json:"low"`
	High         float64 `json:"high"`
}

// TornadoBar records the outcome at each bound of one parameter.
type TornadoBar struct {
	VariableName string  `json:"variable_name"`
	LowImpact    float64 `json:"low_impact"`
	HighImpact   float64 `json:"high_impact"`
}

// Swing is the absolute spread between the high and low impacts.
func (b TornadoBar) Swing() float64 {
	return math.Abs(b.HighImpact - b.LowImpact)
}

// TornadoResult is the output of a one-way sensitivity analysis.
// Bars are sorted by descending swing.
type TornadoResult struct {
	BaseOutcome float64      `json:"base_outcome"`
	Bars        []TornadoBar `json:"bars"`
}
