package domain

// Defaults applied when a Markov node omits the corresponding field.
const (
	DefaultTimeHorizon         = 50
	DefaultCycleLength         = 1.0
	DefaultHalfCycleCorrection = true
)

// MarkovState is a health state with a per-cycle cost and utility.
type MarkovState struct {
	Name    string `json:"name"`
	Cost    Scalar `json:"cost"`
	Utility Scalar `json:"utility"`
}

// TransitionMatrix maps source state -> destination state -> probability.
// Absent entries are 0.
type TransitionMatrix map[string]map[string]Scalar

// Get returns the cell for from -> to, or the literal 0 when absent.
func (m TransitionMatrix) Get(from, to string) Scalar {
	row, ok := m[from]
	if !ok {
		return Scalar{}
	}
	return row[to]
}

// Markov is the payload of a cohort model node.
type Markov struct {
	States              []MarkovState
	Transitions         TransitionMatrix
	TimeHorizon         int
	CycleLength         float64
	InitialDistribution map[string]Scalar
	HalfCycleCorrection bool
}
