package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
)

// MarkovCycle records one simulated cycle.
type MarkovCycle struct {
	Cycle   int       `json:"cycle"`
	Cohort  []float64 `json:"cohort"`
	Cost    float64   `json:"cost"`
	Utility float64   `json:"utility"`
}

// MarkovTrace is the per-cycle history of a cohort simulation.
type MarkovTrace struct {
	States []string      `json:"states"`
	Cycles []MarkovCycle `json:"cycles"`
}

// SimulateMarkov runs the cohort simulation of the Markov node nodeID.
func (e *Engine) SimulateMarkov(ctx context.Context, g *domain.Graph, nodeID string, vars domain.Variables) (domain.Outcome, error) {
	out, _, err := e.simulateNode(ctx, g, nodeID, vars, false)
	return out, err
}

// TraceMarkov is SimulateMarkov that also returns the cohort of every cycle.
func (e *Engine) TraceMarkov(ctx context.Context, g *domain.Graph, nodeID string, vars domain.Variables) (domain.Outcome, *MarkovTrace, error) {
	return e.simulateNode(ctx, g, nodeID, vars, true)
}

func (e *Engine) simulateNode(ctx context.Context, g *domain.Graph, nodeID string, vars domain.Variables, trace bool) (domain.Outcome, *MarkovTrace, error) {
	node, ok := g.Node(nodeID)
	if !ok {
		return domain.Outcome{}, nil, &domain.NodeError{NodeID: nodeID, Err: domain.ErrNodeNotFound}
	}
	m, ok := node.Data.(*domain.Markov)
	if !ok {
		return domain.Outcome{}, nil, &domain.NodeError{
			NodeID: nodeID,
			Err:    fmt.Errorf("expected a markov node, got %q", node.Kind()),
		}
	}
	return simulate(ctx, m, vars, trace)
}

// transitionMatrix resolves and row-normalises the matrix. Rows that sum to
// zero stay all-zero and are reported as resident.
func transitionMatrix(m *domain.Markov, vars domain.Variables) ([][]float64, []bool) {
	n := len(m.States)
	p := make([][]float64, n)
	resident := make([]bool, n)
	for i, from := range m.States {
		row := make([]float64, n)
		var sum float64
		for j, to := range m.States {
			row[j] = m.Transitions.Get(from.Name, to.Name).Resolve(vars)
			sum += row[j]
		}
		if sum > 0 {
			for j := range row {
				row[j] /= sum
			}
		} else {
			resident[i] = true
		}
		p[i] = row
	}
	return p, resident
}

func initialCohort(m *domain.Markov, vars domain.Variables) []float64 {
	cohort := make([]float64, len(m.States))
	var sum float64
	for i, s := range m.States {
		cohort[i] = m.InitialDistribution[s.Name].Resolve(vars)
		sum += cohort[i]
	}
	if sum == 0 {
		for i := range cohort {
			cohort[i] = 0
		}
		cohort[0] = 1
		return cohort
	}
	for i := range cohort {
		cohort[i] /= sum
	}
	return cohort
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func simulate(ctx context.Context, m *domain.Markov, vars domain.Variables, trace bool) (domain.Outcome, *MarkovTrace, error) {
	n := len(m.States)
	var tr *MarkovTrace
	if trace {
		tr = &MarkovTrace{States: make([]string, n)}
		for i, s := range m.States {
			tr.States[i] = s.Name
		}
	}
	if n == 0 {
		return domain.Outcome{}, tr, nil
	}

	p, resident := transitionMatrix(m, vars)
	costs := make([]float64, n)
	utilities := make([]float64, n)
	for i, s := range m.States {
		costs[i] = s.Cost.Resolve(vars)
		utilities[i] = s.Utility.Resolve(vars)
	}
	cohort := initialCohort(m, vars)

	var totalCost, totalUtility float64
	for cycle := 0; cycle < m.TimeHorizon; cycle++ {
		if err := ctx.Err(); err != nil {
			return domain.Outcome{}, nil, err
		}

		cycleCost := dot(cohort, costs)
		cycleUtility := dot(cohort, utilities)
		accruedCost := cycleCost * m.CycleLength
		accruedUtility := cycleUtility * m.CycleLength

		next := make([]float64, n)
		for i := 0; i < n; i++ {
			if resident[i] {
				next[i] += cohort[i]
				continue
			}
			for j := 0; j < n; j++ {
				next[j] += cohort[i] * p[i][j]
			}
		}

		// The averaged cohort replaces this cycle's contribution on every
		// cycle, not only at the horizon boundaries.
		if m.HalfCycleCorrection {
			avg := make([]float64, n)
			for i := range avg {
				avg[i] = (cohort[i] + next[i]) / 2
			}
			accruedCost += (dot(avg, costs) - cycleCost) * m.CycleLength
			accruedUtility += (dot(avg, utilities) - cycleUtility) * m.CycleLength
		}

		totalCost += accruedCost
		totalUtility += accruedUtility

		if tr != nil {
			snapshot := make([]float64, n)
			copy(snapshot, cohort)
			tr.Cycles = append(tr.Cycles, MarkovCycle{
				Cycle:   cycle,
				Cohort:  snapshot,
				Cost:    accruedCost,
				Utility: accruedUtility,
			})
		}
		cohort = next
	}

	return domain.Outcome{Cost: totalCost, Effectiveness: totalUtility}, tr, nil
}
