package dsl

import "github.com/aretw0/arbor/pkg/domain"

// NodeBuilder provides a fluent API for configuring a tree node.
type NodeBuilder struct {
	node    *domain.Node
	builder *Builder
}

// BranchOption configures a branch.
type BranchOption func(b *Builder, nodeID string, br *domain.Branch)

// Prob sets the branch probability (number or variable name).
func Prob(v any) BranchOption {
	return func(b *Builder, _ string, br *domain.Branch) {
		br.Probability = b.scalar("probability", v)
	}
}

// Cost sets the branch cost (number or variable name).
func Cost(v any) BranchOption {
	return func(b *Builder, _ string, br *domain.Branch) {
		br.Cost = b.scalar("cost", v)
	}
}

// Eff sets the branch effectiveness (number or variable name).
func Eff(v any) BranchOption {
	return func(b *Builder, _ string, br *domain.Branch) {
		br.Effectiveness = b.scalar("effectiveness", v)
	}
}

// To links the branch to a target node with an edge.
func To(target string) BranchOption {
	return func(b *Builder, nodeID string, br *domain.Branch) {
		b.Edge(nodeID, br.ID, target)
	}
}

// Label sets the display label of the node.
func (n *NodeBuilder) Label(label string) *NodeBuilder {
	n.node.Label = label
	return n
}

// At sets the canvas position of the node.
func (n *NodeBuilder) At(x, y float64) *NodeBuilder {
	n.node.Position = domain.Position{X: x, Y: y}
	return n
}

// Branch appends a branch to the node.
func (n *NodeBuilder) Branch(id, name string, opts ...BranchOption) *NodeBuilder {
	br := domain.Branch{ID: id, Name: name}
	for _, opt := range opts {
		opt(n.builder, n.node.ID, &br)
	}
	switch p := n.node.Data.(type) {
	case *domain.Decision:
		p.Branches = append(p.Branches, br)
	case *domain.Chance:
		p.Branches = append(p.Branches, br)
	case *domain.Terminal:
		p.Branches = append(p.Branches, br)
	}
	return n
}

// Outcome appends the single outcome branch of a terminal node.
func (n *NodeBuilder) Outcome(cost, effectiveness any) *NodeBuilder {
	return n.Branch(n.node.ID+"-outcome", n.node.Label, Cost(cost), Eff(effectiveness))
}

// MarkovBuilder provides a fluent API for configuring a Markov node.
type MarkovBuilder struct {
	markov  *domain.Markov
	builder *Builder
}

// State appends a health state with its per-cycle cost and utility.
func (m *MarkovBuilder) State(name string, cost, utility any) *MarkovBuilder {
	m.markov.States = append(m.markov.States, domain.MarkovState{
		Name:    name,
		Cost:    m.builder.scalar("cost", cost),
		Utility: m.builder.scalar("utility", utility),
	})
	return m
}

// Transition sets the from -> to probability.
func (m *MarkovBuilder) Transition(from, to string, p any) *MarkovBuilder {
	if m.markov.Transitions == nil {
		m.markov.Transitions = domain.TransitionMatrix{}
	}
	row, ok := m.markov.Transitions[from]
	if !ok {
		row = make(map[string]domain.Scalar)
		m.markov.Transitions[from] = row
	}
	row[to] = m.builder.scalar("transition", p)
	return m
}

// Initial sets the initial cohort share of a state.
func (m *MarkovBuilder) Initial(state string, share any) *MarkovBuilder {
	if m.markov.InitialDistribution == nil {
		m.markov.InitialDistribution = map[string]domain.Scalar{}
	}
	m.markov.InitialDistribution[state] = m.builder.scalar("initial distribution", share)
	return m
}

// Horizon sets the number of cycles.
func (m *MarkovBuilder) Horizon(cycles int) *MarkovBuilder {
	m.markov.TimeHorizon = cycles
	return m
}

// CycleLength sets the time units per cycle.
func (m *MarkovBuilder) CycleLength(length float64) *MarkovBuilder {
	m.markov.CycleLength = length
	return m
}

// HalfCycle toggles half-cycle correction.
func (m *MarkovBuilder) HalfCycle(enabled bool) *MarkovBuilder {
	m.markov.HalfCycleCorrection = enabled
	return m
}
