package dsl

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
)

// Builder manages the graph construction. Nodes keep their insertion order,
// which is also the root tie-break order.
type Builder struct {
	nodes []*domain.Node
	ids   map[string]*domain.Node
	edges []domain.Edge
	errs  []error
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		ids: make(map[string]*domain.Node),
	}
}

func (b *Builder) add(id string, payload domain.Payload) *domain.Node {
	if n, ok := b.ids[id]; ok {
		if n.Kind() != payload.Kind() {
			b.errs = append(b.errs, fmt.Errorf("node %q redeclared as %s (was %s)", id, payload.Kind(), n.Kind()))
		}
		return n
	}
	n := &domain.Node{ID: id, Label: id, Data: payload}
	b.nodes = append(b.nodes, n)
	b.ids[id] = n
	return n
}

// Decision adds (or returns) a decision node.
func (b *Builder) Decision(id string) *NodeBuilder {
	return &NodeBuilder{node: b.add(id, &domain.Decision{}), builder: b}
}

// Chance adds (or returns) a chance node.
func (b *Builder) Chance(id string) *NodeBuilder {
	return &NodeBuilder{node: b.add(id, &domain.Chance{}), builder: b}
}

// Terminal adds (or returns) a terminal node.
func (b *Builder) Terminal(id string) *NodeBuilder {
	return &NodeBuilder{node: b.add(id, &domain.Terminal{}), builder: b}
}

// Markov adds (or returns) a Markov cohort node with the package defaults.
func (b *Builder) Markov(id string) *MarkovBuilder {
	n := b.add(id, &domain.Markov{
		Transitions:         domain.TransitionMatrix{},
		TimeHorizon:         domain.DefaultTimeHorizon,
		CycleLength:         domain.DefaultCycleLength,
		InitialDistribution: map[string]domain.Scalar{},
		HalfCycleCorrection: domain.DefaultHalfCycleCorrection,
	})
	m, _ := n.Data.(*domain.Markov)
	if m == nil {
		m = &domain.Markov{}
	}
	return &MarkovBuilder{markov: m, builder: b}
}

// Edge adds a raw edge. Prefer the To branch option.
func (b *Builder) Edge(source, branchID, target string) *Builder {
	b.edges = append(b.edges, domain.Edge{
		ID:           fmt.Sprintf("%s-%s-%s", source, branchID, target),
		Source:       source,
		Target:       target,
		SourceHandle: branchID,
	})
	return b
}

// Build compiles the graph.
func (b *Builder) Build() (*domain.Graph, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("invalid model: %w", b.errs[0])
	}
	g := &domain.Graph{
		Nodes: make([]domain.Node, 0, len(b.nodes)),
		Edges: make([]domain.Edge, len(b.edges)),
	}
	for _, n := range b.nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node missing ID")
		}
		g.Nodes = append(g.Nodes, n.Clone())
	}
	copy(g.Edges, b.edges)
	return g, nil
}

// BuildLoader compiles the graph into a MemoryLoader holding it under modelID.
func (b *Builder) BuildLoader(modelID string) (*memory.Loader, error) {
	g, err := b.Build()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model %s: %w", modelID, err)
	}
	return memory.NewLoader(map[string]string{modelID: string(raw)}), nil
}

func (b *Builder) scalar(field string, v any) domain.Scalar {
	s, err := domain.ParseScalar(v)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("%s: %w", field, err))
	}
	return s
}
