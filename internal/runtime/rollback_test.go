package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, b *dsl.Builder) *domain.Graph {
	t.Helper()
	g, err := b.Build()
	require.NoError(t, err)
	return ResolveTargets(g)
}

func TestRollback_Terminal_UsesFirstBranchOnly(t *testing.T) {
	b := dsl.New()
	b.Terminal("t").
		Branch("o1", "first", dsl.Cost(5), dsl.Eff(2)).
		Branch("o2", "ignored", dsl.Cost(100), dsl.Eff(100))
	g := build(t, b)

	out, err := NewEngine().Rollback(context.Background(), g, "t", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Outcome{Cost: 5, Effectiveness: 2}, out)
}

func TestRollback_Chance(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 any
		vars   domain.Variables
	}{
		{name: "Weights sum to one", p1: 0.5, p2: 0.5},
		{name: "Weights are normalised", p1: 0.3, p2: 0.3},
		{name: "Weights from variables", p1: "pA", p2: "pB", vars: domain.Variables{"pA": 0.2, "pB": 0.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := dsl.New()
			b.Chance("c").
				Branch("ba", "A", dsl.Prob(tt.p1), dsl.To("A")).
				Branch("bb", "B", dsl.Prob(tt.p2), dsl.To("B"))
			b.Terminal("A").Outcome(2, 10)
			b.Terminal("B").Outcome(4, 20)
			g := build(t, b)

			out, err := NewEngine().Rollback(context.Background(), g, "c", tt.vars)
			require.NoError(t, err)
			assert.InDelta(t, 15.0, out.Effectiveness, 1e-9)
			assert.InDelta(t, 3.0, out.Cost, 1e-9)
			assert.Empty(t, out.Strategy)
		})
	}
}

func TestRollback_Chance_UnlinkedAndZeroWeight(t *testing.T) {
	b := dsl.New()
	b.Chance("c").
		Branch("dangling", "no target", dsl.Prob(1), dsl.Eff(99)).
		Branch("zero", "zero weight", dsl.Prob(0), dsl.To("A"))
	b.Terminal("A").Outcome(1, 1)
	g := build(t, b)

	out, err := NewEngine().Rollback(context.Background(), g, "c", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Outcome{}, out)
}

func TestRollback_Decision(t *testing.T) {
	t.Run("Picks greatest effectiveness", func(t *testing.T) {
		b := dsl.New()
		b.Decision("d").
			Branch("a", "Watchful waiting", dsl.Cost(1), dsl.Eff(3)).
			Branch("b", "Surgery", dsl.Cost(9), dsl.Eff(7))
		g := build(t, b)

		out, err := NewEngine().Rollback(context.Background(), g, "d", nil)
		require.NoError(t, err)
		assert.Equal(t, domain.Outcome{Cost: 9, Effectiveness: 7, Strategy: "Surgery"}, out)
	})

	t.Run("Tie keeps first branch", func(t *testing.T) {
		b := dsl.New()
		b.Decision("d").
			Branch("a", "First", dsl.Cost(1), dsl.Eff(5)).
			Branch("b", "Second", dsl.Cost(2), dsl.Eff(5))
		g := build(t, b)

		out, err := NewEngine().Rollback(context.Background(), g, "d", nil)
		require.NoError(t, err)
		assert.Equal(t, "First", out.Strategy)
		assert.Equal(t, 1.0, out.Cost)
	})

	t.Run("Linked branch uses child outcome", func(t *testing.T) {
		b := dsl.New()
		b.Decision("d").
			Branch("a", "Treat", dsl.Eff(100), dsl.To("t")).
			Branch("b", "Skip", dsl.Eff(4))
		b.Terminal("t").Outcome(7, 3)
		g := build(t, b)

		out, err := NewEngine().Rollback(context.Background(), g, "d", nil)
		require.NoError(t, err)
		assert.Equal(t, domain.Outcome{Cost: 0, Effectiveness: 4, Strategy: "Skip"}, out)
	})

	t.Run("No branches", func(t *testing.T) {
		b := dsl.New()
		b.Decision("d")
		g := build(t, b)

		out, err := NewEngine().Rollback(context.Background(), g, "d", nil)
		require.NoError(t, err)
		assert.Equal(t, domain.Outcome{}, out)
	})
}

func TestRollback_UnresolvedReferenceIsZero(t *testing.T) {
	b := dsl.New()
	b.Terminal("t").Outcome("missing_cost", "missing_eff")
	g := build(t, b)

	out, err := NewEngine().Rollback(context.Background(), g, "t", domain.Variables{})
	require.NoError(t, err)
	assert.Equal(t, domain.Outcome{}, out)
}

func TestRollback_MarkovInsideTreeIsZero(t *testing.T) {
	b := dsl.New()
	b.Chance("c").Branch("x", "X", dsl.Prob(1), dsl.To("m"))
	b.Markov("m").State("Well", 10, 1).Initial("Well", 1)
	g := build(t, b)

	out, err := NewEngine().Rollback(context.Background(), g, "c", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Outcome{}, out)
}

func TestRollback_Errors(t *testing.T) {
	t.Run("Node not found", func(t *testing.T) {
		g := build(t, dsl.New())

		_, err := NewEngine().Rollback(context.Background(), g, "missing", nil)
		require.ErrorIs(t, err, domain.ErrNodeNotFound)

		var nodeErr *domain.NodeError
		require.True(t, errors.As(err, &nodeErr))
		assert.Equal(t, "missing", nodeErr.NodeID)
	})

	t.Run("Dangling edge target", func(t *testing.T) {
		b := dsl.New()
		b.Chance("c").Branch("x", "X", dsl.Prob(1), dsl.To("ghost"))
		g := build(t, b)

		_, err := NewEngine().Rollback(context.Background(), g, "c", nil)
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	})

	t.Run("Depth exceeded", func(t *testing.T) {
		b := dsl.New()
		b.Chance("c1").Branch("x", "X", dsl.Prob(1), dsl.To("c2"))
		b.Chance("c2").Branch("x", "X", dsl.Prob(1), dsl.To("t"))
		b.Terminal("t").Outcome(1, 1)
		g := build(t, b)

		_, err := NewEngine(WithMaxDepth(2)).Rollback(context.Background(), g, "c1", nil)
		assert.ErrorIs(t, err, domain.ErrDepthExceeded)

		out, err := NewEngine(WithMaxDepth(3)).Rollback(context.Background(), g, "c1", nil)
		require.NoError(t, err)
		assert.Equal(t, 1.0, out.Effectiveness)
	})

	t.Run("Cycle detected", func(t *testing.T) {
		b := dsl.New()
		b.Decision("r").Branch("go", "Go", dsl.To("a"))
		b.Chance("a").Branch("x", "X", dsl.Prob(1), dsl.To("b"))
		b.Chance("b").Branch("y", "Y", dsl.Prob(1), dsl.To("a"))
		g := build(t, b)

		_, err := NewEngine().Rollback(context.Background(), g, "r", nil)
		require.ErrorIs(t, err, domain.ErrCycleDetected)

		var nodeErr *domain.NodeError
		require.True(t, errors.As(err, &nodeErr))
		assert.Equal(t, "a", nodeErr.NodeID)
	})

	t.Run("Shared subtree is not a cycle", func(t *testing.T) {
		b := dsl.New()
		b.Chance("c").
			Branch("x", "X", dsl.Prob(1), dsl.To("t")).
			Branch("y", "Y", dsl.Prob(1), dsl.To("t"))
		b.Terminal("t").Outcome(2, 3)
		g := build(t, b)

		out, err := NewEngine().Rollback(context.Background(), g, "c", nil)
		require.NoError(t, err)
		assert.Equal(t, domain.Outcome{Cost: 2, Effectiveness: 3}, out)
	})

	t.Run("Context cancelled", func(t *testing.T) {
		b := dsl.New()
		b.Terminal("t").Outcome(1, 1)
		g := build(t, b)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewEngine().Rollback(ctx, g, "t", nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRollback_NodeEvaluatedHook(t *testing.T) {
	b := dsl.New()
	b.Chance("c").
		Branch("x", "X", dsl.Prob(1), dsl.To("t1")).
		Branch("y", "Y", dsl.Prob(1), dsl.To("t2"))
	b.Terminal("t1").Outcome(1, 1)
	b.Terminal("t2").Outcome(1, 1)
	g := build(t, b)

	var events []*domain.NodeEvent
	engine := NewEngine(WithLifecycleHooks(domain.LifecycleHooks{
		OnNodeEvaluated: func(_ context.Context, ev *domain.NodeEvent) {
			events = append(events, ev)
		},
	}))

	_, err := engine.Rollback(context.Background(), g, "c", nil)
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, "t1", events[0].NodeID)
	assert.Equal(t, 2, events[0].Depth)
	assert.Equal(t, "c", events[2].NodeID)
	assert.Equal(t, domain.KindChance, events[2].NodeType)
	assert.Equal(t, 1, events[2].Depth)
}
