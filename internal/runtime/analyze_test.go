package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_DispatchesOnRootKind(t *testing.T) {
	t.Run("Tree root", func(t *testing.T) {
		b := dsl.New()
		b.Decision("d").
			Branch("a", "Treat", dsl.To("c")).
			Branch("b", "Wait", dsl.Eff(1))
		b.Chance("c").
			Branch("ok", "Success", dsl.Prob("p"), dsl.To("win")).
			Branch("ko", "Failure", dsl.Prob(0.5), dsl.To("lose"))
		b.Terminal("win").Outcome(100, 10)
		b.Terminal("lose").Outcome(100, 0)
		g, err := b.Build()
		require.NoError(t, err)

		out, err := NewEngine().Analyze(context.Background(), g, domain.Variables{"p": 0.5})
		require.NoError(t, err)
		assert.Equal(t, domain.Outcome{Cost: 100, Effectiveness: 5, Strategy: "Treat"}, out)

		// Input graph keeps its authored (empty) targets.
		d, _ := g.Node("d")
		assert.Empty(t, d.Branches()[0].TargetNodeID)
	})

	t.Run("Markov root", func(t *testing.T) {
		g, err := healthyDead(false).Build()
		require.NoError(t, err)

		out, err := NewEngine().Analyze(context.Background(), g, domain.Variables{"u_healthy": 1})
		require.NoError(t, err)
		assert.InDelta(t, 1.9, out.Effectiveness, 1e-9)
	})

	t.Run("Root not found", func(t *testing.T) {
		b := dsl.New()
		b.Decision("a").Branch("x", "X", dsl.To("b"))
		b.Decision("b").Branch("y", "Y", dsl.To("a"))
		g, err := b.Build()
		require.NoError(t, err)

		_, err = NewEngine().Analyze(context.Background(), g, nil)
		assert.ErrorIs(t, err, domain.ErrRootNotFound)

		_, err = NewEngine().SensitivityOneWay(context.Background(), g, nil)
		assert.ErrorIs(t, err, domain.ErrRootNotFound)
	})
}

func TestAnalyze_LifecycleHooks(t *testing.T) {
	b := dsl.New()
	b.Terminal("t").Outcome(1, "x")
	g, err := b.Build()
	require.NoError(t, err)

	var (
		mu     sync.Mutex
		starts []*domain.AnalysisEvent
		ends   []*domain.AnalysisEvent
	)
	engine := NewEngine(WithLifecycleHooks(domain.LifecycleHooks{
		OnAnalysisStart: func(_ context.Context, ev *domain.AnalysisEvent) {
			mu.Lock()
			defer mu.Unlock()
			starts = append(starts, ev)
		},
		OnAnalysisEnd: func(_ context.Context, ev *domain.AnalysisEvent) {
			mu.Lock()
			defer mu.Unlock()
			ends = append(ends, ev)
		},
	}))

	_, err = engine.Analyze(context.Background(), g, nil)
	require.NoError(t, err)
	_, err = engine.SensitivityOneWay(context.Background(), g, domain.Variables{"x": 1})
	require.NoError(t, err)

	require.Len(t, starts, 2)
	require.Len(t, ends, 2)
	assert.Equal(t, domain.AnalysisRollback, starts[0].Kind)
	assert.Equal(t, domain.AnalysisSensitivity, starts[1].Kind)
	assert.Equal(t, "t", ends[0].RootID)
	assert.Equal(t, domain.EventAnalysisEnd, ends[0].Type)
	assert.NoError(t, ends[0].Err)
}

func TestAnalyze_EndHookSeesError(t *testing.T) {
	b := dsl.New()
	b.Chance("c").Branch("x", "X", dsl.Prob(1), dsl.To("ghost"))
	g, err := b.Build()
	require.NoError(t, err)

	var endErr error
	engine := NewEngine(WithLifecycleHooks(domain.LifecycleHooks{
		OnAnalysisEnd: func(_ context.Context, ev *domain.AnalysisEvent) {
			endErr = ev.Err
		},
	}))

	_, err = engine.Analyze(context.Background(), g, nil)
	require.Error(t, err)
	assert.ErrorIs(t, endErr, domain.ErrNodeNotFound)
}
