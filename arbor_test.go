package arbor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/testutils"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func treatmentModel(t *testing.T) *domain.Graph {
	t.Helper()
	b := dsl.New()
	b.Decision("choice").
		Branch("treat", "Treat", dsl.To("outcome")).
		Branch("wait", "Wait", dsl.Eff("e_wait"))
	b.Chance("outcome").
		Branch("cured", "Cured", dsl.Prob("p_cure"), dsl.To("cured")).
		Branch("failed", "Failed", dsl.Prob(0.5), dsl.To("failed"))
	b.Terminal("cured").Outcome(100, 1)
	b.Terminal("failed").Outcome(200, 0)
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

// countingCache records how often the engine reads and writes.
type countingCache struct {
	*memory.Cache
	gets, sets int
}

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets++
	return c.Cache.Get(ctx, key)
}

func (c *countingCache) Set(ctx context.Context, key string, value []byte) error {
	c.sets++
	return c.Cache.Set(ctx, key, value)
}

func TestEngine_RollbackUsesCache(t *testing.T) {
	cache := &countingCache{Cache: memory.NewCache()}
	var analyses int
	eng := arbor.New(
		arbor.WithCache(cache),
		arbor.WithLifecycleHooks(domain.LifecycleHooks{
			OnAnalysisStart: func(context.Context, *domain.AnalysisEvent) { analyses++ },
		}),
	)
	g := treatmentModel(t)
	vars := domain.Variables{"p_cure": 0.5, "e_wait": 0.4}
	ctx := context.Background()

	first, err := eng.Rollback(ctx, g, vars)
	require.NoError(t, err)
	second, err := eng.Rollback(ctx, g, vars)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, domain.Outcome{Cost: 150, Effectiveness: 0.5, Strategy: "Treat"}, first)
	assert.Equal(t, 1, analyses, "second call should be served from cache")
	assert.Equal(t, 1, cache.sets)

	// Different variables miss the cache.
	third, err := eng.Rollback(ctx, g, domain.Variables{"p_cure": 0.5, "e_wait": 0.9})
	require.NoError(t, err)
	assert.Equal(t, "Wait", third.Strategy)
	assert.Equal(t, 2, analyses)
}

func TestEngine_SensitivityCachedSeparately(t *testing.T) {
	cache := memory.NewCache()
	eng := arbor.New(arbor.WithCache(cache), arbor.WithParallelism(2))
	g := treatmentModel(t)
	vars := domain.Variables{"p_cure": 0.5, "e_wait": 0.4}

	_, err := eng.Rollback(context.Background(), g, vars)
	require.NoError(t, err)
	res, err := eng.SensitivityOneWay(context.Background(), g, vars)
	require.NoError(t, err)

	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, 0.5, res.BaseOutcome)
	require.Len(t, res.Bars, 2)
	assert.Equal(t, "p_cure", res.Bars[0].VariableName)
}

func TestEngine_StrictValidation(t *testing.T) {
	b := dsl.New()
	b.Chance("c").Branch("x", "X", dsl.Prob(-1), dsl.To("t"))
	b.Terminal("t").Outcome(1, 1)
	g, err := b.Build()
	require.NoError(t, err)

	_, err = arbor.New().Rollback(context.Background(), g, nil)
	require.NoError(t, err, "permissive default must analyse the model")

	_, err = arbor.New(arbor.WithStrictValidation(true)).Rollback(context.Background(), g, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidModel)

	assert.Error(t, arbor.New().Validate(g, nil))
}

func TestEngine_StrictRootAndDepth(t *testing.T) {
	b := dsl.New()
	b.Terminal("a").Outcome(1, 1)
	b.Terminal("b").Outcome(2, 2)
	g, err := b.Build()
	require.NoError(t, err)

	out, err := arbor.New().Rollback(context.Background(), g, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.Cost)

	_, err = arbor.New(arbor.WithStrictRoot(true)).Rollback(context.Background(), g, nil)
	assert.ErrorIs(t, err, domain.ErrAmbiguousRoot)

	_, err = arbor.New(arbor.WithMaxDepth(1)).Rollback(context.Background(), treatmentModel(t), nil)
	assert.ErrorIs(t, err, domain.ErrDepthExceeded)
}

func TestEngine_LoadModel(t *testing.T) {
	b := dsl.New()
	b.Terminal("t").Outcome(3, 4)
	loader, err := b.BuildLoader("single")
	require.NoError(t, err)

	eng := arbor.New(arbor.WithLoader(loader))
	ctx := context.Background()

	ids, err := eng.ListModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"single"}, ids)

	model, err := eng.LoadModel(ctx, "single")
	require.NoError(t, err)
	assert.Equal(t, "single", model.ID)

	out, err := eng.Rollback(ctx, model.Graph, model.Variables)
	require.NoError(t, err)
	assert.Equal(t, domain.Outcome{Cost: 3, Effectiveness: 4}, out)

	_, err = eng.LoadModel(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrModelNotFound)

	_, err = arbor.New().LoadModel(ctx, "single")
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}

func TestEngine_Trace(t *testing.T) {
	b := dsl.New()
	b.Markov("m").
		State("Healthy", 0, 1).
		State("Dead", 0, 0).
		Transition("Healthy", "Healthy", 0.9).
		Transition("Healthy", "Dead", 0.1).
		Transition("Dead", "Dead", 1).
		Initial("Healthy", 1).
		Horizon(2).
		HalfCycle(false)
	g, err := b.Build()
	require.NoError(t, err)

	out, trace, err := arbor.New().Trace(context.Background(), g, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.9, out.Effectiveness, 1e-9)
	assert.Len(t, trace.Cycles, 2)

	_, _, err = arbor.New().Trace(context.Background(), treatmentModel(t), nil)
	assert.Error(t, err)
}

func TestEngine_TraceFiresHooks(t *testing.T) {
	b := dsl.New()
	b.Markov("m").
		State("Healthy", 0, 1).
		Transition("Healthy", "Healthy", 1).
		Initial("Healthy", 1).
		Horizon(1)
	g, err := b.Build()
	require.NoError(t, err)

	var starts, ends []*domain.AnalysisEvent
	eng := arbor.New(arbor.WithLifecycleHooks(domain.LifecycleHooks{
		OnAnalysisStart: func(_ context.Context, ev *domain.AnalysisEvent) { starts = append(starts, ev) },
		OnAnalysisEnd:   func(_ context.Context, ev *domain.AnalysisEvent) { ends = append(ends, ev) },
	}))

	_, _, err = eng.Trace(context.Background(), g, nil)
	require.NoError(t, err)

	require.Len(t, starts, 1)
	require.Len(t, ends, 1)
	assert.Equal(t, domain.AnalysisMarkov, starts[0].Kind)
	assert.Equal(t, "m", ends[0].RootID)
	assert.NoError(t, ends[0].Err)
}

func TestEngine_SharedCacheSeparatesSettings(t *testing.T) {
	ctx := context.Background()

	t.Run("Unified sensitivity", func(t *testing.T) {
		b := dsl.New()
		b.Markov("m").
			State("Healthy", 0, 1).
			State("Dead", 0, 0).
			Transition("Healthy", "Healthy", 0.9).
			Transition("Healthy", "Dead", 0.1).
			Transition("Dead", "Dead", 1).
			Initial("Healthy", 1).
			Horizon(2).
			HalfCycle(false)
		g, err := b.Build()
		require.NoError(t, err)
		vars := domain.Variables{"x": 1}

		cache := memory.NewCache()
		tree, err := arbor.New(arbor.WithCache(cache)).SensitivityOneWay(ctx, g, vars)
		require.NoError(t, err)
		unified, err := arbor.New(arbor.WithCache(cache), arbor.WithUnifiedSensitivity(true)).SensitivityOneWay(ctx, g, vars)
		require.NoError(t, err)

		assert.Equal(t, 0.0, tree.BaseOutcome)
		assert.InDelta(t, 1.9, unified.BaseOutcome, 1e-9)
		assert.Equal(t, 2, cache.Len())
	})

	t.Run("Strict validation runs on a cache hit", func(t *testing.T) {
		b := dsl.New()
		b.Chance("c").Branch("x", "X", dsl.Prob(-1), dsl.To("t"))
		b.Terminal("t").Outcome(1, 1)
		g, err := b.Build()
		require.NoError(t, err)

		cache := memory.NewCache()
		_, err = arbor.New(arbor.WithCache(cache)).Rollback(ctx, g, nil)
		require.NoError(t, err)
		require.Equal(t, 1, cache.Len())

		_, err = arbor.New(arbor.WithCache(cache), arbor.WithStrictValidation(true)).Rollback(ctx, g, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidModel)
	})

	t.Run("Strict root", func(t *testing.T) {
		b := dsl.New()
		b.Terminal("a").Outcome(1, 1)
		b.Terminal("b").Outcome(2, 2)
		g, err := b.Build()
		require.NoError(t, err)

		cache := memory.NewCache()
		_, err = arbor.New(arbor.WithCache(cache)).Rollback(ctx, g, nil)
		require.NoError(t, err)

		_, err = arbor.New(arbor.WithCache(cache), arbor.WithStrictRoot(true)).Rollback(ctx, g, nil)
		assert.ErrorIs(t, err, domain.ErrAmbiguousRoot)
	})

	t.Run("Max depth", func(t *testing.T) {
		cache := memory.NewCache()
		g := treatmentModel(t)
		vars := domain.Variables{"p_cure": 0.5, "e_wait": 0.4}

		_, err := arbor.New(arbor.WithCache(cache)).Rollback(ctx, g, vars)
		require.NoError(t, err)

		_, err = arbor.New(arbor.WithCache(cache), arbor.WithMaxDepth(1)).Rollback(ctx, g, vars)
		assert.ErrorIs(t, err, domain.ErrDepthExceeded)
	})
}

func TestCacheKey(t *testing.T) {
	g := treatmentModel(t)
	settings := "max_depth=512;strict_root=false;unified_sensitivity=false"

	k1, err := arbor.CacheKey("rollback", settings, g, domain.Variables{"a": 1, "b": 2}, nil)
	require.NoError(t, err)
	k2, err := arbor.CacheKey("rollback", settings, g.Clone(), domain.Variables{"b": 2, "a": 1}, nil)
	require.NoError(t, err)
	k3, err := arbor.CacheKey("sensitivity", settings, g, domain.Variables{"a": 1, "b": 2}, nil)
	require.NoError(t, err)
	k4, err := arbor.CacheKey("rollback", "max_depth=8", g, domain.Variables{"a": 1, "b": 2}, nil)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.NotEqual(t, k1, k4)
	assert.Contains(t, k1, "rollback:")
}

func TestOpenLibrary(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"simple.json": `{"nodes":[{"id":"t","data":{"nodeType":"terminal","branches":[{"id":"o","cost":1,"effectiveness":2}]}}],"edges":[]}`,
	})

	loader, err := arbor.OpenLibrary(dir, "file")
	require.NoError(t, err)
	ids, err := loader.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"simple"}, ids)

	_, err = arbor.OpenLibrary(dir, "ftp")
	assert.Error(t, err)

	_, err = arbor.OpenLibrary("", "file")
	assert.Error(t, err)
}

func TestEngine_ParseModelErrors(t *testing.T) {
	_, err := arbor.New().ParseModel([]byte(`{"nodes":[{"id":"x","data":{"nodeType":"spaceship"}}]}`))
	require.Error(t, err)

	var nodeErr *domain.NodeError
	assert.True(t, errors.As(err, &nodeErr))
	assert.Equal(t, "x", nodeErr.NodeID)
}
