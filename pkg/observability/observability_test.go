package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample returns the value of the series of family name whose labels include
// the given value (or the unlabelled series when label is empty).
func sample(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label != "" && !hasLabel(m, label) {
				continue
			}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				return m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				return m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func hasLabel(m *dto.Metric, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetValue() == value {
			return true
		}
	}
	return false
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnAnalysisStart(ctx, &domain.AnalysisEvent{Kind: domain.AnalysisRollback})
	assert.Equal(t, 1.0, sample(t, reg, "arbor_analyses_in_flight", ""))

	hooks.OnNodeEvaluated(ctx, &domain.NodeEvent{NodeType: domain.KindChance})
	hooks.OnNodeEvaluated(ctx, &domain.NodeEvent{NodeType: domain.KindChance})
	hooks.OnAnalysisEnd(ctx, &domain.AnalysisEvent{Kind: domain.AnalysisRollback, Duration: time.Millisecond})
	hooks.OnAnalysisEnd(ctx, &domain.AnalysisEvent{Kind: domain.AnalysisMarkov, Err: errors.New("boom")})

	assert.Equal(t, 2.0, sample(t, reg, "arbor_node_evaluations_total", "chance"))
	assert.Equal(t, 1.0, sample(t, reg, "arbor_analyses_total", "rollback"))
	assert.Equal(t, 1.0, sample(t, reg, "arbor_analysis_failures_total", "markov"))
	assert.Equal(t, 0.0, sample(t, reg, "arbor_analysis_failures_total", "rollback"))
	assert.Equal(t, 1.0, sample(t, reg, "arbor_analysis_duration_seconds", "rollback"))
	assert.Equal(t, 1.0, sample(t, reg, "arbor_analysis_duration_seconds", "markov"))
}

func TestMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	m.Hooks().OnAnalysisEnd(context.Background(), &domain.AnalysisEvent{Kind: domain.AnalysisSensitivity})

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `arbor_analyses_total{kind="sensitivity"} 1`)
}

func TestChainHooks(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnAnalysisStart: func(context.Context, *domain.AnalysisEvent) { calls = append(calls, "a.start") },
	}
	b := domain.LifecycleHooks{
		OnAnalysisStart: func(context.Context, *domain.AnalysisEvent) { calls = append(calls, "b.start") },
		OnNodeEvaluated: func(context.Context, *domain.NodeEvent) { calls = append(calls, "b.node") },
	}

	chained := ChainHooks(a, b)
	require.NotNil(t, chained.OnAnalysisStart)
	assert.Nil(t, chained.OnAnalysisEnd)

	chained.OnAnalysisStart(context.Background(), &domain.AnalysisEvent{})
	chained.OnNodeEvaluated(context.Background(), &domain.NodeEvent{})
	assert.Equal(t, []string{"a.start", "b.start", "b.node"}, calls)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := LogHooks(logger)

	hooks.OnAnalysisEnd(context.Background(), &domain.AnalysisEvent{Kind: domain.AnalysisRollback, RootID: "r", Err: errors.New("boom")})
	hooks.OnNodeEvaluated(context.Background(), &domain.NodeEvent{NodeID: "n1"})

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "root=r")
	assert.Contains(t, out, "node_id=n1")
}
