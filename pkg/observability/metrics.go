package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors fed by engine lifecycle hooks.
type Metrics struct {
	Analyses      *prometheus.CounterVec
	Failures      *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	NodeEvaluated *prometheus.CounterVec
	InFlight      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		Analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_analyses_total",
				Help: "Total number of analyses run",
			},
			[]string{"kind"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_analysis_failures_total",
				Help: "Total number of analyses that returned an error",
			},
			[]string{"kind"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arbor_analysis_duration_seconds",
				Help:    "Duration of analyses",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"kind"},
		),
		NodeEvaluated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_node_evaluations_total",
				Help: "Total number of tree node evaluations",
			},
			[]string{"node_type"},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "arbor_analyses_in_flight",
				Help: "Number of analyses currently running",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.Analyses, m.Failures, m.Duration, m.NodeEvaluated, m.InFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnAnalysisStart: func(ctx context.Context, e *domain.AnalysisEvent) {
			m.InFlight.Inc()
		},
		OnAnalysisEnd: func(ctx context.Context, e *domain.AnalysisEvent) {
			kind := string(e.Kind)
			m.InFlight.Dec()
			m.Analyses.WithLabelValues(kind).Inc()
			m.Duration.WithLabelValues(kind).Observe(e.Duration.Seconds())
			if e.Err != nil {
				m.Failures.WithLabelValues(kind).Inc()
			}
		},
		OnNodeEvaluated: func(ctx context.Context, e *domain.NodeEvent) {
			m.NodeEvaluated.WithLabelValues(string(e.NodeType)).Inc()
		},
	}
}

// Handler exposes the metrics of g in the Prometheus text format.
// A nil g uses prometheus.DefaultGatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
