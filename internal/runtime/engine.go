package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
)

// DefaultMaxDepth bounds tree recursion when no limit is configured.
const DefaultMaxDepth = 512

// Engine is the core analysis engine. It is stateless between calls and
// safe for concurrent use.
type Engine struct {
	logger             *slog.Logger
	hooks              domain.LifecycleHooks
	maxDepth           int
	parallelism        int
	strictRoot         bool
	unifiedSensitivity bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMaxDepth limits how many nested nodes rollback may visit on one path.
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithParallelism sets how many sensitivity evaluations may run at once.
func WithParallelism(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithStrictRoot makes root selection fail with ErrAmbiguousRoot when more
// than one node has no incoming edge.
func WithStrictRoot(strict bool) EngineOption {
	return func(e *Engine) {
		e.strictRoot = strict
	}
}

// WithUnifiedSensitivity makes sensitivity analysis dispatch Markov roots to
// the cohort simulator instead of tree rollback.
func WithUnifiedSensitivity(unified bool) EngineOption {
	return func(e *Engine) {
		e.unifiedSensitivity = unified
	}
}

// NewEngine creates a new engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:      logging.NewNop(),
		maxDepth:    DefaultMaxDepth,
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fingerprint describes the options that change analysis results.
// Parallelism is left out: it never changes the output.
func (e *Engine) Fingerprint() string {
	return fmt.Sprintf("max_depth=%d;strict_root=%t;unified_sensitivity=%t",
		e.maxDepth, e.strictRoot, e.unifiedSensitivity)
}

// observe wraps an analysis with the start/end lifecycle hooks.
func (e *Engine) observe(ctx context.Context, kind domain.AnalysisKind, rootID string, fn func() error) error {
	start := time.Now()
	if e.hooks.OnAnalysisStart != nil {
		e.hooks.OnAnalysisStart(ctx, &domain.AnalysisEvent{
			EventBase: domain.EventBase{Timestamp: start, Type: domain.EventAnalysisStart},
			Kind:      kind,
			RootID:    rootID,
		})
	}

	err := fn()

	if e.hooks.OnAnalysisEnd != nil {
		e.hooks.OnAnalysisEnd(ctx, &domain.AnalysisEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventAnalysisEnd},
			Kind:      kind,
			RootID:    rootID,
			Duration:  time.Since(start),
			Err:       err,
		})
	}
	return err
}
