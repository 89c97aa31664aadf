package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
)

// ChainHooks calls every non-nil hook of each set, in order.
func ChainHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks

	var starts, ends []func(context.Context, *domain.AnalysisEvent)
	var nodes []func(context.Context, *domain.NodeEvent)
	for _, s := range sets {
		if s.OnAnalysisStart != nil {
			starts = append(starts, s.OnAnalysisStart)
		}
		if s.OnAnalysisEnd != nil {
			ends = append(ends, s.OnAnalysisEnd)
		}
		if s.OnNodeEvaluated != nil {
			nodes = append(nodes, s.OnNodeEvaluated)
		}
	}

	if len(starts) > 0 {
		out.OnAnalysisStart = func(ctx context.Context, e *domain.AnalysisEvent) {
			for _, fn := range starts {
				fn(ctx, e)
			}
		}
	}
	if len(ends) > 0 {
		out.OnAnalysisEnd = func(ctx context.Context, e *domain.AnalysisEvent) {
			for _, fn := range ends {
				fn(ctx, e)
			}
		}
	}
	if len(nodes) > 0 {
		out.OnNodeEvaluated = func(ctx context.Context, e *domain.NodeEvent) {
			for _, fn := range nodes {
				fn(ctx, e)
			}
		}
	}
	return out
}

// LogHooks logs analysis boundaries at info and node evaluations at debug.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnAnalysisStart: func(ctx context.Context, e *domain.AnalysisEvent) {
			logger.InfoContext(ctx, "analysis_start", "kind", e.Kind, "root", e.RootID)
		},
		OnAnalysisEnd: func(ctx context.Context, e *domain.AnalysisEvent) {
			if e.Err != nil {
				logger.ErrorContext(ctx, "analysis_end", "kind", e.Kind, "root", e.RootID,
					"duration", e.Duration, "error", e.Err)
				return
			}
			logger.InfoContext(ctx, "analysis_end", "kind", e.Kind, "root", e.RootID, "duration", e.Duration)
		},
		OnNodeEvaluated: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_evaluated", "node_id", e.NodeID, "type", e.NodeType, "depth", e.Depth)
		},
	}
}
