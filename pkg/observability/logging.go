package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/canvas/pkg/domain"
)

// LoggingHooks logs node transitions at DEBUG and refinement rounds at INFO.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "thread_id", e.ThreadID, "request_id", e.RequestID, "node", e.Node)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			level := slog.LevelDebug
			if e.IsError {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "node_leave",
				"thread_id", e.ThreadID,
				"request_id", e.RequestID,
				"node", e.Node,
				"duration", e.Duration,
				"is_error", e.IsError,
			)
		},
		OnIteration: func(ctx context.Context, e *domain.IterationEvent) {
			logger.InfoContext(ctx, "refine_iteration",
				"thread_id", e.ThreadID,
				"iteration", e.Iteration,
				"score", e.Score,
				"best_score", e.BestScore,
			)
		},
	}
}
