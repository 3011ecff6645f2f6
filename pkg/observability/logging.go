package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/zres/pkg/domain"
)

// LogHooks returns lifecycle hooks that log every event on logger.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPassStart: func(ctx context.Context, e *domain.PassEvent) {
			logger.DebugContext(ctx, "pass_start", "run_id", e.RunID, "pass", e.Pass, "final", e.Final)
		},
		OnPassDone: func(ctx context.Context, e *domain.PassEvent) {
			logger.DebugContext(ctx, "pass_done", "run_id", e.RunID, "pass", e.Pass, "pending", e.Pending, "final", e.Final)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_call",
				"pass", e.Pass,
				"tool", e.Tool.Name,
				"tier", e.Tool.Tier.String(),
				"request", e.Request,
			)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			level := slog.LevelDebug
			if e.IsError {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "tool_return",
				"pass", e.Pass,
				"tool", e.Tool.Name,
				"tier", e.Tool.Tier.String(),
				"request", e.Request,
				"delegated", e.Delegated,
				"is_error", e.IsError,
				"duration", e.Duration,
			)
		},
		OnWarning: func(ctx context.Context, e *domain.WarningEvent) {
			logger.WarnContext(ctx, e.Warning.Message, "tool", e.Warning.Tool, "request", e.Warning.Request)
		},
		OnRunDone: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_done",
				"run_id", e.RunID,
				"status", e.Report.Status,
				"passes", e.Report.Passes,
				"invocations", e.Report.Invocations,
				"final_runs", e.Report.FinalRuns,
				"warnings", len(e.Report.Warnings),
				"duration", e.Report.Duration,
			)
		},
	}
}
