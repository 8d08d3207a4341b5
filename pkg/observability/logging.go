package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/paneltree/pkg/domain"
)

// LogHooks returns lifecycle hooks that write every event to logger.
// Resolutions and transitions log at debug, initializer failures at warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStackResolved: func(ctx context.Context, e *domain.ResolveEvent) {
			logger.DebugContext(ctx, "stack_resolved",
				"input_type", e.InputType,
				"requested", e.RequestedID,
				"chosen", e.ChosenID,
				"stack", e.Stack,
			)
		},
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "transition",
				"kind", e.Kind,
				"rule", e.Rule,
				"from", e.FromHandler,
				"to", e.ToHandler,
				"duration", e.Duration,
			)
		},
		OnInitializerFailure: func(ctx context.Context, e *domain.InitializerEvent) {
			logger.WarnContext(ctx, "initializer_failed",
				"handler_id", e.HandlerID,
				"err", e.Err,
			)
		},
	}
}
