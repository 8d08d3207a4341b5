package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStackResolved     EventType = "stack_resolved"
	EventTransition        EventType = "transition"
	EventInitializerFailed EventType = "initializer_failed"
)

// TransitionKind names the mutation applied to a node.
type TransitionKind string

const (
	TransitionInput          TransitionKind = "input"
	TransitionHandler        TransitionKind = "handler"
	TransitionVariable       TransitionKind = "variable"
	TransitionMerge          TransitionKind = "merge"
	TransitionAddVariable    TransitionKind = "add_variable"
	TransitionRenameVariable TransitionKind = "rename_variable"
	TransitionRemoveVariable TransitionKind = "remove_variable"
)

// Rule identifies which step of the input-update ladder applied.
type Rule string

const (
	// RuleUnchanged: the serialized expression did not change.
	RuleUnchanged Rule = "unchanged"
	// RuleAssignable: the new type is assignable to the old one.
	RuleAssignable Rule = "assignable"
	// RuleAbsorbing: the current handler absorbs any input change.
	RuleAbsorbing Rule = "absorbing"
	// RulePinned: the node stays on the pinned fallback handler.
	RulePinned Rule = "pinned"
	// RuleReinitialized: the handler was re-resolved from scratch.
	RuleReinitialized Rule = "reinitialized"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// ResolveEvent describes a stack resolution.
type ResolveEvent struct {
	EventBase
	InputType   string   `json:"input_type"`
	RequestedID string   `json:"requested_id,omitempty"`
	ChosenID    string   `json:"chosen_id,omitempty"`
	Stack       []string `json:"stack"`
}

// TransitionEvent describes a committed node transition.
type TransitionEvent struct {
	EventBase
	Kind        TransitionKind `json:"kind"`
	Rule        Rule           `json:"rule,omitempty"`
	FromHandler string         `json:"from_handler,omitempty"`
	ToHandler   string         `json:"to_handler,omitempty"`
	Duration    time.Duration  `json:"duration,omitempty"`
}

// InitializerEvent describes a recovered initializer failure.
type InitializerEvent struct {
	EventBase
	HandlerID string `json:"handler_id"`
	Err       error  `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStackResolved      func(context.Context, *ResolveEvent)
	OnTransition         func(context.Context, *TransitionEvent)
	OnInitializerFailure func(context.Context, *InitializerEvent)
}

// ChainHooks fans every callback out to all hooks in order.
func ChainHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStackResolved: func(ctx context.Context, e *ResolveEvent) {
			for _, h := range hooks {
				if h.OnStackResolved != nil {
					h.OnStackResolved(ctx, e)
				}
			}
		},
		OnTransition: func(ctx context.Context, e *TransitionEvent) {
			for _, h := range hooks {
				if h.OnTransition != nil {
					h.OnTransition(ctx, e)
				}
			}
		},
		OnInitializerFailure: func(ctx context.Context, e *InitializerEvent) {
			for _, h := range hooks {
				if h.OnInitializerFailure != nil {
					h.OnInitializerFailure(ctx, e)
				}
			}
		},
	}
}
