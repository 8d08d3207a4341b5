package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/paneltree/internal/logging"
	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
	"github.com/aretw0/paneltree/pkg/registry"
	"github.com/aretw0/paneltree/pkg/types"
)

// Policy holds caller conventions that change how input updates are folded.
type Policy struct {
	// PinFallback is the handler id a node sticks to when AllowListActive
	// is set and the node is already on it.
	PinFallback string
	// AllowListActive marks a caller that restricts the stack with an allow-list.
	AllowListActive bool
}

func (p Policy) pins(handlerID string) bool {
	return p.AllowListActive && p.PinFallback != "" && handlerID == p.PinFallback
}

// Engine resolves handler stacks and applies node transitions.
// It holds no node state: every operation takes a node value and returns a new one.
type Engine struct {
	registry *registry.Registry
	oracle   domain.Oracle
	refiner  domain.Refiner
	allow    registry.Filter
	policy   Policy
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time
}

// EngineOption configures the Engine.
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

// WithPolicy sets the input-update policy.
func WithPolicy(p Policy) EngineOption {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithAllowFilter restricts every stack this engine resolves.
func WithAllowFilter(f registry.Filter) EngineOption {
	return func(e *Engine) {
		e.allow = f
	}
}

// WithOracle sets the type compatibility oracle.
func WithOracle(o domain.Oracle) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.oracle = o
		}
	}
}

// WithRefiner sets the expression type refiner.
func WithRefiner(r domain.Refiner) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.refiner = r
		}
	}
}

// NewEngine creates an engine over a handler registry.
// Without options it uses the structural type oracle, the expression
// refiner and a no-op logger.
func NewEngine(reg *registry.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: reg,
		oracle:   types.Oracle{},
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.refiner == nil {
		e.refiner = expr.NewRefiner(e.oracle)
	}
	return e
}

// Registry returns the handler registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Oracle returns the type oracle in use.
func (e *Engine) Oracle() domain.Oracle { return e.oracle }

// Policy returns the input-update policy.
func (e *Engine) Policy() Policy { return e.policy }

func (e *Engine) filter(allow registry.Filter) registry.Filter {
	return registry.And(e.allow, allow)
}

func (e *Engine) emitResolved(ctx context.Context, t domain.Type, requested string, res Resolution) {
	if e.hooks.OnStackResolved == nil {
		return
	}
	e.hooks.OnStackResolved(ctx, &domain.ResolveEvent{
		EventBase:   domain.EventBase{Timestamp: e.now(), Type: domain.EventStackResolved},
		InputType:   typeString(t),
		RequestedID: requested,
		ChosenID:    res.ChosenID,
		Stack:       res.IDs(),
	})
}

func (e *Engine) emitTransition(ctx context.Context, kind domain.TransitionKind, rule domain.Rule, from, to string, started time.Time) {
	e.logger.Debug("node transition", "kind", kind, "rule", rule, "from", from, "to", to)
	if e.hooks.OnTransition == nil {
		return
	}
	e.hooks.OnTransition(ctx, &domain.TransitionEvent{
		EventBase:   domain.EventBase{Timestamp: e.now(), Type: domain.EventTransition},
		Kind:        kind,
		Rule:        rule,
		FromHandler: from,
		ToHandler:   to,
		Duration:    e.now().Sub(started),
	})
}

func (e *Engine) emitInitializerFailure(ctx context.Context, err *domain.InitializerError) {
	e.logger.Warn("handler config initialization failed", "handler", err.HandlerID, "error", err.Err)
	if e.hooks.OnInitializerFailure == nil {
		return
	}
	e.hooks.OnInitializerFailure(ctx, &domain.InitializerEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventInitializerFailed},
		HandlerID: err.HandlerID,
		Err:       err.Err,
	})
}

func typeString(t domain.Type) string {
	if t == nil {
		return domain.VoidType.String()
	}
	return t.String()
}
