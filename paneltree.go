package paneltree

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/paneltree/internal/logging"
	"github.com/aretw0/paneltree/internal/runtime"
	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
	"github.com/aretw0/paneltree/pkg/handlers"
	"github.com/aretw0/paneltree/pkg/registry"
	"github.com/aretw0/paneltree/pkg/types"
)

type (
	// Resolution is the outcome of a stack resolution.
	Resolution = runtime.Resolution
	// StackOption is one entry of the "switch renderer" menu.
	StackOption = runtime.StackOption
	// ConfigChange computes a partial config from the current one.
	ConfigChange = runtime.ConfigChange
	// Policy holds the input-update conventions of a caller.
	Policy = runtime.Policy
)

// Engine is the high-level entry point of the library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime     *runtime.Engine
	registry    *registry.Registry
	oracle      domain.Oracle
	refiner     domain.Refiner
	codec       domain.Codec
	catalogPath string
	allowIDs    []string
	subStack    bool
	pin         string
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithRegistry replaces the built-in handler registry.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithCatalog registers the handlers of a YAML catalog file on top of the registry.
func WithCatalog(path string) Option {
	return func(e *Engine) {
		e.catalogPath = path
	}
}

// WithOracle sets the type compatibility oracle.
func WithOracle(o domain.Oracle) Option {
	return func(e *Engine) {
		e.oracle = o
	}
}

// WithRefiner sets the expression refinement service.
func WithRefiner(r domain.Refiner) Option {
	return func(e *Engine) {
		e.refiner = r
	}
}

// WithCodec sets the expression codec used for plain-data conversion.
func WithCodec(c domain.Codec) Option {
	return func(e *Engine) {
		e.codec = c
	}
}

// WithAllowList restricts every stack to the given handler ids.
func WithAllowList(ids ...string) Option {
	return func(e *Engine) {
		e.allowIDs = append(e.allowIDs, ids...)
	}
}

// WithSubStackFilter limits every stack, child stacks included, to
// top-level handler ids and to the projection and maybe adapters.
// Namespaced catalog ids such as "run.Table" are hidden.
func WithSubStackFilter() Option {
	return func(e *Engine) {
		e.subStack = true
	}
}

// WithPinFallback makes nodes already on handlerID keep it across input
// updates while an allow-list is configured.
func WithPinFallback(handlerID string) Option {
	return func(e *Engine) {
		e.pin = handlerID
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes an Engine. Without options it resolves against the
// standard handlers and the structural type oracle.
// The registry is frozen once the engine is built.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.oracle == nil {
		eng.oracle = types.Oracle{}
	}
	if eng.refiner == nil {
		eng.refiner = expr.NewRefiner(eng.oracle)
	}
	if eng.codec == nil {
		eng.codec = expr.Codec{}
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.registry == nil {
		eng.registry = handlers.NewStandardRegistry(eng.oracle)
	}

	if eng.catalogPath != "" {
		cat, err := handlers.LoadCatalogFile(eng.catalogPath)
		if err != nil {
			return nil, err
		}
		if err := cat.Register(eng.registry, eng.oracle); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", eng.catalogPath, err)
		}
		eng.logger.Debug("catalog loaded", "path", eng.catalogPath, "handlers", len(cat.Handlers))
	}
	eng.registry.Freeze()

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithOracle(eng.oracle),
		runtime.WithRefiner(eng.refiner),
		runtime.WithPolicy(Policy{PinFallback: eng.pin, AllowListActive: len(eng.allowIDs) > 0}),
	}
	var allow []registry.Filter
	if len(eng.allowIDs) > 0 {
		allow = append(allow, registry.AllowIDs(eng.allowIDs...))
	}
	if eng.subStack {
		allow = append(allow, registry.SubStackFilter())
	}
	if f := registry.And(allow...); f != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithAllowFilter(f))
	}
	eng.runtime = runtime.NewEngine(eng.registry, runtimeOpts...)

	return eng, nil
}

// Registry returns the (frozen) handler registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Oracle returns the type oracle in use.
func (e *Engine) Oracle() domain.Oracle { return e.oracle }

// Codec returns the expression codec in use.
func (e *Engine) Codec() domain.Codec { return e.codec }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Parse reads an expression and refines it against frame.
func (e *Engine) Parse(ctx context.Context, src string, frame domain.Frame) (domain.Expression, error) {
	ex, err := expr.Parse(src)
	if err != nil {
		return nil, err
	}
	return e.refiner.Refine(ctx, ex, frame)
}

// ResolveStack computes the handlers able to render t, best first, and picks one.
// allow may be nil.
func (e *Engine) ResolveStack(ctx context.Context, t domain.Type, requestedID string, allow registry.Filter) Resolution {
	return e.runtime.ResolveStack(ctx, t, requestedID, allow)
}

// InitializeHandler produces the initial config of a handler for input.
func (e *Engine) InitializeHandler(ctx context.Context, handlerID string, input domain.Expression, frame domain.Frame) (any, error) {
	return e.runtime.InitializeHandler(ctx, handlerID, input, frame)
}

// InitializeNode builds a resolved node for input.
func (e *Engine) InitializeNode(ctx context.Context, input domain.Expression, requestedID string, allow registry.Filter, frame domain.Frame) (domain.ConfigNode, error) {
	return e.runtime.InitializeNode(ctx, input, requestedID, allow, frame)
}

// UpdateInput folds a new input into node and reports which rule applied.
func (e *Engine) UpdateInput(ctx context.Context, node domain.ConfigNode, input domain.Expression, frame domain.Frame) (domain.ConfigNode, domain.Rule, error) {
	return e.runtime.UpdateInput(ctx, node, input, frame)
}

// SwitchHandler moves node to another handler of its stack.
func (e *Engine) SwitchHandler(ctx context.Context, node domain.ConfigNode, handlerID string, frame domain.Frame) (domain.ConfigNode, error) {
	return e.runtime.SwitchHandler(ctx, node, handlerID, frame)
}

// AssignVariable rebinds an existing variable of node.
func (e *Engine) AssignVariable(ctx context.Context, node domain.ConfigNode, name string, value domain.Expression) (domain.ConfigNode, error) {
	return e.runtime.AssignVariable(ctx, node, name, value)
}

// MergeConfig overlays change on the node config under handlerID.
func (e *Engine) MergeConfig(ctx context.Context, node domain.ConfigNode, handlerID string, change ConfigChange) domain.ConfigNode {
	return e.runtime.MergeConfig(ctx, node, handlerID, change)
}

// AddVariable binds value under a fresh name and returns that name.
func (e *Engine) AddVariable(ctx context.Context, node domain.ConfigNode, value domain.Expression, visible domain.Frame) (domain.ConfigNode, string) {
	return e.runtime.AddVariable(ctx, node, value, visible)
}

// RenameVariable renames a variable of node.
func (e *Engine) RenameVariable(ctx context.Context, node domain.ConfigNode, oldName, newName string, visible domain.Frame) (domain.ConfigNode, error) {
	return e.runtime.RenameVariable(ctx, node, oldName, newName, visible)
}

// RemoveVariable drops a variable of node.
func (e *Engine) RemoveVariable(ctx context.Context, node domain.ConfigNode, name string) (domain.ConfigNode, error) {
	return e.runtime.RemoveVariable(ctx, node, name)
}

// UpdateInputFunction applies fn to the current input and folds the result.
func (e *Engine) UpdateInputFunction(ctx context.Context, node domain.ConfigNode, fn domain.Expression, frame domain.Frame) (domain.ConfigNode, domain.Rule, error) {
	return e.runtime.UpdateInputFunction(ctx, node, fn, frame)
}

// MutateVariableRoot replaces the root of the chain bound to a variable.
func (e *Engine) MutateVariableRoot(ctx context.Context, node domain.ConfigNode, name string, newRoot domain.Expression, frame domain.Frame) (domain.ConfigNode, error) {
	return e.runtime.MutateVariableRoot(ctx, node, name, newRoot, frame)
}

// ConfigureChild expands the child at key and moves it off the Expression
// fallback onto the best other handler of its stack.
func (e *Engine) ConfigureChild(ctx context.Context, parent domain.ConfigNode, key string, frame domain.Frame) (domain.ConfigNode, error) {
	return e.runtime.ConfigureChild(ctx, parent, key, frame, handlers.Expression)
}

// RemoveChild drops the child at key.
func (e *Engine) RemoveChild(ctx context.Context, parent domain.ConfigNode, key string) (domain.ConfigNode, error) {
	return e.runtime.RemoveChild(ctx, parent, key)
}

// Normalize expands the shorthand forms of a node.
func Normalize(raw any) domain.ConfigNode {
	return domain.Normalize(raw)
}

// NextVarName returns the first unused short name for frame.
func NextVarName(frame domain.Frame) string {
	return runtime.NextVarName(frame)
}
