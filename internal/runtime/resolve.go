package runtime

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/registry"
)

// Resolution is the outcome of a stack resolution.
// An empty ChosenID means no handler can render the type.
type Resolution struct {
	Stack    []registry.Descriptor
	ChosenID string
}

// StackOption is one entry of the "switch renderer" menu.
type StackOption struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Active      bool   `json:"active"`
}

// IDs returns the stack handler ids in order.
func (r Resolution) IDs() []string {
	ids := make([]string, len(r.Stack))
	for i, d := range r.Stack {
		ids[i] = d.ID()
	}
	return ids
}

// Options returns the menu entries of the stack.
func (r Resolution) Options() []StackOption {
	out := make([]StackOption, len(r.Stack))
	for i, d := range r.Stack {
		out[i] = StackOption{ID: d.ID(), DisplayName: registry.DisplayName(d), Active: d.ID() == r.ChosenID}
	}
	return out
}

// FirstNonFallback returns the first stack id that is not one of fallbacks,
// or "" when the stack only holds fallbacks.
func (r Resolution) FirstNonFallback(fallbacks ...string) string {
	skip := make(map[string]bool, len(fallbacks))
	for _, f := range fallbacks {
		skip[f] = true
	}
	for _, d := range r.Stack {
		if !skip[d.ID()] {
			return d.ID()
		}
	}
	return ""
}

// Contains reports whether id is in the stack.
func (r Resolution) Contains(id string) bool {
	for _, d := range r.Stack {
		if d.ID() == id {
			return true
		}
	}
	return false
}

// ResolveStack computes the handlers able to render t, best first, and picks one.
// The engine-wide allow filter and allow are both applied.
// The result depends only on the registry and the arguments.
func (e *Engine) ResolveStack(ctx context.Context, t domain.Type, requestedID string, allow registry.Filter) Resolution {
	filter := e.filter(allow)

	var stack []registry.Descriptor
	for _, d := range e.registry.All() {
		if d.Matches(t) && filter.Allows(d.ID()) {
			stack = append(stack, d)
		}
	}
	// All() is in registration order, so a stable sort keeps it for ties.
	sort.SliceStable(stack, func(i, j int) bool {
		return stack[i].Specificity() > stack[j].Specificity()
	})

	res := Resolution{Stack: stack}
	switch {
	case requestedID != "" && res.Contains(requestedID):
		res.ChosenID = requestedID
	case len(stack) > 0:
		res.ChosenID = stack[0].ID()
	}

	e.emitResolved(ctx, t, requestedID, res)
	return res
}

// InitializeHandler builds the initial config of a handler for input.
// Unknown ids fail with domain.ErrUnknownHandler. An initializer failure is
// returned as *domain.InitializerError; callers that recover from it use a
// nil config.
func (e *Engine) InitializeHandler(ctx context.Context, handlerID string, input domain.Expression, frame domain.Frame) (any, error) {
	d, err := e.registry.Get(handlerID)
	if err != nil {
		return nil, err
	}
	cfg, err := d.Initialize(ctx, input, frame)
	if err != nil {
		return nil, &domain.InitializerError{HandlerID: handlerID, Err: err}
	}
	return cfg, nil
}

// InitializeNode refines input against frame, resolves its stack and
// initializes the chosen handler. The returned node has no variables.
//
// When no handler can render the input the canonical unresolved node is
// returned. A refinement failure is returned as an error. An initializer
// failure is recovered: the node keeps the handler with a nil config.
func (e *Engine) InitializeNode(ctx context.Context, input domain.Expression, requestedID string, allow registry.Filter, frame domain.Frame) (domain.ConfigNode, error) {
	refined, err := e.refine(ctx, input, frame)
	if err != nil {
		return domain.ConfigNode{}, err
	}
	return e.initializeRefined(ctx, refined, requestedID, allow, frame)
}

func (e *Engine) refine(ctx context.Context, input domain.Expression, frame domain.Frame) (domain.Expression, error) {
	if domain.IsVoid(input) {
		return domain.Void(), nil
	}
	refined, err := e.refiner.Refine(ctx, input, frame)
	if err != nil {
		return nil, fmt.Errorf("refine %q: %w", input.String(), err)
	}
	return refined, nil
}

func (e *Engine) initializeRefined(ctx context.Context, input domain.Expression, requestedID string, allow registry.Filter, frame domain.Frame) (domain.ConfigNode, error) {
	res := e.ResolveStack(ctx, input.Type(), requestedID, allow)
	if res.ChosenID == "" {
		return domain.DefaultNode(), nil
	}

	cfg, err := e.initializeConfig(ctx, res.ChosenID, input, frame)
	if err != nil {
		return domain.ConfigNode{}, err
	}
	return domain.ConfigNode{Input: input, HandlerID: res.ChosenID, Config: cfg}, nil
}

// initializeConfig runs the initializer and recovers from its failure.
// Context cancellation is not an initializer failure and is returned.
func (e *Engine) initializeConfig(ctx context.Context, handlerID string, input domain.Expression, frame domain.Frame) (any, error) {
	cfg, err := e.InitializeHandler(ctx, handlerID, input, frame)
	if err == nil {
		return cfg, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	var initErr *domain.InitializerError
	if errors.As(err, &initErr) {
		e.emitInitializerFailure(ctx, initErr)
		return nil, nil
	}
	return nil, err
}
