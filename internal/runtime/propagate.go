package runtime

import (
	"context"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/registry"
)

// UpdateInput folds a new input expression into node. frame is the frame
// visible at the node. The first matching rule wins:
//
//  1. same serialized expression: nothing changes
//  2. new type assignable to the old one: handler and config are kept
//  3. current handler is absorbing: handler and config are kept
//  4. node is on the pinned fallback under an active allow-list: handler kept, config cleared
//  5. otherwise the handler is resolved again from scratch
//
// Unresolved nodes skip rules 2 to 4. On error node is returned unchanged.
func (e *Engine) UpdateInput(ctx context.Context, node domain.ConfigNode, newExpr domain.Expression, frame domain.Frame) (domain.ConfigNode, domain.Rule, error) {
	started := e.now()
	node = domain.Normalize(node)

	if exprString(newExpr) == node.Input.String() {
		e.emitTransition(ctx, domain.TransitionInput, domain.RuleUnchanged, node.HandlerID, node.HandlerID, started)
		return node, domain.RuleUnchanged, nil
	}

	refined, err := e.refine(ctx, newExpr, frame)
	if err != nil {
		return node, "", err
	}

	next := node
	next.Input = refined
	rule := domain.RuleReinitialized

	switch {
	case node.Resolved() && e.oracle.IsAssignable(refined.Type(), node.Input.Type()):
		rule = domain.RuleAssignable
	case node.Resolved() && e.isAbsorbing(node.HandlerID):
		rule = domain.RuleAbsorbing
	case node.Resolved() && e.policy.pins(node.HandlerID):
		rule = domain.RulePinned
		next.Config = nil
	default:
		fresh, err := e.initializeRefined(ctx, refined, "", nil, frame)
		if err != nil {
			return node, "", err
		}
		next.HandlerID = fresh.HandlerID
		next.Config = fresh.Config
	}

	e.emitTransition(ctx, domain.TransitionInput, rule, node.HandlerID, next.HandlerID, started)
	return domain.Normalize(next), rule, nil
}

func (e *Engine) isAbsorbing(handlerID string) bool {
	d, err := e.registry.Get(handlerID)
	return err == nil && registry.IsAbsorbing(d)
}

// SwitchHandler moves node to handler newID and initializes its config.
// Input and variables are untouched. When newID cannot render the input the
// best handler of the stack is used instead.
func (e *Engine) SwitchHandler(ctx context.Context, node domain.ConfigNode, newID string, frame domain.Frame) (domain.ConfigNode, error) {
	started := e.now()
	node = domain.Normalize(node)
	if _, err := e.registry.Get(newID); err != nil {
		return node, err
	}

	res := e.ResolveStack(ctx, node.Input.Type(), newID, nil)
	next := node
	next.HandlerID = res.ChosenID
	next.Config = nil
	if res.ChosenID != "" {
		cfg, err := e.initializeConfig(ctx, res.ChosenID, node.Input, frame)
		if err != nil {
			return node, err
		}
		next.Config = cfg
	}

	e.emitTransition(ctx, domain.TransitionHandler, "", node.HandlerID, next.HandlerID, started)
	return domain.Normalize(next), nil
}

// AssignVariable replaces the expression bound to an existing variable.
// Unknown names fail with *domain.UnknownVariableError.
func (e *Engine) AssignVariable(ctx context.Context, node domain.ConfigNode, name string, value domain.Expression) (domain.ConfigNode, error) {
	started := e.now()
	node = domain.Normalize(node)
	if !node.Vars.Has(name) {
		return node, &domain.UnknownVariableError{Name: name}
	}
	next := node
	next.Vars = node.Vars.With(name, value)
	e.emitTransition(ctx, domain.TransitionVariable, "", node.HandlerID, next.HandlerID, started)
	return next, nil
}

// ConfigChange computes a partial config from the current one.
type ConfigChange func(old map[string]any) map[string]any

// MergeConfig overlays change(old) on the node config and stamps handlerID
// as the node handler, so a change computed before a handler switch still
// lands on the handler the caller is looking at.
func (e *Engine) MergeConfig(ctx context.Context, node domain.ConfigNode, handlerID string, change ConfigChange) domain.ConfigNode {
	started := e.now()
	node = domain.Normalize(node)

	old := configAsMap(node.Config)
	merged := configAsMap(node.Config)
	if change != nil {
		for k, v := range change(old) {
			merged[k] = v
		}
	}

	next := node
	next.HandlerID = handlerID
	next.Config = merged
	e.emitTransition(ctx, domain.TransitionMerge, "", node.HandlerID, handlerID, started)
	return domain.Normalize(next)
}

// configAsMap returns a fresh map view of a handler config.
// Struct configs are decoded field by field.
func configAsMap(cfg any) map[string]any {
	out := map[string]any{}
	switch c := cfg.(type) {
	case nil:
	case map[string]any:
		for k, v := range c {
			out[k] = v
		}
	default:
		var decoded map[string]any
		if err := mapstructure.Decode(c, &decoded); err == nil {
			for k, v := range decoded {
				out[k] = v
			}
		}
	}
	return out
}

func exprString(e domain.Expression) string {
	if e == nil {
		return ""
	}
	return e.String()
}
