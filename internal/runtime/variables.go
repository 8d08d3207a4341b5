package runtime

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
)

// NextVarName returns the first letter a..z not bound in frame, or a
// generated unique identifier when all of them are taken.
func NextVarName(frame domain.Frame) string {
	for c := 'a'; c <= 'z'; c++ {
		if name := string(c); !frame.Has(name) {
			return name
		}
	}
	return "v_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidVarName reports whether name can be bound by a node.
func ValidVarName(name string) bool {
	return expr.IsIdent(name) && name != domain.InputVar
}

// AddVariable binds value to a fresh name. visible is the frame visible at
// the node; the name is unused in it and in the node's own bindings.
func (e *Engine) AddVariable(ctx context.Context, node domain.ConfigNode, value domain.Expression, visible domain.Frame) (domain.ConfigNode, string) {
	started := e.now()
	node = domain.Normalize(node)
	name := NextVarName(domain.ChildFrame(visible, node))
	if value == nil {
		value = domain.Void()
	}
	next := node
	next.Vars = node.Vars.With(name, value)
	e.emitTransition(ctx, domain.TransitionAddVariable, "", node.HandlerID, node.HandlerID, started)
	return next, name
}

// RenameVariable renames a binding in place. References to it from the
// node's later bindings are rewritten too.
func (e *Engine) RenameVariable(ctx context.Context, node domain.ConfigNode, oldName, newName string, visible domain.Frame) (domain.ConfigNode, error) {
	started := e.now()
	node = domain.Normalize(node)
	if !node.Vars.Has(oldName) {
		return node, &domain.UnknownVariableError{Name: oldName}
	}
	if oldName == newName {
		return node, nil
	}
	if !ValidVarName(newName) {
		return node, &VarNameError{Name: newName, Err: domain.ErrInvalidVarName}
	}
	if domain.ChildFrame(visible, node).Has(newName) {
		return node, &VarNameError{Name: newName, Err: domain.ErrVarNameTaken}
	}

	vars := node.Vars.Rename(oldName, newName)
	seen := false
	for _, b := range vars.Bindings() {
		if b.Name == newName {
			seen = true
			continue
		}
		if seen {
			vars = vars.With(b.Name, expr.Rename(b.Expr, oldName, newName))
		}
	}

	next := node
	next.Vars = vars
	e.emitTransition(ctx, domain.TransitionRenameVariable, "", node.HandlerID, node.HandlerID, started)
	return next, nil
}

// RemoveVariable drops a binding.
func (e *Engine) RemoveVariable(ctx context.Context, node domain.ConfigNode, name string) (domain.ConfigNode, error) {
	started := e.now()
	node = domain.Normalize(node)
	if !node.Vars.Has(name) {
		return node, &domain.UnknownVariableError{Name: name}
	}
	next := node
	next.Vars = node.Vars.Without(name)
	e.emitTransition(ctx, domain.TransitionRemoveVariable, "", node.HandlerID, node.HandlerID, started)
	return next, nil
}

// UpdateInputFunction sets the input from fn. When fn refers to the
// variable "input" it is applied to the node's current input first.
func (e *Engine) UpdateInputFunction(ctx context.Context, node domain.ConfigNode, fn domain.Expression, frame domain.Frame) (domain.ConfigNode, domain.Rule, error) {
	node = domain.Normalize(node)
	if expr.ReferencesVar(fn, domain.InputVar) {
		fn = expr.Substitute(fn, map[string]domain.Expression{domain.InputVar: node.Input})
	}
	return e.UpdateInput(ctx, node, fn, frame)
}

// MutateVariableRoot swaps the root of the chain bound to name, as when the
// head of "x.a.b" is replaced. Mutating "input" updates the node input.
func (e *Engine) MutateVariableRoot(ctx context.Context, node domain.ConfigNode, name string, newRoot domain.Expression, frame domain.Frame) (domain.ConfigNode, error) {
	node = domain.Normalize(node)
	if name == domain.InputVar {
		next, _, err := e.UpdateInput(ctx, node, expr.ReplaceRoot(node.Input, newRoot), frame)
		return next, err
	}
	bound, ok := node.Vars.Get(name)
	if !ok {
		return node, &domain.UnknownVariableError{Name: name}
	}
	return e.AssignVariable(ctx, node, name, expr.ReplaceRoot(bound, newRoot))
}
