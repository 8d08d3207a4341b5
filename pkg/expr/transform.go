package expr

import (
	"sort"

	"github.com/aretw0/paneltree/pkg/domain"
)

// Vars returns the sorted, deduplicated names of the variables e references.
func Vars(e domain.Expression) []string {
	seen := map[string]bool{}
	collectVars(e, seen)
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func collectVars(e domain.Expression, seen map[string]bool) {
	switch n := e.(type) {
	case *Var:
		seen[n.name] = true
	case *Call:
		for _, a := range n.args {
			collectVars(a, seen)
		}
	}
}

// ReferencesVar reports whether e mentions the variable name.
func ReferencesVar(e domain.Expression, name string) bool {
	switch n := e.(type) {
	case *Var:
		return n.name == name
	case *Call:
		for _, a := range n.args {
			if ReferencesVar(a, name) {
				return true
			}
		}
	}
	return false
}

// Substitute replaces variable references by the given expressions.
// Unmapped variables and non-variable leaves are kept as they are.
func Substitute(e domain.Expression, repl map[string]domain.Expression) domain.Expression {
	switch n := e.(type) {
	case *Var:
		if r, ok := repl[n.name]; ok {
			return r
		}
		return n
	case *Call:
		args := make([]domain.Expression, len(n.args))
		changed := false
		for i, a := range n.args {
			args[i] = Substitute(a, repl)
			if args[i] != a {
				changed = true
			}
		}
		if !changed {
			return n
		}
		return n.withArgs(args)
	default:
		return e
	}
}

// Rename rewrites references to oldName as references to newName.
func Rename(e domain.Expression, oldName, newName string) domain.Expression {
	v, ok := lookupVar(e, oldName)
	if !ok {
		return e
	}
	return Substitute(e, map[string]domain.Expression{oldName: &Var{typ: v.typ, name: newName}})
}

func lookupVar(e domain.Expression, name string) (*Var, bool) {
	switch n := e.(type) {
	case *Var:
		if n.name == name {
			return n, true
		}
	case *Call:
		for _, a := range n.args {
			if v, ok := lookupVar(a, name); ok {
				return v, true
			}
		}
	}
	return nil, false
}

// Root follows receivers down to the innermost expression of a chain,
// e.g. the root of x.a.b is x.
func Root(e domain.Expression) domain.Expression {
	for {
		c, ok := e.(*Call)
		if !ok || len(c.args) == 0 {
			return e
		}
		e = c.args[0]
	}
}

// ReplaceRoot swaps the root of a receiver chain, keeping every step on top of it.
func ReplaceRoot(e domain.Expression, newRoot domain.Expression) domain.Expression {
	c, ok := e.(*Call)
	if !ok || len(c.args) == 0 {
		return newRoot
	}
	args := make([]domain.Expression, len(c.args))
	copy(args, c.args)
	args[0] = ReplaceRoot(c.args[0], newRoot)
	return c.withArgs(args)
}
