package domain

import (
	"reflect"
)

// NodeDiff represents the changes between two snapshots of a node.
// It is designed to be serialized to JSON for partial updates on the client.
type NodeDiff struct {
	// HandlerID is set when the handler changed.
	HandlerID *string `json:"id,omitempty"`

	// Input holds the new serialized input expression, if it changed.
	Input *string `json:"input_node,omitempty"`

	// Vars contains only changed, added or deleted bindings (serialized).
	// For deletions, the key is present with a nil value.
	Vars map[string]*string `json:"vars,omitempty"`

	// ConfigChanged is true when the handler config differs.
	ConfigChanged bool `json:"config_changed,omitempty"`
}

// Diff calculates the difference between oldNode and newNode.
// Returns nil when nothing changed.
func Diff(oldNode, newNode ConfigNode) *NodeDiff {
	oldNode, newNode = Normalize(oldNode), Normalize(newNode)
	diff := &NodeDiff{}

	if oldNode.HandlerID != newNode.HandlerID {
		id := newNode.HandlerID
		diff.HandlerID = &id
	}
	if exprString(oldNode.Input) != exprString(newNode.Input) {
		in := exprString(newNode.Input)
		diff.Input = &in
	}
	diff.Vars = diffVars(oldNode.Vars, newNode.Vars)
	diff.ConfigChanged = !configEqual(oldNode.Config, newNode.Config)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffVars(old, new Frame) map[string]*string {
	delta := make(map[string]*string)

	for _, b := range new.Bindings() {
		prev, ok := old.Get(b.Name)
		if !ok || exprString(prev) != exprString(b.Expr) {
			s := exprString(b.Expr)
			delta[b.Name] = &s
		}
	}
	for _, name := range old.Names() {
		if !new.Has(name) {
			delta[name] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// configEqual compares configs, treating nested expressions by serialized form.
func configEqual(a, b any) bool {
	switch av := a.(type) {
	case Expression:
		bv, ok := b.(Expression)
		return ok && exprString(av) == exprString(bv)
	case ConfigNode:
		bv, ok := b.(ConfigNode)
		return ok && Diff(av, bv) == nil
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, exists := bv[k]
			if !exists || !configEqual(v, other) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !configEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		if x, ok := toFloat(a); ok {
			y, ok := toFloat(b)
			return ok && x == y
		}
		return reflect.DeepEqual(a, b)
	}
}

// toFloat widens numbers so that 2 and 2.0 compare equal after a JSON round trip.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *NodeDiff) IsEmpty() bool {
	return d.HandlerID == nil &&
		d.Input == nil &&
		len(d.Vars) == 0 &&
		!d.ConfigChanged
}
