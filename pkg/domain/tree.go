package domain

import (
	"fmt"
	"sort"
)

// Children returns the child map stored in a node's config, if any.
// Child entries may be shorthand (nil, bare expressions) or full nodes.
func (n ConfigNode) Children() map[string]any {
	cfg, ok := n.Config.(map[string]any)
	if !ok {
		return nil
	}
	children, _ := cfg[KeyChildren].(map[string]any)
	return children
}

// ChildKeys returns the child keys in sorted order.
func (n ConfigNode) ChildKeys() []string {
	children := n.Children()
	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Child returns the normalized child at key.
func (n ConfigNode) Child(key string) (ConfigNode, bool) {
	children := n.Children()
	raw, ok := children[key]
	if !ok {
		return ConfigNode{}, false
	}
	return Normalize(raw), true
}

// WithChild returns a copy of n whose child map has key set to child.
// The config map and the child map are copied; n is untouched.
func (n ConfigNode) WithChild(key string, child any) ConfigNode {
	cfg := copyMap(configMap(n.Config))
	children := copyMap(n.Children())
	children[key] = child
	cfg[KeyChildren] = children
	n.Config = cfg
	return n
}

// WithoutChild returns a copy of n without the child at key.
func (n ConfigNode) WithoutChild(key string) ConfigNode {
	if _, ok := n.Children()[key]; !ok {
		return n
	}
	cfg := copyMap(configMap(n.Config))
	children := copyMap(n.Children())
	delete(children, key)
	cfg[KeyChildren] = children
	n.Config = cfg
	return n
}

// EnsureFull returns a copy of the child map where the entry at key is
// expanded to a full node. Missing entries become the default node.
func EnsureFull(children map[string]any, key string) map[string]any {
	out := copyMap(children)
	if !IsFull(out[key]) {
		out[key] = Normalize(out[key])
	}
	return out
}

func configMap(cfg any) map[string]any {
	m, _ := cfg.(map[string]any)
	return m
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// At returns the node addressed by path, starting at root.
func At(root ConfigNode, path Path) (ConfigNode, error) {
	cur := Normalize(root)
	for i, seg := range path {
		next, ok := cur.Child(seg)
		if !ok {
			return ConfigNode{}, fmt.Errorf("%w: %s", ErrPathNotFound, path[:i+1])
		}
		cur = next
	}
	return cur, nil
}

// ReplaceAt returns a new root where the node at path is replaced by node.
// Only the nodes along the path are copied; siblings are shared.
func ReplaceAt(root ConfigNode, path Path, node ConfigNode) (ConfigNode, error) {
	if len(path) == 0 {
		return node, nil
	}
	parent := Normalize(root)
	child, ok := parent.Child(path[0])
	if !ok {
		return ConfigNode{}, fmt.Errorf("%w: %s", ErrPathNotFound, path[:1])
	}
	replaced, err := ReplaceAt(child, path[1:], node)
	if err != nil {
		return ConfigNode{}, err
	}
	return parent.WithChild(path[0], replaced), nil
}

// ChildFrame returns the frame visible to the descendants of n, given the
// frame visible to n itself.
func ChildFrame(visible Frame, n ConfigNode) Frame {
	n = Normalize(n)
	return visible.Extend(n.Vars).With(InputVar, n.Input)
}

// VisibleFrame returns the frame visible to the node at path (excluding the
// node's own vars and input).
func VisibleFrame(root ConfigNode, path Path) (Frame, error) {
	frame := Frame{}
	cur := Normalize(root)
	for i, seg := range path {
		frame = ChildFrame(frame, cur)
		next, ok := cur.Child(seg)
		if !ok {
			return Frame{}, fmt.Errorf("%w: %s", ErrPathNotFound, path[:i+1])
		}
		cur = next
	}
	return frame, nil
}

// Walk visits every node depth-first in child-key order.
// Returning false from fn stops descending into that node's children.
func Walk(root ConfigNode, fn func(path Path, node ConfigNode) bool) {
	walk(Path{}, Normalize(root), fn)
}

func walk(path Path, n ConfigNode, fn func(Path, ConfigNode) bool) {
	if !fn(path, n) {
		return
	}
	for _, k := range n.ChildKeys() {
		child, _ := n.Child(k)
		walk(path.Child(k), child, fn)
	}
}
