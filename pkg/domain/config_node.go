package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Plain-data keys of a ConfigNode.
const (
	KeyVars     = "vars"
	KeyInput    = "input_node"
	KeyID       = "id"
	KeyConfig   = "config"
	KeyChildren = "children"
)

// ConfigNode is one node of the composition tree.
//
// A node with an empty HandlerID is unresolved and carries no Config.
// ConfigNode values are never mutated after construction; every transition
// returns a new value.
type ConfigNode struct {
	// Vars are the bindings this node adds for its descendants.
	Vars Frame
	// Input is the node's input expression (Void when absent).
	Input Expression
	// HandlerID is the chosen handler, or "" when unresolved.
	HandlerID string
	// Config is the handler-owned configuration blob.
	Config any
}

// DefaultNode returns the canonical unresolved node.
func DefaultNode() ConfigNode {
	return ConfigNode{Input: Void()}
}

// Resolved reports whether a handler has been chosen.
func (n ConfigNode) Resolved() bool { return n.HandlerID != "" }

// Normalize expands the shorthand forms of a node into a full ConfigNode.
//
// Accepted inputs are nil, an Expression (bare input), a ConfigNode and a
// *ConfigNode. Anything else yields the default node. Normalize is pure and
// idempotent: Normalize(Normalize(x)) equals Normalize(x).
func Normalize(raw any) ConfigNode {
	switch v := raw.(type) {
	case nil:
		return DefaultNode()
	case ConfigNode:
		return normalizeFull(v)
	case *ConfigNode:
		if v == nil {
			return DefaultNode()
		}
		return normalizeFull(*v)
	case Expression:
		n := DefaultNode()
		if !IsVoid(v) {
			n.Input = v
		}
		return n
	default:
		return DefaultNode()
	}
}

func normalizeFull(n ConfigNode) ConfigNode {
	if n.Input == nil {
		n.Input = Void()
	}
	if n.HandlerID == "" {
		n.Config = nil
	}
	return n
}

// IsFull reports whether raw is already a full node (not a shorthand).
func IsFull(raw any) bool {
	switch v := raw.(type) {
	case ConfigNode:
		return true
	case *ConfigNode:
		return v != nil
	default:
		return false
	}
}

// ToPlain converts the node into plain data (maps, slices, scalars).
// Nested nodes and expressions found in Config are converted recursively.
func (n ConfigNode) ToPlain(c Codec) (map[string]any, error) {
	n = normalizeFull(n)

	vars := make([]any, 0, n.Vars.Len())
	for _, b := range n.Vars.Bindings() {
		e, err := EncodeExpr(c, b.Expr)
		if err != nil {
			return nil, fmt.Errorf("var %s: %w", b.Name, err)
		}
		vars = append(vars, map[string]any{"name": b.Name, "expr": e})
	}

	input, err := EncodeExpr(c, n.Input)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}

	cfg, err := plainValue(c, n.Config)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return map[string]any{
		KeyVars:   vars,
		KeyInput:  input,
		KeyID:     n.HandlerID,
		KeyConfig: cfg,
	}, nil
}

func plainValue(c Codec, v any) (any, error) {
	switch t := v.(type) {
	case ConfigNode:
		return t.ToPlain(c)
	case *ConfigNode:
		if t == nil {
			return nil, nil
		}
		return t.ToPlain(c)
	case Expression:
		return EncodeExpr(c, t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			p, err := plainValue(c, item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = p
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			p, err := plainValue(c, item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = p
		}
		return out, nil
	default:
		return v, nil
	}
}

// plainNode mirrors the plain-data layout for mapstructure decoding.
type plainNode struct {
	Vars   []plainBinding `mapstructure:"vars"`
	Input  map[string]any `mapstructure:"input_node"`
	ID     string         `mapstructure:"id"`
	Config any            `mapstructure:"config"`
}

type plainBinding struct {
	Name string         `mapstructure:"name"`
	Expr map[string]any `mapstructure:"expr"`
}

// isPlainNode mirrors the shape test used for full child configs.
func isPlainNode(m map[string]any) bool {
	_, hasID := m[KeyID]
	_, hasVars := m[KeyVars]
	_, hasInput := m[KeyInput]
	return hasID && hasVars && hasInput
}

// FromPlain decodes a node from plain data. It accepts the shorthand forms
// as well: nil and a bare plain expression.
func FromPlain(data any, c Codec) (ConfigNode, error) {
	if data == nil {
		return DefaultNode(), nil
	}
	m, ok := data.(map[string]any)
	if !ok {
		return ConfigNode{}, fmt.Errorf("expected object, got %T", data)
	}
	if IsExprPlain(m) {
		e, err := DecodeExpr(c, m)
		if err != nil {
			return ConfigNode{}, err
		}
		return Normalize(e), nil
	}
	if !isPlainNode(m) {
		return ConfigNode{}, fmt.Errorf("not a config node: missing %q, %q or %q", KeyID, KeyVars, KeyInput)
	}

	var raw plainNode
	if err := mapstructure.Decode(m, &raw); err != nil {
		return ConfigNode{}, fmt.Errorf("failed to decode config node: %w", err)
	}

	n := ConfigNode{HandlerID: raw.ID}
	for _, b := range raw.Vars {
		e, err := DecodeExpr(c, b.Expr)
		if err != nil {
			return ConfigNode{}, fmt.Errorf("var %s: %w", b.Name, err)
		}
		n.Vars = n.Vars.With(b.Name, e)
	}

	input, err := DecodeExpr(c, raw.Input)
	if err != nil {
		return ConfigNode{}, fmt.Errorf("input: %w", err)
	}
	n.Input = input

	cfg, err := decodeValue(c, raw.Config)
	if err != nil {
		return ConfigNode{}, fmt.Errorf("config: %w", err)
	}
	n.Config = cfg

	return normalizeFull(n), nil
}

func decodeValue(c Codec, v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if isPlainNode(t) {
			return FromPlain(t, c)
		}
		if IsExprPlain(t) {
			return DecodeExpr(c, t)
		}
		out := make(map[string]any, len(t))
		for k, item := range t {
			d, err := decodeValue(c, item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = d
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			d, err := decodeValue(c, item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = d
		}
		return out, nil
	default:
		return v, nil
	}
}
