package expr

import (
	"fmt"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/types"
)

// Plain-data node types.
const (
	NodeConst  = "const"
	NodeVar    = "var"
	NodeOutput = "output"
)

// Codec converts expressions to and from plain maps:
//
//	{"nodeType": "const", "type": "number", "val": 3}
//	{"nodeType": "var", "type": "string", "varName": "x"}
//	{"nodeType": "output", "type": "number", "fromOp": {"name": "count", "inputs": [...]}}
type Codec struct{}

var _ domain.Codec = Codec{}

// EncodeExpr implements domain.Codec.
func (c Codec) EncodeExpr(e domain.Expression) (map[string]any, error) {
	if domain.IsVoid(e) {
		return domain.EncodeExpr(nil, e)
	}
	switch n := e.(type) {
	case *Const:
		return map[string]any{domain.KeyNodeType: NodeConst, "type": n.typ.String(), "val": n.val}, nil
	case *Var:
		return map[string]any{domain.KeyNodeType: NodeVar, "type": n.typ.String(), "varName": n.name}, nil
	case *Call:
		inputs := make([]any, 0, len(n.args))
		for _, a := range n.args {
			m, err := c.EncodeExpr(a)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, m)
		}
		return map[string]any{
			domain.KeyNodeType: NodeOutput,
			"type":             n.typ.String(),
			"fromOp":           map[string]any{"name": n.op, "inputs": inputs},
		}, nil
	default:
		return nil, fmt.Errorf("encode expression: unsupported %T", e)
	}
}

// DecodeExpr implements domain.Codec.
func (c Codec) DecodeExpr(data map[string]any) (domain.Expression, error) {
	kind, _ := data[domain.KeyNodeType].(string)
	if kind == "void" || data == nil {
		return domain.Void(), nil
	}
	typ, err := decodeType(data["type"])
	if err != nil {
		return nil, err
	}
	switch kind {
	case NodeConst:
		return NewConst(data["val"], typ), nil
	case NodeVar:
		name, _ := data["varName"].(string)
		if name == "" {
			return nil, fmt.Errorf("decode expression: var without name")
		}
		return NewVar(name, typ), nil
	case NodeOutput:
		from, ok := data["fromOp"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("decode expression: output without fromOp")
		}
		op, _ := from["name"].(string)
		if op == "" {
			return nil, fmt.Errorf("decode expression: op without name")
		}
		raw, _ := from["inputs"].([]any)
		args := make([]domain.Expression, 0, len(raw))
		for i, in := range raw {
			m, ok := in.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("decode expression: input %d of %s is not an expression", i, op)
			}
			a, err := c.DecodeExpr(m)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		call := NewCall(op, args...)
		if typ != nil {
			return call.withType(typ), nil
		}
		return call, nil
	default:
		return nil, fmt.Errorf("decode expression: unknown nodeType %q", kind)
	}
}

func decodeType(v any) (domain.Type, error) {
	s, _ := v.(string)
	if s == "" {
		return nil, nil
	}
	t, err := types.ParseType(s)
	if err != nil {
		return nil, fmt.Errorf("decode expression: %w", err)
	}
	return t, nil
}
