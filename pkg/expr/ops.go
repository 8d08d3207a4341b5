package expr

import (
	"fmt"
	"strconv"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/types"
)

// Built-in operations.
const (
	OpPick    = "pick"
	OpGetAttr = "getattr"
	OpCount   = "count"
	OpIndex   = "index"
)

type opDef struct {
	render func(args []domain.Expression) string
	infer  func(o domain.Oracle, args []domain.Expression) (domain.Type, error)
}

var ops = map[string]opDef{
	OpPick: {
		render: func(args []domain.Expression) string {
			if len(args) != 2 {
				return renderMethod(OpPick, args)
			}
			return receiver(args[0]) + "[" + args[1].String() + "]"
		},
		infer: inferProperty(OpPick),
	},
	OpGetAttr: {
		render: func(args []domain.Expression) string {
			key, ok := constString(args, 1)
			if len(args) != 2 || !ok || !isIdent(key) {
				return renderMethod(OpGetAttr, args)
			}
			return receiver(args[0]) + "." + key
		},
		infer: inferProperty(OpGetAttr),
	},
	OpCount: {
		infer: func(o domain.Oracle, args []domain.Expression) (domain.Type, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("count: expected 1 argument, got %d", len(args))
			}
			if _, err := listElem(o, args[0].Type()); err != nil {
				return nil, fmt.Errorf("count: %w", err)
			}
			return types.Number(), nil
		},
	},
	OpIndex: {
		render: func(args []domain.Expression) string {
			if len(args) != 2 {
				return renderMethod(OpIndex, args)
			}
			return receiver(args[0]) + "[" + args[1].String() + "]"
		},
		infer: func(o domain.Oracle, args []domain.Expression) (domain.Type, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("index: expected 2 arguments, got %d", len(args))
			}
			elem, err := listElem(o, args[0].Type())
			if err != nil {
				return nil, fmt.Errorf("index: %w", err)
			}
			return types.Maybe(elem), nil
		},
	},
}

func lookupOp(name string) (opDef, bool) {
	def, ok := ops[name]
	return def, ok
}

func constString(args []domain.Expression, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	c, ok := args[i].(*Const)
	if !ok {
		return "", false
	}
	s, ok := c.val.(string)
	return s, ok
}

func listElem(o domain.Oracle, t domain.Type) (domain.Type, error) {
	if types.KindOf(t) == types.KindAny {
		return types.Any(), nil
	}
	d, err := o.Decompose(t)
	if err != nil {
		return nil, err
	}
	if d.Element == nil {
		return nil, fmt.Errorf("expected list, got %s", t)
	}
	return d.Element, nil
}

// inferProperty types pick/getattr. Lists are mapped over, so picking from
// a list of records yields a list of property values.
func inferProperty(op string) func(domain.Oracle, []domain.Expression) (domain.Type, error) {
	return func(o domain.Oracle, args []domain.Expression) (domain.Type, error) {
		key, ok := constString(args, 1)
		if len(args) != 2 || !ok {
			return nil, fmt.Errorf("%s: expected (object, string key)", op)
		}
		return propertyType(o, args[0].Type(), key, op)
	}
}

func propertyType(o domain.Oracle, t domain.Type, key, op string) (domain.Type, error) {
	if types.KindOf(t) == types.KindAny {
		return types.Any(), nil
	}
	d, err := o.Decompose(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if d.Element != nil {
		inner, err := propertyType(o, d.Element, key, op)
		if err != nil {
			return nil, err
		}
		return types.List(inner), nil
	}
	pt, ok := d.Properties[key]
	if !ok {
		return nil, fmt.Errorf("%s: no property %s in %s", op, strconv.Quote(key), t)
	}
	if types.IsNullable(t) {
		pt = types.Maybe(pt)
	}
	return pt, nil
}
