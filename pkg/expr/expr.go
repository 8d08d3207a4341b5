package expr

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/types"
)

// Const is a literal value.
type Const struct {
	typ domain.Type
	val any
}

// NewConst creates a constant. A nil typ is inferred from the value.
func NewConst(val any, typ domain.Type) *Const {
	if typ == nil {
		typ = types.Infer(val)
	}
	return &Const{typ: typ, val: val}
}

func (c *Const) Type() domain.Type { return c.typ }
func (c *Const) Value() any        { return c.val }
func (c *Const) String() string    { return renderValue(c.val) }

func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "none"
	case string:
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// Var references a variable of the enclosing frame.
type Var struct {
	typ  domain.Type
	name string
}

// NewVar creates a variable reference. A nil typ means "not refined yet" (any).
func NewVar(name string, typ domain.Type) *Var {
	if typ == nil {
		typ = types.Any()
	}
	return &Var{typ: typ, name: name}
}

func (v *Var) Type() domain.Type { return v.typ }
func (v *Var) Name() string      { return v.name }
func (v *Var) String() string    { return v.name }

// Call applies an operation to arguments. The first argument is the receiver.
type Call struct {
	typ  domain.Type
	op   string
	args []domain.Expression
}

// NewCall creates an operation call with an unrefined (any) result type.
func NewCall(op string, args ...domain.Expression) *Call {
	return &Call{typ: types.Any(), op: op, args: args}
}

func (c *Call) Type() domain.Type { return c.typ }
func (c *Call) Op() string        { return c.op }

// Args returns a copy of the arguments.
func (c *Call) Args() []domain.Expression {
	out := make([]domain.Expression, len(c.args))
	copy(out, c.args)
	return out
}

func (c *Call) String() string {
	if def, ok := lookupOp(c.op); ok && def.render != nil {
		return def.render(c.args)
	}
	return renderMethod(c.op, c.args)
}

func (c *Call) withArgs(args []domain.Expression) *Call {
	return &Call{typ: c.typ, op: c.op, args: args}
}

func (c *Call) withType(t domain.Type) *Call {
	return &Call{typ: t, op: c.op, args: c.args}
}

func renderMethod(op string, args []domain.Expression) string {
	if len(args) == 0 {
		return op + "()"
	}
	rest := make([]string, 0, len(args)-1)
	for _, a := range args[1:] {
		rest = append(rest, a.String())
	}
	return receiver(args[0]) + "." + op + "(" + strings.Join(rest, ", ") + ")"
}

// receiver wraps void receivers so the output stays parseable.
func receiver(e domain.Expression) string {
	if domain.IsVoid(e) {
		return "none"
	}
	return e.String()
}

// Pick selects a key of a typed record.
func Pick(obj domain.Expression, key string) *Call {
	return NewCall(OpPick, obj, NewConst(key, types.String()))
}

// GetAttr reads an attribute of an object.
func GetAttr(obj domain.Expression, name string) *Call {
	return NewCall(OpGetAttr, obj, NewConst(name, types.String()))
}

// Count returns the length of a list.
func Count(list domain.Expression) *Call {
	return NewCall(OpCount, list)
}

// Index returns the element at position i of a list.
func Index(list domain.Expression, i int) *Call {
	return NewCall(OpIndex, list, NewConst(i, types.Number()))
}

// WithType returns a copy of e carrying type t.
func WithType(e domain.Expression, t domain.Type) domain.Expression {
	switch n := e.(type) {
	case *Const:
		return &Const{typ: t, val: n.val}
	case *Var:
		return &Var{typ: t, name: n.name}
	case *Call:
		return n.withType(t)
	default:
		return e
	}
}
