package domain

import "context"

// Type is an opaque structural type (primitive, union, typed record, object, list...).
// The core never inspects it beyond IsVoid; everything else goes through an Oracle.
type Type interface {
	// String returns the canonical, parseable form of the type.
	String() string
	// IsVoid reports whether the type denotes the absence of an input.
	IsVoid() bool
}

// Expression is a typed, lazily evaluated computation.
type Expression interface {
	// Type returns the (possibly refined) type of the expression.
	Type() Type
	// String returns the serialized form. Two expressions with the same
	// serialized form are considered the same computation, regardless of type.
	String() string
}

// Decomposition describes the inner types of a compound type.
// Exactly one of Properties or Element is set.
type Decomposition struct {
	// Names lists property names in a deterministic order.
	Names      []string
	Properties map[string]Type
	Element    Type
}

// Oracle answers structural compatibility questions.
type Oracle interface {
	// IsAssignable reports whether a value of type a can be used where b is expected.
	IsAssignable(a, b Type) bool
	// Decompose returns the property types of a record/object (or union of them),
	// or the element type of a list. Returns ErrNotDecomposable otherwise.
	Decompose(t Type) (Decomposition, error)
}

// Refiner resolves the concrete type of an expression against a frame of
// visible variables. It may suspend (remote evaluation, caches...).
type Refiner interface {
	Refine(ctx context.Context, expr Expression, frame Frame) (Expression, error)
}

// Codec converts expressions to and from their plain-data form.
type Codec interface {
	EncodeExpr(expr Expression) (map[string]any, error)
	DecodeExpr(data map[string]any) (Expression, error)
}

// KeyNodeType marks a plain-data map as an expression.
const KeyNodeType = "nodeType"

type voidType struct{}

func (voidType) String() string { return "void" }
func (voidType) IsVoid() bool   { return true }

// VoidType is the type of the void expression.
var VoidType Type = voidType{}

type voidExpr struct{}

func (voidExpr) Type() Type     { return VoidType }
func (voidExpr) String() string { return "" }

// Void returns the expression standing for "no input".
func Void() Expression { return voidExpr{} }

// IsVoid reports whether expr is absent or void-typed.
func IsVoid(expr Expression) bool {
	if expr == nil {
		return true
	}
	t := expr.Type()
	return t == nil || t.IsVoid()
}

// IsExprPlain reports whether a plain-data map encodes an expression.
func IsExprPlain(m map[string]any) bool {
	_, ok := m[KeyNodeType]
	return ok
}

// EncodeExpr encodes expr with c, handling void itself.
func EncodeExpr(c Codec, expr Expression) (map[string]any, error) {
	if IsVoid(expr) {
		return map[string]any{KeyNodeType: "void", "type": "invalid"}, nil
	}
	if c == nil {
		return nil, ErrNoCodec
	}
	return c.EncodeExpr(expr)
}

// DecodeExpr decodes a plain expression with c, handling void itself.
func DecodeExpr(c Codec, data map[string]any) (Expression, error) {
	if data == nil || data[KeyNodeType] == "void" {
		return Void(), nil
	}
	if c == nil {
		return nil, ErrNoCodec
	}
	return c.DecodeExpr(data)
}
