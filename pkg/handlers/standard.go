package handlers

import (
	"context"
	"strings"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/registry"
	"github.com/aretw0/paneltree/pkg/types"
)

// Built-in handler ids.
const (
	String     = "String"
	Number     = "Number"
	Boolean    = "Boolean"
	Date       = "Date"
	Object     = "Object"
	Each       = "Each"
	Expression = "Expression"
)

// Built-in specificities. Primitives beat containers, and Expression is
// the universal fallback.
const (
	specPrimitive  = 100
	specObject     = 50
	specEach       = 40
	specExpression = 0
)

// ForType creates a handler matching every type assignable to pattern.
// Unless overridden by opts its specificity is the specificity of pattern.
func ForType(id string, pattern domain.Type, o domain.Oracle, opts ...registry.Option) *registry.Handler {
	if o == nil {
		o = types.Oracle{}
	}
	base := []registry.Option{registry.WithSpecificity(types.Specificity(pattern))}
	return registry.New(id, func(t domain.Type) bool {
		return o.IsAssignable(t, pattern)
	}, append(base, opts...)...)
}

// Standard returns the built-in handlers in registration order.
func Standard(o domain.Oracle) []registry.Descriptor {
	if o == nil {
		o = types.Oracle{}
	}
	return []registry.Descriptor{
		ForType(String, types.String(), o, registry.WithSpecificity(specPrimitive)),
		ForType(Number, types.Number(), o, registry.WithSpecificity(specPrimitive)),
		ForType(Boolean, types.Boolean(), o, registry.WithSpecificity(specPrimitive)),
		ForType(Date, types.Date(), o, registry.WithSpecificity(specPrimitive)),
		registry.New(Object, objectMatcher(o),
			registry.WithSpecificity(specObject),
			registry.WithInitializer(objectInitializer(o)),
		),
		ForType(Each, types.List(types.Any()), o,
			registry.WithSpecificity(specEach),
			registry.WithAbsorbing(),
			registry.WithInitializer(func(context.Context, domain.Expression, domain.Frame) (any, error) {
				return map[string]any{"pageSize": DefaultPageSize}, nil
			}),
		),
		registry.New(Expression, nil, registry.WithSpecificity(specExpression)),
	}
}

// NewStandardRegistry returns an unfrozen registry holding the built-in handlers.
func NewStandardRegistry(o domain.Oracle) *registry.Registry {
	return registry.NewRegistry().MustRegister(Standard(o)...)
}

var (
	anyRecord = types.TypedDict(nil)
	anyObject = types.Object("", nil)
)

func objectMatcher(o domain.Oracle) registry.Matcher {
	return func(t domain.Type) bool {
		t = types.NonNullable(t)
		return o.IsAssignable(t, anyRecord) || o.IsAssignable(t, anyObject)
	}
}

// IsRenderable reports whether a value of type t gets a dedicated row in an
// Object handler (primitives and nested records) rather than a trailing one.
func IsRenderable(o domain.Oracle, t domain.Type) bool {
	t = types.NonNullable(t)
	for _, p := range []domain.Type{types.String(), types.Number(), types.Date(), anyRecord, anyObject} {
		if o.IsAssignable(t, p) {
			return true
		}
	}
	return false
}

// EscapeKey makes a property name safe to use as a path segment.
func EscapeKey(k string) string {
	return strings.ReplaceAll(k, ".", `\.`)
}
