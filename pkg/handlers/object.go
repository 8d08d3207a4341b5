package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
	"github.com/aretw0/paneltree/pkg/types"
)

// Object handler defaults.
const (
	DefaultPropLimit = 100
	DefaultPageSize  = 10
)

// ObjectConfig is the typed view of an Object handler config.
type ObjectConfig struct {
	PropLimit int            `mapstructure:"propLimit"`
	Expanded  *bool          `mapstructure:"expanded"`
	Children  map[string]any `mapstructure:"children"`
}

// DecodeObjectConfig reads an Object config, filling defaults.
func DecodeObjectConfig(cfg any) (ObjectConfig, error) {
	var out ObjectConfig
	if cfg != nil {
		if err := mapstructure.Decode(cfg, &out); err != nil {
			return ObjectConfig{}, fmt.Errorf("decode object config: %w", err)
		}
	}
	if out.PropLimit <= 0 {
		out.PropLimit = DefaultPropLimit
	}
	if out.Children == nil {
		out.Children = map[string]any{}
	}
	return out, nil
}

// ExpandedOr returns the expanded flag, or def when unset.
func (c ObjectConfig) ExpandedOr(def bool) bool {
	if c.Expanded == nil {
		return def
	}
	return *c.Expanded
}

// ObjectKeys returns the property names of t the Object handler shows:
// renderable properties first, at most limit of them.
func ObjectKeys(o domain.Oracle, t domain.Type, limit int) ([]string, domain.Decomposition, error) {
	d, err := o.Decompose(types.NonNullable(t))
	if err != nil {
		return nil, d, err
	}
	if d.Element != nil {
		return nil, d, fmt.Errorf("%w: %s is a list", domain.ErrNotDecomposable, t)
	}

	keys := append([]string(nil), d.Names...)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return IsRenderable(o, d.Properties[keys[i]]) && !IsRenderable(o, d.Properties[keys[j]])
	})
	return keys, d, nil
}

// objectInitializer creates one child per property, bound to the matching
// projection of the parent input.
func objectInitializer(o domain.Oracle) func(context.Context, domain.Expression, domain.Frame) (any, error) {
	return func(ctx context.Context, input domain.Expression, _ domain.Frame) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := input.Type()
		keys, _, err := ObjectKeys(o, t, DefaultPropLimit)
		if err != nil {
			return nil, err
		}

		isObject := types.KindOf(types.NonNullable(t)) == types.KindObject
		parent := expr.NewVar(domain.InputVar, t)
		children := make(map[string]any, len(keys))
		for _, k := range keys {
			if isObject {
				children[EscapeKey(k)] = expr.GetAttr(parent, k)
			} else {
				children[EscapeKey(k)] = expr.Pick(parent, k)
			}
		}
		return map[string]any{
			"propLimit":         DefaultPropLimit,
			"expanded":          !isObject,
			domain.KeyChildren: children,
		}, nil
	}
}
