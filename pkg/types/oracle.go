package types

import (
	"fmt"
	"sort"

	"github.com/aretw0/paneltree/pkg/domain"
)

// Oracle implements domain.Oracle for the types of this package.
// The zero value is ready to use.
type Oracle struct{}

var _ domain.Oracle = Oracle{}

// IsAssignable reports whether a value of type a can be used where b is expected.
//
// Void is only assignable to void. Any accepts everything except void.
// A union is assignable when all of its members are; a type is assignable to
// a union when it is assignable to one member. Records use width subtyping.
func (o Oracle) IsAssignable(a, b domain.Type) bool {
	ka, kb := kindOf(a), kindOf(b)

	if kb == KindVoid {
		return ka == KindVoid
	}
	if ka == KindVoid {
		return false
	}
	if kb == KindAny {
		return true
	}

	if ka == KindUnion {
		for _, m := range a.(*T).members {
			if !o.IsAssignable(m, b) {
				return false
			}
		}
		return true
	}
	if kb == KindUnion {
		for _, m := range b.(*T).members {
			if o.IsAssignable(a, m) {
				return true
			}
		}
		return false
	}

	if ka != kb {
		return false
	}

	ta, tb := a.(*T), b.(*T)
	switch ka {
	case KindList:
		return o.IsAssignable(ta.elem, tb.elem)
	case KindTypedDict:
		return o.propsAssignable(ta.props, tb.props)
	case KindObject:
		if tb.name != "" && ta.name != tb.name {
			return false
		}
		return o.propsAssignable(ta.props, tb.props)
	default:
		return true
	}
}

// propsAssignable checks that every property required by want exists in have
// with an assignable type.
func (o Oracle) propsAssignable(have, want []Prop) bool {
	index := make(map[string]domain.Type, len(have))
	for _, p := range have {
		index[p.Name] = p.Type
	}
	for _, p := range want {
		t, ok := index[p.Name]
		if !ok || !o.IsAssignable(t, p.Type) {
			return false
		}
	}
	return true
}

// Decompose returns the property types of records and objects (and unions
// of them, merged per property), or the element type of lists. Nullability
// is stripped first.
func (o Oracle) Decompose(t domain.Type) (domain.Decomposition, error) {
	t = NonNullable(t)
	tt, ok := t.(*T)
	if !ok {
		return domain.Decomposition{}, fmt.Errorf("%w: %s", domain.ErrNotDecomposable, typeName(t))
	}

	switch tt.kind {
	case KindList:
		return domain.Decomposition{Element: tt.elem}, nil
	case KindTypedDict, KindObject:
		return propsDecomposition(tt.props), nil
	case KindUnion:
		return o.mergeMembers(tt)
	default:
		return domain.Decomposition{}, fmt.Errorf("%w: %s", domain.ErrNotDecomposable, tt)
	}
}

// mergeMembers unions property types across record/object members.
// A property missing from some member becomes nullable.
func (o Oracle) mergeMembers(u *T) (domain.Decomposition, error) {
	merged := make(map[string][]domain.Type)
	for _, m := range u.members {
		mt, ok := m.(*T)
		if !ok || (mt.kind != KindTypedDict && mt.kind != KindObject) {
			return domain.Decomposition{}, fmt.Errorf("%w: %s", domain.ErrNotDecomposable, u)
		}
		for _, p := range mt.props {
			merged[p.Name] = append(merged[p.Name], p.Type)
		}
	}

	props := make(map[string]domain.Type, len(merged))
	for name, ts := range merged {
		if len(ts) < len(u.members) {
			ts = append(ts, noneT)
		}
		props[name] = Union(ts...)
	}
	return propsDecomposition(sortedProps(props)), nil
}

func propsDecomposition(props []Prop) domain.Decomposition {
	d := domain.Decomposition{
		Names:      make([]string, 0, len(props)),
		Properties: make(map[string]domain.Type, len(props)),
	}
	for _, p := range props {
		d.Names = append(d.Names, p.Name)
		d.Properties[p.Name] = p.Type
	}
	sort.Strings(d.Names)
	return d
}

func typeName(t domain.Type) string {
	if t == nil {
		return "void"
	}
	return t.String()
}
