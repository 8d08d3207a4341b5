package types

import (
	"sort"
	"strings"

	"github.com/aretw0/paneltree/pkg/domain"
)

// Kind is the tag of a structural type.
type Kind string

const (
	KindVoid      Kind = "void"
	KindAny       Kind = "any"
	KindNone      Kind = "none"
	KindString    Kind = "string"
	KindNumber    Kind = "number"
	KindBoolean   Kind = "boolean"
	KindDate      Kind = "date"
	KindList      Kind = "list"
	KindUnion     Kind = "union"
	KindTypedDict Kind = "typedDict"
	KindObject    Kind = "Object"
)

// Prop is a named property of a typed record or object.
type Prop struct {
	Name string
	Type domain.Type
}

// T is the concrete structural type. Values are immutable.
type T struct {
	kind    Kind
	elem    domain.Type
	members []domain.Type
	props   []Prop
	name    string
}

// Kind returns the type tag.
func (t *T) Kind() Kind { return t.kind }

// IsVoid is always false; void is domain.VoidType.
func (t *T) IsVoid() bool { return false }

// Elem returns the element type of a list.
func (t *T) Elem() domain.Type { return t.elem }

// Members returns the members of a union.
func (t *T) Members() []domain.Type {
	out := make([]domain.Type, len(t.members))
	copy(out, t.members)
	return out
}

// Props returns the properties of a typed record or object, sorted by name.
func (t *T) Props() []Prop {
	out := make([]Prop, len(t.props))
	copy(out, t.props)
	return out
}

// Name returns the nominal name of an object type ("" for any object).
func (t *T) Name() string { return t.name }

// String renders the canonical form accepted by ParseType.
func (t *T) String() string {
	switch t.kind {
	case KindList:
		return "[" + t.elem.String() + "]"
	case KindUnion:
		parts := make([]string, len(t.members))
		for i, m := range t.members {
			parts[i] = m.String()
		}
		return strings.Join(parts, " | ")
	case KindTypedDict:
		return "{" + propsString(t.props) + "}"
	case KindObject:
		s := "Object"
		if t.name != "" {
			s += "<" + t.name + ">"
		}
		if len(t.props) > 0 {
			s += "{" + propsString(t.props) + "}"
		}
		return s
	default:
		return string(t.kind)
	}
}

func propsString(props []Prop) string {
	parts := make([]string, len(props))
	for i, p := range props {
		parts[i] = p.Name + ": " + p.Type.String()
	}
	return strings.Join(parts, ", ")
}

var (
	anyT     = &T{kind: KindAny}
	noneT    = &T{kind: KindNone}
	stringT  = &T{kind: KindString}
	numberT  = &T{kind: KindNumber}
	booleanT = &T{kind: KindBoolean}
	dateT    = &T{kind: KindDate}
)

// --- Factory Functions ---

// Void returns the void type.
func Void() domain.Type { return domain.VoidType }

// Any creates the top type.
func Any() domain.Type { return anyT }

// None creates the null type.
func None() domain.Type { return noneT }

// String creates the string type.
func String() domain.Type { return stringT }

// Number creates the number type.
func Number() domain.Type { return numberT }

// Boolean creates the boolean type.
func Boolean() domain.Type { return booleanT }

// Date creates the date type.
func Date() domain.Type { return dateT }

// List creates a list type for elements of the given type.
func List(elem domain.Type) domain.Type {
	if elem == nil {
		elem = anyT
	}
	return &T{kind: KindList, elem: elem}
}

// TypedDict creates a typed record. Property order is canonicalized.
func TypedDict(props map[string]domain.Type) domain.Type {
	return &T{kind: KindTypedDict, props: sortedProps(props)}
}

// Object creates a nominal object type. An empty name matches any object.
func Object(name string, attrs map[string]domain.Type) domain.Type {
	return &T{kind: KindObject, name: name, props: sortedProps(attrs)}
}

func sortedProps(m map[string]domain.Type) []Prop {
	props := make([]Prop, 0, len(m))
	for name, t := range m {
		if t == nil {
			t = anyT
		}
		props = append(props, Prop{Name: name, Type: t})
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
	return props
}

// Union creates a union type. Nested unions are flattened, duplicates removed
// and members sorted by canonical form; a union containing any is any and a
// single-member union is that member.
func Union(members ...domain.Type) domain.Type {
	seen := make(map[string]bool)
	var flat []domain.Type
	var add func(domain.Type)
	add = func(m domain.Type) {
		if m == nil {
			return
		}
		if u, ok := m.(*T); ok && u.kind == KindUnion {
			for _, inner := range u.members {
				add(inner)
			}
			return
		}
		key := m.String()
		if seen[key] {
			return
		}
		seen[key] = true
		flat = append(flat, m)
	}
	for _, m := range members {
		add(m)
	}

	for _, m := range flat {
		if isAny(m) {
			return anyT
		}
	}
	switch len(flat) {
	case 0:
		return domain.VoidType
	case 1:
		return flat[0]
	}
	sort.Slice(flat, func(i, j int) bool { return flat[i].String() < flat[j].String() })
	return &T{kind: KindUnion, members: flat}
}

// Maybe creates t | none.
func Maybe(t domain.Type) domain.Type { return Union(t, noneT) }

// NonNullable removes none from a union.
func NonNullable(t domain.Type) domain.Type {
	u, ok := t.(*T)
	if !ok || u.kind != KindUnion {
		return t
	}
	var keep []domain.Type
	for _, m := range u.members {
		if kindOf(m) != KindNone {
			keep = append(keep, m)
		}
	}
	return Union(keep...)
}

// IsNullable reports whether none is assignable to t.
func IsNullable(t domain.Type) bool {
	return Oracle{}.IsAssignable(noneT, t)
}

// Equal compares canonical forms.
func Equal(a, b domain.Type) bool {
	return KindOf(a) == KindOf(b) && a.String() == b.String()
}

// KindOf returns the tag of any domain.Type (void for nil or void).
func KindOf(t domain.Type) Kind { return kindOf(t) }

func kindOf(t domain.Type) Kind {
	if t == nil || t.IsVoid() {
		return KindVoid
	}
	if tt, ok := t.(*T); ok {
		return tt.kind
	}
	return KindAny
}

func isAny(t domain.Type) bool { return kindOf(t) == KindAny }

// Specificity ranks how narrow a type pattern is. Higher is more specific.
// It drives the order of handler stacks: any is 0, unions rank just below
// their least specific member, primitives rank 100.
func Specificity(t domain.Type) int {
	tt, ok := t.(*T)
	if !ok {
		return 0
	}
	switch tt.kind {
	case KindAny:
		return 0
	case KindList:
		return 60 + Specificity(tt.elem)/4
	case KindTypedDict:
		return 60 + min(len(tt.props), 20)*2
	case KindObject:
		if tt.name != "" {
			return 100
		}
		return 50 + min(len(tt.props), 20)*2
	case KindUnion:
		lowest := -1
		for _, m := range tt.members {
			s := Specificity(m)
			if lowest < 0 || s < lowest {
				lowest = s
			}
		}
		return max(lowest-1, 1)
	default:
		return 100
	}
}
