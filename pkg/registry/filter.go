package registry

import "strings"

// Filter restricts which handler ids may appear in a stack.
// A nil Filter allows everything.
type Filter func(id string) bool

// Allows reports whether f admits id.
func (f Filter) Allows(id string) bool {
	return f == nil || f(id)
}

// AllowIDs admits only the given ids.
func AllowIDs(ids ...string) Filter {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(id string) bool {
		_, ok := set[id]
		return ok
	}
}

// SubStackFilter admits the handlers usable inside a composed sub-panel:
// top-level ids (no namespace), projections and maybe-unwrappers.
func SubStackFilter() Filter {
	return func(id string) bool {
		return !strings.Contains(id, ".") ||
			strings.Contains(id, "projection") ||
			strings.Contains(id, "maybe")
	}
}

// And admits ids accepted by every non-nil filter.
func And(filters ...Filter) Filter {
	var active []Filter
	for _, f := range filters {
		if f != nil {
			active = append(active, f)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(id string) bool {
		for _, f := range active {
			if !f(id) {
				return false
			}
		}
		return true
	}
}
