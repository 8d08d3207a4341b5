package domain

import "strings"

// RootLabel is the display name of the root segment.
const RootLabel = "<root>"

// Path addresses a node by the child keys leading to it from the root.
// The empty path is the root.
type Path []string

// ParsePath parses a dotted path ("a.b"). The empty string, "<root>" and a
// leading "<root>." segment all address the root. A dot escaped as `\.`
// stays inside its segment, so keys of object properties containing dots
// ("x\.y") are addressable.
func ParsePath(s string) Path {
	s = strings.TrimPrefix(s, RootLabel)
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return Path{}
	}
	var (
		out   Path
		start int
	)
	for i := 0; i < len(s); i++ {
		if s[i] == '.' && (i == 0 || s[i-1] != '\\') {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

// String renders the path as "<root>.a.b". Bare dots inside a segment are
// escaped so the result parses back to the same segments.
func (p Path) String() string {
	if len(p) == 0 {
		return RootLabel
	}
	segs := make([]string, len(p))
	for i, seg := range p {
		segs[i] = escapeSegment(seg)
	}
	return RootLabel + "." + strings.Join(segs, ".")
}

func escapeSegment(seg string) string {
	if !strings.Contains(seg, ".") {
		return seg
	}
	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		if seg[i] == '.' && (i == 0 || seg[i-1] != '\\') {
			b.WriteByte('\\')
		}
		b.WriteByte(seg[i])
	}
	return b.String()
}

// Child returns a new path extended by seg.
func (p Path) Child(seg string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// HasPrefix reports whether prefix is a (non-strict) segment prefix of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal reports segment-wise equality.
func (p Path) Equal(other Path) bool {
	return len(p) == len(other) && p.HasPrefix(other)
}

// Visibility classifies a node path relative to the selected path.
type Visibility int

const (
	// VisibilityUnrelated: neither path is a prefix of the other.
	VisibilityUnrelated Visibility = iota
	// VisibilityAncestor: the node is a strict ancestor of the selection.
	VisibilityAncestor
	// VisibilitySelected: the node is the selection.
	VisibilitySelected
	// VisibilityDescendant: the node lies below the selection.
	VisibilityDescendant
)

func (v Visibility) String() string {
	switch v {
	case VisibilityAncestor:
		return "ancestor"
	case VisibilitySelected:
		return "selected"
	case VisibilityDescendant:
		return "descendant"
	default:
		return "unrelated"
	}
}

// OnPath reports whether the node shares a prefix relation with the selection.
func (v Visibility) OnPath() bool { return v != VisibilityUnrelated }

// ShowsControls reports whether the node renders configuration controls.
// Unrelated nodes still render their content, only the controls are hidden.
func (v Visibility) ShowsControls() bool { return v.OnPath() }

// ClassifyPath compares node against selected. A selection of [""] is
// treated as the root.
func ClassifyPath(node, selected Path) Visibility {
	if len(selected) == 1 && selected[0] == "" {
		selected = Path{}
	}
	switch {
	case node.Equal(selected):
		return VisibilitySelected
	case selected.HasPrefix(node):
		return VisibilityAncestor
	case node.HasPrefix(selected):
		return VisibilityDescendant
	default:
		return VisibilityUnrelated
	}
}

// ShowsOwnOptions reports whether the node at path exposes its own
// input/handler/variable editors for the selection: the node must be the
// selection or below it, and never the root itself.
func ShowsOwnOptions(node, selected Path) bool {
	if len(node) == 0 {
		return false
	}
	v := ClassifyPath(node, selected)
	return v == VisibilitySelected || v == VisibilityDescendant
}
