package tui

import (
	"github.com/muesli/termenv"

	"github.com/aretw0/paneltree/pkg/domain"
)

// Marker returns a colored one-character marker for a node visibility.
func Marker(p termenv.Profile, v domain.Visibility) string {
	switch v {
	case domain.VisibilitySelected:
		return p.String("●").Foreground(p.Color("#fbc02d")).Bold().String()
	case domain.VisibilityAncestor:
		return p.String("◐").Foreground(p.Color("#01579b")).String()
	case domain.VisibilityDescendant:
		return p.String("○").Foreground(p.Color("#81c784")).String()
	default:
		return p.String("·").Faint().String()
	}
}
