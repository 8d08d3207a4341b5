package tree

import (
	"fmt"
	"strings"

	"github.com/aretw0/paneltree/pkg/domain"
)

// OptionsFunc returns the "switch renderer" labels offered for a node.
type OptionsFunc func(path domain.Path, node domain.ConfigNode) []string

// MarkdownOptions configures Markdown.
type MarkdownOptions struct {
	// Selected is the path being edited.
	Selected domain.Path
	// Options, when set, lists the handler alternatives of nodes that show controls.
	Options OptionsFunc
}

// Markdown renders a configuration tree as a nested markdown list.
// Nodes off the selected path are listed without controls.
func Markdown(root domain.ConfigNode, opts MarkdownOptions) string {
	var sb strings.Builder
	sb.WriteString("# Configuration\n\n")

	domain.Walk(root, func(path domain.Path, node domain.ConfigNode) bool {
		indent := strings.Repeat("  ", len(path))
		vis := domain.ClassifyPath(path, opts.Selected)

		name := domain.RootLabel
		if len(path) > 0 {
			name = path[len(path)-1]
		}
		handler := node.HandlerID
		if handler == "" {
			handler = "unresolved"
		}

		fmt.Fprintf(&sb, "%s- **%s** `%s`", indent, name, handler)
		if in := node.Input.String(); in != "" {
			fmt.Fprintf(&sb, " ← `%s`", in)
		}
		if vis == domain.VisibilitySelected {
			sb.WriteString(" _(selected)_")
		}
		sb.WriteString("\n")

		if !vis.ShowsControls() {
			return true
		}
		for _, b := range node.Vars.Bindings() {
			fmt.Fprintf(&sb, "%s  - var `%s` = `%s`\n", indent, b.Name, b.Expr.String())
		}
		if opts.Options != nil && domain.ShowsOwnOptions(path, opts.Selected) {
			if labels := opts.Options(path, node); len(labels) > 0 {
				fmt.Fprintf(&sb, "%s  - renderers: %s\n", indent, strings.Join(labels, ", "))
			}
		}
		return true
	})
	return sb.String()
}
