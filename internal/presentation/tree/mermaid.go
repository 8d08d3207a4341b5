package tree

import (
	"fmt"
	"strings"

	"github.com/aretw0/paneltree/pkg/domain"
)

// Overlay marks the selected node on the graph.
type Overlay struct {
	Selected domain.Path
}

// GenerateMermaid produces a Mermaid flowchart of a configuration tree.
// Node shapes follow the node state:
// - Unresolved: ((Circle))
// - Composite (has children): [[Subroutine]]
// - Default: [Rectangle]
// Edges are labeled with the child key. With an overlay, the selection and
// its ancestors are highlighted and unrelated nodes are dimmed.
func GenerateMermaid(root domain.ConfigNode, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var classes []string
	domain.Walk(root, func(path domain.Path, node domain.ConfigNode) bool {
		id := mermaidID(path)

		opener, closer := "[", "]"
		switch {
		case !node.Resolved():
			opener, closer = "((", "))"
		case len(node.ChildKeys()) > 0:
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, nodeLabel(path, node), closer)

		for _, k := range node.ChildKeys() {
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", id, escapeLabel(k), mermaidID(path.Child(k)))
		}

		if overlay != nil {
			switch domain.ClassifyPath(path, overlay.Selected) {
			case domain.VisibilitySelected:
				classes = append(classes, fmt.Sprintf("    class %s current;\n", id))
			case domain.VisibilityAncestor:
				classes = append(classes, fmt.Sprintf("    class %s onpath;\n", id))
			case domain.VisibilityUnrelated:
				classes = append(classes, fmt.Sprintf("    class %s unrelated;\n", id))
			}
		}
		return true
	})

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef onpath fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef unrelated fill:#f5f5f5,stroke:#bdbdbd,color:#757575;\n")
		for _, c := range classes {
			sb.WriteString(c)
		}
	}

	return sb.String()
}

func nodeLabel(path domain.Path, node domain.ConfigNode) string {
	name := domain.RootLabel
	if len(path) > 0 {
		name = path[len(path)-1]
	}
	handler := node.HandlerID
	if handler == "" {
		handler = "?"
	}
	return escapeLabel(name) + " · " + escapeLabel(handler)
}

func mermaidID(path domain.Path) string {
	if len(path) == 0 {
		return "root"
	}
	return "root_" + sanitizeMermaidID(strings.Join(path, "_"))
}

func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
