package ui

import (
	"strings"

	"github.com/IgorPritula/entity-ref-dependency/internal/dependency"
)

// RenderTree draws a dependency tree below its root key, one entity per
// line. Nodes reached again through a cycle are marked and not expanded.
func RenderTree(t *dependency.Tree) string {
	var sb strings.Builder
	sb.WriteString(AccentBold.Render(t.Root.Ref.Key()))
	sb.WriteString("\n")
	renderChildren(&sb, t.Root, "")
	if t.Truncated {
		sb.WriteString(Warning("depth limit reached; deeper dependents not shown"))
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderChildren(sb *strings.Builder, n *dependency.Node, prefix string) {
	refs := n.ChildRefs()
	for i, ref := range refs {
		child, _ := n.Child(ref)
		last := i == len(refs)-1

		branch, indent := "├── ", "│   "
		if last {
			branch, indent = "└── ", "    "
		}
		sb.WriteString(prefix)
		sb.WriteString(branch)
		sb.WriteString(EntityKey(ref.Key()))
		if child.Entity != nil && child.Entity.Label != "" {
			sb.WriteString(" ")
			sb.WriteString(Muted.Render(child.Entity.Label))
		}
		if child.Seen {
			sb.WriteString(" ")
			sb.WriteString(Hint("(seen)"))
		}
		sb.WriteString("\n")
		renderChildren(sb, child, prefix+indent)
	}
}
