package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/plotforge/pkg/domain"
)

// Overlay marks session progress on the rendered graph.
type Overlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart from the story nodes.
// Shapes:
//   - entry node: ((circle))
//   - generative node: [[subroutine]]
//   - terminal node: ([stadium])
//   - default: [rectangle]
//
// Choice edges carry the choice text; conditional edges are dotted. Targets
// missing from nodes are drawn as a dashed "missing" class.
func GenerateMermaid(nodes []domain.Node, entry string, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}
	missing := map[string]bool{}

	for _, node := range nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case node.ID == entry:
			opener, closer = "((", "))"
		case node.RequiresGeneration:
			opener, closer = "[[", "]]"
		case node.IsTerminal():
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(node.ID), closer)

		for _, c := range node.Choices {
			if !known[c.NextNode] {
				missing[c.NextNode] = true
			}
			safeTo := sanitizeMermaidID(c.NextNode)
			label := escapeLabel(c.Text)
			if c.Condition != "" {
				fmt.Fprintf(&sb, "    %s -. \"%s [%s]\" .-> %s\n", safeID, label, escapeLabel(c.Condition), safeTo)
				continue
			}
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, label, safeTo)
		}
	}

	if len(missing) > 0 {
		ids := make([]string, 0, len(missing))
		for id := range missing {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		sb.WriteString("\n    %% Missing targets\n")
		sb.WriteString("    classDef missing fill:#fff,stroke:#c62828,stroke-dasharray:5 5,color:#c62828;\n")
		for _, id := range ids {
			label := id
			if label == "" {
				label = "(empty)"
			}
			safeID := sanitizeMermaidID(id)
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n    class %s missing;\n", safeID, escapeLabel(label), safeID)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if seen[safeID] || !known[id] {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
		}
		if overlay.CurrentNode != "" && known[overlay.CurrentNode] {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	if id == "" {
		return "_empty"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '-', '/', '\\', ' ', ':':
			return '_'
		}
		return r
	}, id)
}
