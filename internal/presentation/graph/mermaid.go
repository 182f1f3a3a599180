// Package graph renders the conversation graph as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/dsl"
)

// endID is the Mermaid id of the implicit end node.
const endID = "END"

// GraphOverlay contains run data to highlight on the graph.
type GraphOverlay struct {
	VisitedNodes []domain.Action
	CurrentNode  domain.Action
}

// GenerateMermaid produces a Mermaid flowchart from g.
// Shapes:
// - Entry: ((Circle))
// - Branching node: {Rhombus}
// - Node leading to the end: ([Stadium])
// - Default: [Rectangle]
// Conditional edges are dotted. Overlay styles are applied when provided.
func GenerateMermaid(g *dsl.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	usesEnd := false
	for _, node := range g.Nodes() {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case node.ID == g.Entry:
			opener, closer = "((", "))"
		case node.Route != nil:
			opener, closer = "{", "}"
		case node.Next == dsl.End:
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, node.ID, closer)

		arrow := "-->"
		if node.Route != nil {
			arrow = "-.->"
		}
		for _, target := range node.Targets() {
			if target == dsl.End {
				usesEnd = true
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(target))
		}
	}
	if usesEnd {
		fmt.Fprintf(&sb, "    %s((\"end\"))\n", endID)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills in both themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visited[safeID] && safeID != "" {
				visited[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id domain.Action) string {
	if id == dsl.End {
		return endID
	}
	s := strings.ReplaceAll(string(id), ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
