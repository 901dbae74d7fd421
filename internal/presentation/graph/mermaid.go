package graph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/openportal/pkg/domain"
)

// GraphOverlay contains execution results to visualize on the graph,
// keyed by node ID.
type GraphOverlay struct {
	Statuses map[string]domain.Status
}

// GenerateMermaid produces a Mermaid flowchart syntax string from an action tree.
// It applies semantic styling:
// - Combinator (sequence, parallel, conditional, forEach): {{Hexagon}}
// - Loading leaf: (Rounded)
// - Default leaf: [Rectangle]
// Sequence steps are numbered, branches carry their condition and onError
// chains are dotted. Overlay styles are applied if provided.
func GenerateMermaid(root *domain.ActionNode, overlay *GraphOverlay) (string, error) {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := map[string]string{}
	err := domain.Walk(root, func(path string, n *domain.ActionNode) error {
		safeID := sanitizeMermaidID(path)
		if n.ID != "" {
			if _, seen := ids[n.ID]; !seen {
				ids[n.ID] = safeID
			}
		}
		sb.WriteString(nodeLine(safeID, n))
		return edges(&sb, safeID, path, n)
	})
	if err != nil {
		return "", err
	}

	// Apply Overlay Styles
	if overlay != nil && len(overlay.Statuses) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef success fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef error fill:#ffebee,stroke:#c62828,stroke-width:3px,color:#000;\n")
		sb.WriteString("    classDef skipped fill:#eceff1,stroke:#90a4ae,stroke-dasharray:4,color:#000;\n")

		for _, id := range sortedKeys(overlay.Statuses) {
			safeID, ok := ids[id]
			if !ok {
				continue
			}
			sb.WriteString(fmt.Sprintf("    class %s %s;\n", safeID, overlay.Statuses[id]))
		}
	}

	return sb.String(), nil
}

func nodeLine(safeID string, n *domain.ActionNode) string {
	opener, closer := "[", "]"
	switch {
	case domain.CombinatorOf(n.Kind) != domain.CombinatorNone:
		opener, closer = "{{", "}}"
	case n.Loading:
		opener, closer = "(", ")"
	}

	label := n.Kind
	if n.ID != "" {
		label = n.ID + " <br/> " + n.Kind
	}
	if n.Condition != "" {
		label += " <br/> if " + escape(n.Condition)
	}
	if n.Timeout > 0 {
		// Annotate node with Timeout clock icon
		label += fmt.Sprintf(" <br/> ⏱️ %dms", n.Timeout)
	}
	if n.Retry != nil && n.Retry.Attempts > 1 {
		label += fmt.Sprintf(" <br/> 🔁 x%d", n.Retry.Attempts)
	}
	return fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer)
}

func edges(sb *strings.Builder, safeID, path string, n *domain.ActionNode) error {
	children, err := domain.Children(n)
	if err != nil {
		return err
	}
	var conditions []string
	if domain.CombinatorOf(n.Kind) == domain.CombinatorConditional {
		branches, _ := domain.DecodeBranches(n.Params[domain.ParamBranches])
		for _, b := range branches {
			conditions = append(conditions, b.Condition)
		}
	}

	for _, c := range children {
		to := sanitizeMermaidID(path + "." + c.Path)
		arrow := "-->"
		switch prefix, index := splitPath(c.Path); prefix {
		case "params.actions":
			if n.Kind == domain.KindSequence {
				arrow = fmt.Sprintf("-- \"%d\" -->", index+1)
			}
		case "params.default":
			arrow = "-- \"else\" -->"
		case "params.itemActions":
			arrow = "-- \"each\" -->"
		case "onSuccess":
			arrow = "-- \"onSuccess\" -->"
		case "onError":
			arrow = "-. \"onError\" .->"
		default:
			if b, ok := branchIndex(prefix); ok && b < len(conditions) {
				arrow = fmt.Sprintf("-- \"%s\" -->", escape(conditions[b]))
			}
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, to))
	}
	return nil
}

// splitPath splits "params.actions[2]" into "params.actions" and 2.
func splitPath(p string) (string, int) {
	open := strings.LastIndexByte(p, '[')
	if open < 0 || !strings.HasSuffix(p, "]") {
		return p, 0
	}
	i, err := strconv.Atoi(p[open+1 : len(p)-1])
	if err != nil {
		return p, 0
	}
	return p[:open], i
}

// branchIndex extracts i from "params.branches[i].actions".
func branchIndex(prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(prefix, "params.branches[")
	if !ok {
		return 0, false
	}
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return 0, false
	}
	i, err := strconv.Atoi(rest[:end])
	return i, err == nil
}

// escape replaces double quotes, which would end a Mermaid label.
func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", "[", "_", "]", "")
	return r.Replace(id)
}

func sortedKeys(m map[string]domain.Status) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
