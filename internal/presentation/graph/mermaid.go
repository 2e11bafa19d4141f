package graph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/sculpt/pkg/domain"
)

// Overlay contains change data to visualize on the tree.
type Overlay struct {
	// Changes marks added/replaced nodes and the ancestors they were copied into.
	Changes []domain.Change
}

// maxLabel bounds leaf labels so large strings do not swamp the chart.
const maxLabel = 32

// GenerateMermaid produces a Mermaid flowchart of a state tree.
// It applies semantic styling:
// - Root: ((Circle))
// - Record: [Rectangle]
// - Sequence: [[Subroutine]]
// - Leaf: (Rounded) labelled key: value
// With an overlay, changed nodes and the ancestors copied on their behalf are
// styled; everything else is shared with the previous snapshot.
func GenerateMermaid(v domain.Value, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	writeNode(&sb, nil, "root", v)

	if overlay != nil && len(overlay.Changes) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef copied fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef changed fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		copied := make(map[string]bool)
		changed := make(map[string]bool)
		for _, c := range overlay.Changes {
			p, err := domain.ParsePath(c.Path)
			if err != nil {
				continue
			}
			for i := 0; i < len(p); i++ {
				copied[nodeID(p[:i])] = true
			}
			if c.Op == domain.OpRemove {
				// The removed node is gone; its parent was rewritten.
				continue
			}
			changed[nodeID(p)] = true
		}

		for _, id := range sortedKeys(copied) {
			if !changed[id] {
				sb.WriteString(fmt.Sprintf("    class %s copied;\n", id))
			}
		}
		for _, id := range sortedKeys(changed) {
			sb.WriteString(fmt.Sprintf("    class %s changed;\n", id))
		}
	}

	return sb.String()
}

func writeNode(sb *strings.Builder, path domain.Path, label string, v domain.Value) {
	id := nodeID(path)
	safeLabel := escape(label)

	switch x := v.(type) {
	case *domain.Record:
		opener, closer := "[", "]"
		if len(path) == 0 {
			opener, closer = "((", "))"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s {}\"%s\n", id, opener, safeLabel, closer))
		x.Range(func(k string, child domain.Value) bool {
			childPath := path.Append(k)
			writeNode(sb, childPath, k, child)
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", id, nodeID(childPath)))
			return true
		})
	case *domain.Sequence:
		opener, closer := "[[", "]]"
		if len(path) == 0 {
			opener, closer = "((", "))"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s [%d]\"%s\n", id, opener, safeLabel, x.Len(), closer))
		for i := 0; i < x.Len(); i++ {
			item, _ := x.At(i)
			childPath := path.Append(strconv.Itoa(i))
			writeNode(sb, childPath, strconv.Itoa(i), item)
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", id, nodeID(childPath)))
		}
	case domain.Leaf:
		text := x.String()
		if r := []rune(text); len(r) > maxLabel {
			text = string(r[:maxLabel]) + "…"
		}
		sb.WriteString(fmt.Sprintf("    %s(\"%s: %s\")\n", id, safeLabel, escape(text)))
	}
}

func nodeID(p domain.Path) string {
	if len(p) == 0 {
		return "root"
	}
	return "n_" + sanitizeMermaidID(p.String())
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

// sanitizeMermaidID keeps ASCII letters and digits; quoted path segments
// bring brackets and quotes that Mermaid does not accept in ids.
func sanitizeMermaidID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, id)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
