package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/muesli/termenv"
)

// ChangesMarkdown renders changes as a markdown table for glamour.
func ChangesMarkdown(title string, changes []domain.Change) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString("# " + title + "\n\n")
	}
	if len(changes) == 0 {
		sb.WriteString("_No changes._\n")
		return sb.String()
	}

	sb.WriteString("| Op | Path | Value |\n")
	sb.WriteString("|----|------|-------|\n")
	for _, c := range changes {
		value := ""
		if c.Value != nil {
			value = "`" + strings.ReplaceAll(compact(c.Value), "|", "\\|") + "`"
		}
		sb.WriteString(fmt.Sprintf("| %s | `%s` | %s |\n", c.Op, displayPath(c.Path), value))
	}
	return sb.String()
}

// FormatChanges renders one line per change with colored markers:
// + added, ~ replaced, - removed.
func FormatChanges(changes []domain.Change, p termenv.Profile) string {
	var sb strings.Builder
	for _, c := range changes {
		marker, color := "~", "#facc15"
		switch c.Op {
		case domain.OpAdd:
			marker, color = "+", "#4ade80"
		case domain.OpRemove:
			marker, color = "-", "#f87171"
		}

		line := marker + " " + displayPath(c.Path)
		if c.Value != nil {
			line += ": " + compact(c.Value)
		}
		sb.WriteString(p.String(line).Foreground(p.Color(color)).String())
		sb.WriteString("\n")
	}
	return sb.String()
}

func displayPath(p string) string {
	if p == "" {
		return "(root)"
	}
	return p
}

func compact(v domain.Value) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
