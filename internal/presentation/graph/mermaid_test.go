package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/sculpt/internal/presentation/graph"
	"github.com/aretw0/sculpt/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	state := domain.MustFromNative(map[string]any{
		"title": "todo",
		"items": []any{"a", "b"},
		"meta":  map[string]any{"owner": "ana"},
	})

	tests := []struct {
		name     string
		value    domain.Value
		overlay  *graph.Overlay
		contains []string
		excludes []string
	}{
		{
			name:  "Shapes",
			value: state,
			contains: []string{
				"graph TD\n",
				"root((\"root {}\"))",
				"n_items[[\"items [2]\"]]",
				"n_meta[\"meta {}\"]",
				"n_meta_owner(\"owner: ana\")",
				"root --> n_items",
				"n_items --> n_items_1",
			},
			excludes: []string{"classDef"},
		},
		{
			name:  "Sequence Root",
			value: domain.MustFromNative([]any{1}),
			contains: []string{
				"root((\"root [1]\"))",
				"n_0(\"0: 1\")",
			},
		},
		{
			name:  "Overlay",
			value: state,
			overlay: &graph.Overlay{Changes: []domain.Change{
				{Op: domain.OpReplace, Path: "meta.owner", Value: domain.String("bo")},
				{Op: domain.OpRemove, Path: "items.1"},
			}},
			contains: []string{
				"class root copied;",
				"class n_meta copied;",
				"class n_items copied;",
				"class n_meta_owner changed;",
			},
			excludes: []string{"class n_items_1"},
		},
		{
			name:     "Escapes Quotes",
			value:    domain.MustFromNative(map[string]any{"q": `say "hi"`}),
			contains: []string{`n_q("q: say 'hi'")`},
		},
		{
			name:  "Quoted Key",
			value: domain.MustFromNative(map[string]any{"a.b": 1}),
			overlay: &graph.Overlay{Changes: []domain.Change{
				{Op: domain.OpReplace, Path: `["a.b"]`, Value: domain.Int(1)},
			}},
			contains: []string{
				`n___a_b__("a.b: 1")`,
				"root --> n___a_b__",
				"class n___a_b__ changed;",
			},
			excludes: []string{`n_["`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.value, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expected output to contain %q\ngot:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("expected output not to contain %q\ngot:\n%s", unwanted, got)
				}
			}
		})
	}
}
