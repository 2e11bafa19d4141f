package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	shared := MustFromNative(map[string]any{"deep": []any{1, 2, 3}})

	tests := []struct {
		name     string
		old      Value
		new      Value
		wantDiff []Change // nil means we expect no changes
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new:  MustFromNative(map[string]any{"a": 1}),
			wantDiff: []Change{
				{Op: OpReplace, Path: "", Value: MustFromNative(map[string]any{"a": 1})},
			},
		},
		{
			name:     "No Changes",
			old:      MustFromNative(map[string]any{"a": 1, "b": []any{"x"}}),
			new:      MustFromNative(map[string]any{"a": 1, "b": []any{"x"}}),
			wantDiff: nil,
		},
		{
			name: "Record Edits",
			old:  MustFromNative(map[string]any{"a": 1, "b": 2, "gone": true}),
			new:  MustFromNative(map[string]any{"a": 1, "b": 3, "c": "new"}),
			wantDiff: []Change{
				{Op: OpReplace, Path: "b", Value: Int(3)},
				{Op: OpRemove, Path: "gone"},
				{Op: OpAdd, Path: "c", Value: String("new")},
			},
		},
		{
			name: "Sequence Growth",
			old:  MustFromNative(map[string]any{"h": []any{"start"}}),
			new:  MustFromNative(map[string]any{"h": []any{"start", "next"}}),
			wantDiff: []Change{
				{Op: OpAdd, Path: "h.1", Value: String("next")},
			},
		},
		{
			name: "Sequence Shrink Removes From Tail",
			old:  MustFromNative([]any{1, 2, 3}),
			new:  MustFromNative([]any{1}),
			wantDiff: []Change{
				{Op: OpRemove, Path: "2"},
				{Op: OpRemove, Path: "1"},
			},
		},
		{
			name: "Kind Change",
			old:  MustFromNative(map[string]any{"a": []any{1}}),
			new:  MustFromNative(map[string]any{"a": 1}),
			wantDiff: []Change{
				{Op: OpReplace, Path: "a", Value: Int(1)},
			},
		},
		{
			name:     "Shared Subtree Is Skipped",
			old:      NewRecord(Field{"s", shared}, Field{"n", Int(1)}),
			new:      NewRecord(Field{"s", shared}, Field{"n", Int(1)}),
			wantDiff: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if len(got) != len(tt.wantDiff) {
				t.Fatalf("Diff() returned %d changes, want %d: %+v", len(got), len(tt.wantDiff), got)
			}
			for i := range got {
				g, w := got[i], tt.wantDiff[i]
				if g.Op != w.Op || g.Path != w.Path {
					t.Errorf("change %d = %s %q, want %s %q", i, g.Op, g.Path, w.Op, w.Path)
				}
				if (g.Value == nil) != (w.Value == nil) || (g.Value != nil && !Equal(g.Value, w.Value)) {
					t.Errorf("change %d value = %v, want %v", i, g.Value, w.Value)
				}
			}
		})
	}
}

func TestChange_JSONRoundTrip(t *testing.T) {
	changes := Diff(
		MustFromNative(map[string]any{"a": 1, "b": map[string]any{"c": []any{1}}}),
		MustFromNative(map[string]any{"a": 2.5, "b": map[string]any{"c": []any{1, nil}}}),
	)

	data, err := json.Marshal(changes)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"op":"add","path":"b.c.1","value":null`) {
		t.Errorf("unexpected encoding: %s", data)
	}

	var decoded []Change
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(changes, decoded) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", decoded, changes)
	}
}
