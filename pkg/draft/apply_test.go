package draft_test

import (
	"testing"

	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/draft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_ReplaysDiff(t *testing.T) {
	tests := []struct {
		name string
		old  any
		new  any
	}{
		{"record edits", map[string]any{"a": 1, "b": 2}, map[string]any{"a": 1, "b": 3, "c": 4}},
		{"removal", map[string]any{"a": 1, "b": 2}, map[string]any{"a": 1}},
		{"sequence grow", map[string]any{"l": []any{1}}, map[string]any{"l": []any{1, 2, 3}}},
		{"sequence shrink", map[string]any{"l": []any{1, 2, 3}}, map[string]any{"l": []any{9}}},
		{"kind change", map[string]any{"a": []any{1}}, map[string]any{"a": map[string]any{"b": 1}}},
		{"root replace", map[string]any{"a": 1}, []any{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldV := domain.MustFromNative(tt.old)
			newV := domain.MustFromNative(tt.new)

			out, err := draft.Apply(oldV, domain.Diff(oldV, newV))

			require.NoError(t, err)
			assert.True(t, domain.Equal(newV, out), "got %v", domain.ToNative(out))
		})
	}
}

func TestApply_KeysWithPathSyntax(t *testing.T) {
	tests := []struct {
		name     string
		old      any
		new      any
		wantPath string
	}{
		{"dotted key", map[string]any{"a.b": 1, "a": map[string]any{"b": 1}}, map[string]any{"a.b": 2, "a": map[string]any{"b": 1}}, `["a.b"]`},
		{"empty key", map[string]any{"": 1, "x": 1}, map[string]any{"": 2, "x": 1}, `[""]`},
		{"bracketed key", map[string]any{"x[0]": "a", "x": []any{"a"}}, map[string]any{"x[0]": "b", "x": []any{"a"}}, `["x[0]"]`},
		{"nested dotted key", map[string]any{"users": map[string]any{}}, map[string]any{"users": map[string]any{"admin.role": "owner"}}, `users["admin.role"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldV := domain.MustFromNative(tt.old)
			newV := domain.MustFromNative(tt.new)

			changes := domain.Diff(oldV, newV)
			require.Len(t, changes, 1)
			assert.Equal(t, tt.wantPath, changes[0].Path)

			out, err := draft.Apply(oldV, changes)

			require.NoError(t, err)
			assert.True(t, domain.Equal(newV, out), "got %v", domain.ToNative(out))
		})
	}
}

func TestApply_InitialLoad(t *testing.T) {
	v := domain.MustFromNative(map[string]any{"a": 1})

	out, err := draft.Apply(nil, domain.Diff(nil, v))

	require.NoError(t, err)
	assert.True(t, domain.Same(v, out))
}

func TestApply_InvalidChange(t *testing.T) {
	base := domain.MustFromNative(map[string]any{"a": 1})

	_, err := draft.Apply(base, []domain.Change{{Op: domain.OpReplace, Path: "x.y", Value: domain.Int(1)}})

	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}
