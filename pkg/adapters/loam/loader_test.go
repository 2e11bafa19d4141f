package loam

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/dsl"
	"github.com/aretw0/sculpt/pkg/ports"
	"github.com/aretw0/sculpt/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates a temporary directory and initializes a Loam repository in it.
func setupTestRepo(t *testing.T) (string, core.Repository) {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	repo, err := loam.Init(absPath, loam.WithVersioning(false))
	require.NoError(t, err, "Failed to init loam repo")

	return absPath, repo
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for filename, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644))
	}
}

func TestLoader_Contract(t *testing.T) {
	_, repo := setupTestRepo(t)
	ctx := context.Background()

	docs := []core.Document{
		{
			ID: "add_todo.md",
			Content: `---
name: add_todo
description: Append a todo
ops:
  - op: append
    path: todos
    value: $payload
  - op: inc
    path: count
---
`,
		},
		{
			ID: "clear.md",
			Content: `---
name: clear
description: Drop every todo
ops:
  - op: set
    path: todos
    value: []
---
`,
		},
	}
	for _, doc := range docs {
		require.NoError(t, repo.Save(ctx, doc))
	}

	loader := New(loam.NewTypedRepository[ActionMetadata](repo))

	ports.RunActionSourceContract(t, loader, []ports.ActionDefinition{
		{Name: "add_todo", Description: "Append a todo", Ops: make([]map[string]any, 2)},
		{Name: "clear", Description: "Drop every todo", Ops: make([]map[string]any, 1)},
	})
}

func TestLoader_ImpliedNameAndDescription(t *testing.T) {
	tmpDir, repo := setupTestRepo(t)
	writeFiles(t, tmpDir, map[string]string{
		"reset_count.md": `---
ops:
  - op: set
    path: count
    value: 0
---
Sets the counter back to zero.`,
		"rename.json": `{
  "name": "rename",
  "ops": [{"op": "set", "path": "title", "value": "$payload"}]
}`,
	})

	loader := New(loam.NewTypedRepository[ActionMetadata](repo))
	ctx := context.Background()

	def, err := loader.GetAction(ctx, "reset_count")
	require.NoError(t, err)
	assert.Equal(t, "reset_count", def.Name)
	assert.Equal(t, "Sets the counter back to zero.", def.Description)
	require.Len(t, def.Ops, 1)
	assert.Equal(t, "set", def.Ops[0]["op"])

	defs, err := loader.ListActions(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "rename", defs[0].Name)
	assert.Equal(t, "reset_count", defs[1].Name)
}

func TestLoader_DetectsCollisions(t *testing.T) {
	tmpDir, repo := setupTestRepo(t)
	writeFiles(t, tmpDir, map[string]string{
		"foo.md": `---
name: foo
ops: []
---`,
		"bar.json": `{"name": "foo", "ops": []}`,
	})

	loader := New(loam.NewTypedRepository[ActionMetadata](repo))

	_, err := loader.ListActions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
	assert.Contains(t, err.Error(), "foo")
}

func TestLoader_CompilesToReducers(t *testing.T) {
	tmpDir, repo := setupTestRepo(t)
	writeFiles(t, tmpDir, map[string]string{
		"toggle.md": `---
ops:
  - op: set
    path: "todos.{payload}.done"
    value: true
---`,
	})

	loader := New(loam.NewTypedRepository[ActionMetadata](repo))
	reducers, err := dsl.CompileSource(context.Background(), loader)
	require.NoError(t, err)

	s := store.New(domain.MustFromNative(map[string]any{
		"todos": []any{map[string]any{"done": false}},
	}), reducers)

	next, err := s.Dispatch(context.Background(), "toggle", 0)
	require.NoError(t, err)
	done, _ := domain.Lookup(next, domain.Path{"todos", "0", "done"})
	assert.Equal(t, domain.Bool(true), done)
}

func TestNormalize(t *testing.T) {
	in := map[interface{}]interface{}{
		"op":    "merge",
		"value": map[interface{}]interface{}{"a": []any{map[interface{}]interface{}{1: "x"}}},
	}
	out := normalize(in)
	assert.Equal(t, map[string]any{
		"op":    "merge",
		"value": map[string]any{"a": []any{map[string]any{"1": "x"}}},
	}, out)
}
