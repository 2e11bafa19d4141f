package dsl_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/dsl"
	"github.com/aretw0/sculpt/pkg/ports"
	"github.com/aretw0/sculpt/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const todoDoc = `
initial:
  title: groceries
  count: 0
  todos: []
  meta:
    owner: ana
actions:
  add_todo:
    description: Append a todo
    ops:
      - {op: append, path: todos, value: {title: $payload.title, done: false}}
      - {op: inc, path: count}
  toggle:
    - {op: set, path: "todos.{payload.index}.done", value: true}
  rename:
    - {op: set, path: title, value: $payload}
  drop:
    - {op: remove, path: todos, index: $payload}
    - {op: inc, path: count, value: -1}
  tag:
    - {op: append, path: tags, value: $payload}
  untag:
    - {op: remove, path: tags, value: $payload}
  first:
    - {op: insert, path: todos, index: 0, value: {title: $payload, done: false}}
  configure:
    - {op: merge, path: meta, value: $payload}
  settings:
    - {op: merge, path: settings, value: {theme: dark}}
  forget_owner:
    - {op: delete, path: meta.owner}
  weigh:
    - {op: inc, path: weight, value: 0.5}
`

func newStore(t *testing.T) *store.Store {
	t.Helper()
	doc, err := dsl.Parse([]byte(todoDoc))
	require.NoError(t, err)
	s, err := doc.Store()
	require.NoError(t, err)
	return s
}

func at(t *testing.T, v domain.Value, path string) domain.Value {
	t.Helper()
	got, ok := domain.Lookup(v, domain.MustParsePath(path))
	require.True(t, ok, "missing %s in %v", path, v)
	return got
}

func TestParse(t *testing.T) {
	doc, err := dsl.Parse([]byte(todoDoc))
	require.NoError(t, err)

	rec, ok := doc.Initial.(*domain.Record)
	require.True(t, ok)
	assert.Equal(t, []string{"title", "count", "todos", "meta"}, rec.Keys())

	var names []string
	for _, a := range doc.Actions {
		names = append(names, a.Name)
	}
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "add_todo")
	assert.Equal(t, "Append a todo", doc.Actions[0].Description)
	assert.Len(t, doc.Actions[0].Ops, 2)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown op":    "actions:\n  a:\n    - {op: explode, path: x}\n",
		"unknown field": "actions:\n  a:\n    - {op: set, path: x, value: 1, by: 2}\n",
		"missing value": "actions:\n  a:\n    - {op: set, path: x}\n",
		"missing path":  "actions:\n  a:\n    - {op: delete}\n",
		"scalar action": "actions:\n  a: 3\n",
		"bad yaml":      "actions: [",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := dsl.Parse([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestActions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		action  string
		payload any
		check   func(t *testing.T, next domain.Value)
	}{
		{
			name:    "append and inc",
			action:  "add_todo",
			payload: map[string]any{"title": "milk"},
			check: func(t *testing.T, next domain.Value) {
				assert.Equal(t, domain.String("milk"), at(t, next, "todos.0.title"))
				assert.Equal(t, domain.Bool(false), at(t, next, "todos.0.done"))
				assert.Equal(t, domain.Int(1), at(t, next, "count"))
			},
		},
		{
			name:    "set from whole payload",
			action:  "rename",
			payload: "errands",
			check: func(t *testing.T, next domain.Value) {
				assert.Equal(t, domain.String("errands"), at(t, next, "title"))
			},
		},
		{
			name:    "append creates a missing sequence",
			action:  "tag",
			payload: "urgent",
			check: func(t *testing.T, next domain.Value) {
				assert.Equal(t, domain.String("urgent"), at(t, next, "tags.0"))
			},
		},
		{
			name:    "merge into record",
			action:  "configure",
			payload: map[string]any{"color": "blue"},
			check: func(t *testing.T, next domain.Value) {
				assert.Equal(t, domain.String("ana"), at(t, next, "meta.owner"))
				assert.Equal(t, domain.String("blue"), at(t, next, "meta.color"))
			},
		},
		{
			name:   "merge creates a missing record",
			action: "settings",
			check: func(t *testing.T, next domain.Value) {
				assert.Equal(t, domain.String("dark"), at(t, next, "settings.theme"))
			},
		},
		{
			name:   "delete",
			action: "forget_owner",
			check: func(t *testing.T, next domain.Value) {
				_, ok := domain.Lookup(next, domain.Path{"meta", "owner"})
				assert.False(t, ok)
			},
		},
		{
			name:   "float inc from missing",
			action: "weigh",
			check: func(t *testing.T, next domain.Value) {
				assert.Equal(t, domain.Float(0.5), at(t, next, "weight"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			next, err := s.Dispatch(ctx, tt.action, tt.payload)
			require.NoError(t, err)
			tt.check(t, next)
		})
	}
}

func TestSequenceOps(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		_, err := s.Dispatch(ctx, "add_todo", map[string]any{"title": title})
		require.NoError(t, err)
	}

	_, err := s.Dispatch(ctx, "toggle", map[string]any{"index": 1})
	require.NoError(t, err)
	assert.Equal(t, domain.Bool(true), at(t, s.State(), "todos.1.done"))
	assert.Equal(t, domain.Bool(false), at(t, s.State(), "todos.0.done"))

	_, err = s.Dispatch(ctx, "drop", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.String("b"), at(t, s.State(), "todos.0.title"))
	assert.Equal(t, domain.Int(2), at(t, s.State(), "count"))

	_, err = s.Dispatch(ctx, "first", "z")
	require.NoError(t, err)
	assert.Equal(t, domain.String("z"), at(t, s.State(), "todos.0.title"))

	_, err = s.Dispatch(ctx, "tag", "x")
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, "tag", "y")
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, "untag", "x")
	require.NoError(t, err)
	assert.Equal(t, "[\"y\"]", fmt.Sprint(at(t, s.State(), "tags")))
}

func TestStructuralSharing(t *testing.T) {
	s := newStore(t)
	before := s.State()

	next, err := s.Dispatch(context.Background(), "rename", "errands")
	require.NoError(t, err)
	assert.Same(t, at(t, before, "meta"), at(t, next, "meta"))
	assert.Same(t, at(t, before, "todos"), at(t, next, "todos"))
}

func TestActionErrorsLeaveStateUntouched(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		action  string
		payload any
		target  error
	}{
		{"add_todo", map[string]any{}, dsl.ErrPayload},
		{"toggle", map[string]any{"index": 9}, domain.ErrIndexOutOfRange},
		{"toggle", map[string]any{"index": map[string]any{}}, dsl.ErrPayload},
		{"drop", "zero", dsl.ErrInvalidOp},
		{"configure", "not a record", dsl.ErrInvalidOp},
	}
	for _, tc := range cases {
		t.Run(tc.action, func(t *testing.T) {
			s := newStore(t)
			before := s.State()
			_, err := s.Dispatch(ctx, tc.action, tc.payload)
			assert.ErrorIs(t, err, tc.target)
			assert.Same(t, before, s.State())
		})
	}
}

func TestBuilder(t *testing.T) {
	b := dsl.New()
	b.Action("add").
		Describe("Add a todo").
		Append("todos", map[string]any{"title": "$payload"}).
		Inc("count", 1)
	b.Action("clear").
		Set("todos", []any{}).
		Set("count", 0)

	loader, err := b.Build()
	require.NoError(t, err)

	ports.RunActionSourceContract(t, loader, b.Definitions())

	reducers, err := dsl.CompileSource(context.Background(), loader)
	require.NoError(t, err)
	assert.Equal(t, []string{"add", "clear"}, reducers.Names())

	s := store.New(domain.MustFromNative(map[string]any{"todos": []any{}, "count": 0}), reducers)
	_, err = s.Dispatch(context.Background(), "add", "bread")
	require.NoError(t, err)
	assert.Equal(t, domain.String("bread"), at(t, s.State(), "todos.0.title"))
}

func TestPathTokensFillOneSegment(t *testing.T) {
	b := dsl.New()
	b.Action("put_user").Set("users.{payload.id}", map[string]any{"name": "$payload.name"})
	b.Action("rename_user").Set(`users["{payload.id}"].name`, "$payload.name")
	reducers, err := b.Reducers()
	require.NoError(t, err)

	initial := domain.MustFromNative(map[string]any{
		"users": map[string]any{"admin": map[string]any{"role": "viewer"}},
	})
	s := store.New(initial, reducers)
	ctx := context.Background()

	for _, id := range []string{"admin.role", `x"]`, "[0]"} {
		_, err := s.Dispatch(ctx, "put_user", map[string]any{"id": id, "name": "owned"})
		require.NoError(t, err, id)

		got, ok := domain.Lookup(s.State(), domain.Path{"users", id, "name"})
		require.True(t, ok, id)
		assert.Equal(t, domain.String("owned"), got)
	}
	assert.Equal(t, domain.String("viewer"), at(t, s.State(), "users.admin.role"))

	_, err = s.Dispatch(ctx, "rename_user", map[string]any{"id": "admin.role", "name": "renamed"})
	require.NoError(t, err)
	got, ok := domain.Lookup(s.State(), domain.Path{"users", "admin.role", "name"})
	require.True(t, ok)
	assert.Equal(t, domain.String("renamed"), got)
	assert.Equal(t, domain.String("viewer"), at(t, s.State(), "users.admin.role"))
}

func TestBuilder_InvalidOp(t *testing.T) {
	b := dsl.New()
	b.Action("broken").Insert("todos", nil, "x")

	_, err := b.Build()
	assert.ErrorIs(t, err, dsl.ErrInvalidOp)
}

func TestCompile_Duplicate(t *testing.T) {
	def := ports.ActionDefinition{Name: "a"}
	_, err := dsl.Compile(def, def)
	assert.Error(t, err)
}
