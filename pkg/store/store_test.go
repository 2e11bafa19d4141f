package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/draft"
	"github.com/aretw0/sculpt/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterReducers() store.Reducers {
	return store.Reducers{
		"increment": func(d *draft.Draft, a store.Action) error {
			n, _ := d.Leaf("count")
			cur, _ := n.AsInt()
			by, _ := a.Payload.(int)
			return d.Set("count", cur+int64(by)+1)
		},
		"decrement": func(d *draft.Draft, a store.Action) error {
			n, _ := d.Leaf("count")
			cur, _ := n.AsInt()
			by, ok := a.Payload.(int)
			if !ok {
				by = 1
			}
			return d.Set("count", cur-int64(by))
		},
		"rename": func(d *draft.Draft, a store.Action) error {
			return d.SetIn("meta.name", a.Payload)
		},
		"noop": func(d *draft.Draft, a store.Action) error {
			return nil
		},
		"fail": func(d *draft.Draft, a store.Action) error {
			_ = d.Set("count", -1)
			return errors.New("boom")
		},
	}
}

func newCounter(t *testing.T) *store.Store {
	t.Helper()
	initial := domain.MustFromNative(map[string]any{
		"count": 0,
		"meta":  map[string]any{"name": "counter"},
	})
	return store.New(initial, counterReducers())
}

func count(t *testing.T, v domain.Value) int64 {
	t.Helper()
	leaf, ok := domain.Lookup(v, domain.Path{"count"})
	require.True(t, ok)
	n, ok := leaf.(domain.Leaf).AsInt()
	require.True(t, ok)
	return n
}

func TestStore_Dispatch(t *testing.T) {
	s := newCounter(t)
	ctx := context.Background()

	next, err := s.Dispatch(ctx, "increment", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count(t, next))
	assert.Same(t, next, s.State())

	_, err = s.Dispatch(ctx, "decrement", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count(t, s.State()))
}

func TestStore_UnknownAction(t *testing.T) {
	s := newCounter(t)
	before := s.State()

	_, err := s.Dispatch(context.Background(), "explode", nil)

	var unknown *domain.UnknownActionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "explode", unknown.Action)
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
	assert.EqualError(t, err, "action (explode) is not handled by any case in the reducer")
	assert.Same(t, before, s.State())
}

func TestStore_ReducerErrorKeepsState(t *testing.T) {
	s := newCounter(t)
	before := s.State()

	_, err := s.Dispatch(context.Background(), "fail", nil)
	assert.EqualError(t, err, "boom")
	assert.Same(t, before, s.State())
}

func TestStore_NoopKeepsReference(t *testing.T) {
	s := newCounter(t)
	before := s.State()

	next, err := s.Dispatch(context.Background(), "noop", nil)
	require.NoError(t, err)
	assert.Same(t, before, next)
}

func TestStore_StructuralSharing(t *testing.T) {
	s := newCounter(t)
	before := s.State().(*domain.Record)

	next, err := s.Dispatch(context.Background(), "increment", 0)
	require.NoError(t, err)

	oldMeta, _ := before.Get("meta")
	newMeta, _ := next.(*domain.Record).Get("meta")
	assert.Same(t, oldMeta, newMeta)
}

func TestStore_Reset(t *testing.T) {
	s := newCounter(t)
	initial := s.State()

	_, err := s.Dispatch(context.Background(), "increment", 5)
	require.NoError(t, err)

	var fired int
	s.Subscribe(nil, func(next, prev domain.Value) { fired++ })

	s.Reset()
	assert.Same(t, initial, s.State())
	assert.Equal(t, 1, fired)
}

func TestStore_Actions(t *testing.T) {
	s := newCounter(t)
	assert.Equal(t, []string{"decrement", "fail", "increment", "noop", "rename"}, s.Actions())
}

func TestStore_SubscribeSelector(t *testing.T) {
	s := newCounter(t)
	ctx := context.Background()

	selectMeta := func(v domain.Value) domain.Value {
		meta, _ := domain.Lookup(v, domain.Path{"meta"})
		return meta
	}

	var calls []string
	unsubscribe := s.Subscribe(selectMeta, func(next, prev domain.Value) {
		calls = append(calls, fmt.Sprint(next)+" <- "+fmt.Sprint(prev))
	})

	// count changes do not touch meta
	_, err := s.Dispatch(ctx, "increment", 0)
	require.NoError(t, err)
	assert.Empty(t, calls)

	_, err = s.Dispatch(ctx, "rename", "clicks")
	require.NoError(t, err)
	assert.Equal(t, []string{`{"name":"clicks"} <- {"name":"counter"}`}, calls)

	// Writing an equal leaf keeps the meta record.
	_, err = s.Dispatch(ctx, "rename", "clicks")
	require.NoError(t, err)
	assert.Len(t, calls, 1)

	unsubscribe()
	unsubscribe()
	_, err = s.Dispatch(ctx, "rename", "taps")
	require.NoError(t, err)
	assert.Len(t, calls, 1)
}

func TestStore_SubscribeShallowEquality(t *testing.T) {
	initial := domain.MustFromNative(map[string]any{
		"todos": []any{map[string]any{"title": "a"}},
		"count": 0,
	})
	s := store.New(initial, store.Reducers{
		"touch": func(d *draft.Draft, a store.Action) error {
			return d.Set("count", 1)
		},
	})

	// Selector builds a fresh record each time from shared children.
	selectView := func(v domain.Value) domain.Value {
		todos, _ := domain.Lookup(v, domain.Path{"todos"})
		return domain.NewRecord(domain.Field{Key: "todos", Value: todos})
	}

	var fired int
	s.Subscribe(selectView, func(next, prev domain.Value) { fired++ })

	_, err := s.Dispatch(context.Background(), "touch", nil)
	require.NoError(t, err)
	assert.Zero(t, fired, "shallowly equal selection must not notify")
}

func TestStore_ListenerMayDispatch(t *testing.T) {
	s := newCounter(t)
	ctx := context.Background()

	var once sync.Once
	s.Subscribe(nil, func(next, prev domain.Value) {
		once.Do(func() {
			_, err := s.Dispatch(ctx, "increment", 0)
			assert.NoError(t, err)
		})
	})

	_, err := s.Dispatch(ctx, "increment", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count(t, s.State()))
}

func TestStore_ConcurrentDispatch(t *testing.T) {
	s := newCounter(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Dispatch(ctx, "increment", 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), count(t, s.State()))
}

func TestStore_DispatchHook(t *testing.T) {
	var events []*domain.DispatchEvent
	s := store.New(domain.NewRecord(), counterReducers(), store.WithLifecycleHooks(domain.LifecycleHooks{
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			events = append(events, e)
		},
	}))
	ctx := context.Background()

	_, _ = s.Dispatch(ctx, "increment", 0)
	_, _ = s.Dispatch(ctx, "noop", nil)
	_, _ = s.Dispatch(ctx, "missing", nil)

	require.Len(t, events, 3)
	assert.True(t, events[0].Changed)
	assert.Equal(t, domain.EventDispatch, events[0].Type)
	assert.False(t, events[1].Changed)
	assert.ErrorIs(t, events[2].Err, domain.ErrUnknownAction)
}
