package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/sculpt/pkg/adapters/memory"
	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/draft"
	"github.com/aretw0/sculpt/pkg/ports"
	"github.com/aretw0/sculpt/pkg/session"
	"github.com/aretw0/sculpt/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]domain.Value
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, slotID string, state domain.Value) error {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]domain.Value)
	}
	s.data[slotID] = state
	return nil
}

func (s *SlowStore) Load(ctx context.Context, slotID string) (domain.Value, error) {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.data[slotID]; ok {
		return state, nil
	}
	return nil, domain.ErrSnapshotNotFound
}

func (s *SlowStore) Delete(ctx context.Context, slotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, slotID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

// failingStore fails every Save.
type failingStore struct {
	ports.SnapshotStore
}

func (failingStore) Save(context.Context, string, domain.Value) error {
	return errors.New("disk full")
}

func counterOptions() []session.Option {
	return []session.Option{
		session.WithInitialState(domain.MustFromNative(map[string]any{
			"count":   0,
			"history": []any{},
		})),
		session.WithReducers(store.Reducers{
			"increment": func(d *draft.Draft, a store.Action) error {
				n, _ := d.Leaf("count")
				cur, _ := n.AsInt()
				return d.Set("count", cur+1)
			},
			"log": func(d *draft.Draft, a store.Action) error {
				h, err := d.Child("history")
				if err != nil {
					return err
				}
				return h.Append(a.Payload)
			},
			"noop": func(d *draft.Draft, a store.Action) error { return nil },
		}),
	}
}

func countOf(t *testing.T, v domain.Value) int64 {
	t.Helper()
	leaf, ok := domain.Lookup(v, domain.Path{"count"})
	require.True(t, ok)
	n, _ := leaf.(domain.Leaf).AsInt()
	return n
}

func TestManager_Locking(t *testing.T) {
	manager := session.NewManager(&SlowStore{}, counterOptions()...)
	ctx := context.Background()
	id := "race-test"

	// Read-Modify-Write without locking would lose updates.
	var wg sync.WaitGroup
	concurrentWrites := 10
	for i := 0; i < concurrentWrites; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Dispatch(ctx, id, "increment", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(concurrentWrites), countOf(t, state))
}

func TestManager_LoadOrInit(t *testing.T) {
	// Verify atomic creation
	manager := session.NewManager(&SlowStore{}, counterOptions()...)
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	results := make([]domain.Value, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			state, err := manager.LoadOrInit(ctx, id)
			assert.NoError(t, err)
			results[i] = state
		}(i)
	}
	wg.Wait()

	assert.Same(t, results[0], results[1])
	assert.Same(t, manager.Initial(), results[0])

	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), countOf(t, state))
}

func TestManager_Dispatch(t *testing.T) {
	manager := session.NewManager(memory.NewStore(), counterOptions()...)
	ctx := context.Background()

	tr, err := manager.Dispatch(ctx, "cart", "log", "added apple")
	require.NoError(t, err)

	assert.Equal(t, "cart", tr.SlotID)
	assert.Equal(t, "log", tr.Action)
	assert.True(t, tr.Changed())
	assert.Equal(t, []domain.Change{
		{Op: domain.OpAdd, Path: "history.0", Value: domain.String("added apple")},
	}, tr.Changes)

	// count was not touched and is shared
	beforeCount, _ := domain.Lookup(tr.Before, domain.Path{"count"})
	afterCount, _ := domain.Lookup(tr.After, domain.Path{"count"})
	assert.Equal(t, beforeCount, afterCount)

	stored, err := manager.Load(ctx, "cart")
	require.NoError(t, err)
	assert.Same(t, tr.After, stored)
}

func TestManager_DispatchUnknownAction(t *testing.T) {
	snapshots := memory.NewStore()
	manager := session.NewManager(snapshots, counterOptions()...)
	ctx := context.Background()

	_, err := manager.Dispatch(ctx, "cart", "teleport", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownAction)

	// Unknown actions do not create the slot
	_, err = snapshots.Load(ctx, "cart")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestManager_DispatchNoopSkipsWrite(t *testing.T) {
	slow := &SlowStore{}
	manager := session.NewManager(slow, counterOptions()...)
	ctx := context.Background()

	_, err := manager.LoadOrInit(ctx, "s")
	require.NoError(t, err)

	tr, err := manager.Dispatch(ctx, "s", "noop", nil)
	require.NoError(t, err)
	assert.False(t, tr.Changed())
	assert.Empty(t, tr.Changes)
}

func TestManager_DispatchSaveError(t *testing.T) {
	manager := session.NewManager(failingStore{memory.NewStore()}, counterOptions()...)

	_, err := manager.Dispatch(context.Background(), "s", "increment", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestManager_Reset(t *testing.T) {
	manager := session.NewManager(memory.NewStore(), counterOptions()...)
	ctx := context.Background()

	_, err := manager.Dispatch(ctx, "s", "increment", nil)
	require.NoError(t, err)

	tr, err := manager.Reset(ctx, "s")
	require.NoError(t, err)
	assert.Same(t, manager.Initial(), tr.After)
	assert.Equal(t, []domain.Change{
		{Op: domain.OpReplace, Path: "count", Value: domain.Int(0)},
	}, tr.Changes)

	// Resetting a missing slot creates it
	tr, err = manager.Reset(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, tr.Changed())
	ids, err := manager.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s", "fresh"}, ids)
}

func TestManager_Observe(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	record := func(_ context.Context, tr *domain.Transition) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, tr.SlotID+":"+tr.Action)
	}

	manager := session.NewManager(memory.NewStore(), append(counterOptions(), session.WithObserver(record))...)
	ctx := context.Background()

	var extra int
	cancel := manager.Observe(func(context.Context, *domain.Transition) { extra++ })

	_, err := manager.Dispatch(ctx, "a", "increment", nil)
	require.NoError(t, err)
	cancel()
	_, err = manager.Reset(ctx, "a")
	require.NoError(t, err)

	assert.Equal(t, []string{"a:increment", "a:"}, seen)
	assert.Equal(t, 1, extra)
}

func TestManager_ObserversSeeCommitOrder(t *testing.T) {
	var mu sync.Mutex
	var counts []int64
	record := func(_ context.Context, tr *domain.Transition) {
		v, _ := domain.Lookup(tr.After, domain.Path{"count"})
		n, _ := v.(domain.Leaf).AsInt()
		mu.Lock()
		defer mu.Unlock()
		counts = append(counts, n)
	}

	// The first dispatch stalls in its hook after committing; the second
	// commits and returns meanwhile.
	committed := make(chan struct{})
	var once sync.Once
	hooks := domain.LifecycleHooks{
		OnDispatch: func(context.Context, *domain.DispatchEvent) {
			stalled := false
			once.Do(func() {
				stalled = true
				close(committed)
			})
			if stalled {
				time.Sleep(50 * time.Millisecond)
			}
		},
	}
	opts := append(counterOptions(), session.WithObserver(record), session.WithLifecycleHooks(hooks))
	manager := session.NewManager(memory.NewStore(), opts...)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := manager.Dispatch(ctx, "s", "increment", nil)
		assert.NoError(t, err)
	}()

	<-committed
	_, err := manager.Dispatch(ctx, "s", "increment", nil)
	require.NoError(t, err)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{1, 2}, counts)
}

func TestManager_DispatchHooks(t *testing.T) {
	var events []*domain.DispatchEvent
	hooks := domain.LifecycleHooks{
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) { events = append(events, e) },
	}
	manager := session.NewManager(memory.NewStore(), append(counterOptions(), session.WithLifecycleHooks(hooks))...)
	ctx := context.Background()

	_, _ = manager.Dispatch(ctx, "a", "increment", nil)
	_, _ = manager.Dispatch(ctx, "a", "missing", nil)

	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].SlotID)
	assert.True(t, events[0].Changed)
	assert.ErrorIs(t, events[1].Err, domain.ErrUnknownAction)
}

func TestManager_Actions(t *testing.T) {
	manager := session.NewManager(memory.NewStore(), counterOptions()...)
	assert.Equal(t, []string{"increment", "log", "noop"}, manager.Actions())
}

// countingLocker records lock usage.
type countingLocker struct {
	mu       sync.Mutex
	acquired int
	ttl      time.Duration
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	l.acquired++
	l.ttl = ttl
	l.mu.Unlock()
	return func(context.Context) error { return errors.New("already expired") }, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &countingLocker{}
	manager := session.NewManager(memory.NewStore(),
		append(counterOptions(), session.WithLocker(locker), session.WithLockTTL(time.Second))...)

	// A failing unlock is logged, not returned
	_, err := manager.Dispatch(context.Background(), "a", "increment", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, time.Second, locker.ttl)
}

func TestManager_SetReducers(t *testing.T) {
	manager := session.NewManager(memory.NewStore(), counterOptions()...)
	ctx := context.Background()

	manager.SetReducers(store.Reducers{
		"double": func(d *draft.Draft, a store.Action) error {
			n, _ := d.Leaf("count")
			cur, _ := n.AsInt()
			return d.Set("count", cur*2+2)
		},
	})
	assert.Equal(t, []string{"double"}, manager.Actions())

	_, err := manager.Dispatch(ctx, "s1", "increment", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownAction)

	tr, err := manager.Dispatch(ctx, "s1", "double", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), countOf(t, tr.After))

	manager.SetReducers(nil)
	assert.Empty(t, manager.Actions())
}
