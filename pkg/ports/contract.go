package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore implementation
// adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	slotID := "contract-test-slot-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		// 1. Create a state
		state := domain.MustFromNative(map[string]any{
			"foo":   "bar",
			"count": 42,
			"ratio": 0.5,
			"tags":  []any{"a", nil, true},
			"nested": map[string]any{
				"empty": map[string]any{},
			},
		})

		// 2. Save
		err := store.Save(ctx, slotID, state)
		require.NoError(t, err, "Save should not return error")

		// 3. Load
		loaded, err := store.Load(ctx, slotID)
		require.NoError(t, err, "Load should not return error")
		assert.True(t, domain.Equal(state, loaded), "loaded %v, saved %v", loaded, state)

		// Integers must not degrade to floats through serialization.
		count, ok := domain.Lookup(loaded, domain.Path{"count"})
		require.True(t, ok)
		assert.Equal(t, domain.Int(42), count)
	})

	t.Run("Key Order Is Preserved", func(t *testing.T) {
		state := domain.NewRecord(
			domain.Field{Key: "z", Value: domain.Int(1)},
			domain.Field{Key: "a", Value: domain.Int(2)},
		)
		require.NoError(t, store.Save(ctx, slotID+"-order", state))
		defer func() { _ = store.Delete(ctx, slotID+"-order") }()

		loaded, err := store.Load(ctx, slotID+"-order")
		require.NoError(t, err)
		rec, ok := loaded.(*domain.Record)
		require.True(t, ok)
		assert.Equal(t, []string{"z", "a"}, rec.Keys())
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, slotID, domain.MustFromNative(map[string]any{"v": 1})))
		require.NoError(t, store.Save(ctx, slotID, domain.MustFromNative(map[string]any{"v": 2})))

		loaded, err := store.Load(ctx, slotID)
		require.NoError(t, err)
		v, _ := domain.Lookup(loaded, domain.Path{"v"})
		assert.Equal(t, domain.Int(2), v)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+slotID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		// Setup
		err := store.Save(ctx, slotID, domain.NewRecord())
		require.NoError(t, err)

		// Delete
		err = store.Delete(ctx, slotID)
		require.NoError(t, err, "Delete should not return error")

		// Verify gone
		_, err = store.Load(ctx, slotID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")

		// Deleting twice is not an error
		assert.NoError(t, store.Delete(ctx, slotID))
	})

	t.Run("List", func(t *testing.T) {
		// Setup: Create 2 slots
		id1 := slotID + "-1"
		id2 := slotID + "-2"
		_ = store.Save(ctx, id1, domain.NewRecord())
		_ = store.Save(ctx, id2, domain.NewSequence())

		// Ensure cleanup
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		// List
		slots, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, slots, id1)
		assert.Contains(t, slots, id2)
	})
}

// RunLockerContract verifies that a DistributedLocker provides mutual exclusion.
func RunLockerContract(t *testing.T, locker DistributedLocker) {
	ctx := context.Background()
	key := "contract-lock-" + time.Now().Format("20060102150405")

	t.Run("Lock and Unlock", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))

		// Reacquire after release
		unlock, err = locker.Lock(ctx, key, time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
	})

	t.Run("Blocks Until Context Done", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		defer func() { _ = unlock(ctx) }()

		short, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(short, key, time.Second)
		assert.Error(t, err, "second Lock on a held key must fail once the context ends")
	})

	t.Run("Mutual Exclusion", func(t *testing.T) {
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			holders int
			maxSeen int
		)
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := locker.Lock(ctx, key+"-mx", 5*time.Second)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				holders++
				if holders > maxSeen {
					maxSeen = holders
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				holders--
				mu.Unlock()
				assert.NoError(t, unlock(ctx))
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, maxSeen)
	})
}

// RunActionSourceContract verifies that an ActionSource returns exactly the
// definitions in want, ordered by name, and reports unknown names.
func RunActionSourceContract(t *testing.T, source ActionSource, want []ActionDefinition) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetAction_Success", func(t *testing.T) {
		for _, def := range want {
			got, err := source.GetAction(ctx, def.Name)
			require.NoError(t, err, "unexpected error getting action %s", def.Name)
			assert.Equal(t, def.Name, got.Name)
			assert.Equal(t, def.Description, got.Description)
			assert.Len(t, got.Ops, len(def.Ops))
		}
	})

	t.Run("GetAction_NotFound", func(t *testing.T) {
		_, err := source.GetAction(ctx, "non-existent-action")
		assert.ErrorIs(t, err, domain.ErrUnknownAction)
	})

	t.Run("ListActions", func(t *testing.T) {
		defs, err := source.ListActions(ctx)
		require.NoError(t, err)

		var names []string
		for _, d := range defs {
			names = append(names, d.Name)
		}
		var wantNames []string
		for _, d := range want {
			wantNames = append(wantNames, d.Name)
		}
		assert.ElementsMatch(t, wantNames, names)
		assert.IsIncreasing(t, names)
	})
}
