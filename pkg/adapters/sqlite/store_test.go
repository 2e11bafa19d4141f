package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/sculpt/pkg/adapters/sqlite"
	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.SnapshotStore = (*sqlite.Store)(nil)

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "slots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ports.RunSnapshotStoreContract(t, store)
}

func TestSQLiteStore_InMemory(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ports.RunSnapshotStoreContract(t, store)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "slots.db")
	ctx := context.Background()

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "cart", domain.MustFromNative(map[string]any{"items": []any{"apple"}})))
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Load(ctx, "cart")
	require.NoError(t, err)
	item, ok := domain.Lookup(got, domain.Path{"items", "0"})
	require.True(t, ok)
	assert.Equal(t, domain.String("apple"), item)

	slots, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cart"}, slots)
}

func TestSQLiteStore_RejectsEmptyID(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	assert.Error(t, store.Save(context.Background(), "", domain.NewRecord()))
}
