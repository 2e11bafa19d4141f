package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/sculpt/pkg/domain"
)

// MockStore structure
type MockStore struct{}

func (m *MockStore) Save(ctx context.Context, slotID string, state domain.Value) error {
	return nil
}
func (m *MockStore) Load(ctx context.Context, slotID string) (domain.Value, error) {
	return nil, domain.ErrSnapshotNotFound
}
func (m *MockStore) Delete(ctx context.Context, slotID string) error { return nil }
func (m *MockStore) List(ctx context.Context) ([]string, error)      { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(&MockStore{})
	ctx := context.Background()
	count := 10000

	// 1. Create and Delete many slots
	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("slot-%d", i)
		_, _ = mgr.LoadOrInit(ctx, sid)
		_ = mgr.Delete(ctx, sid)
	}

	// 2. Every lock entry must be released once its last holder leaves
	lockCount := len(mgr.locks)
	t.Logf("Slots Created: %d, Locks Remaining: %d", count, lockCount)

	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
