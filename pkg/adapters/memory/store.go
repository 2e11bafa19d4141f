package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/sculpt/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
//
// Snapshots are immutable, so they are kept by reference: a Load returns
// the exact value that was saved and no copying is needed for isolation.
type Store struct {
	data map[string]domain.Value
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.Value),
	}
}

// Save persists the snapshot in memory.
func (s *Store) Save(ctx context.Context, slotID string, state domain.Value) error {
	if state == nil {
		state = domain.Null()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[slotID] = state
	return nil
}

// Load retrieves the snapshot from memory.
func (s *Store) Load(ctx context.Context, slotID string) (domain.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[slotID]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return state, nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, slotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, slotID)
	return nil
}

// List returns the stored slots in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := make([]string, 0, len(s.data))
	for id := range s.data {
		slots = append(slots, id)
	}
	sort.Strings(slots)
	return slots, nil
}
