package middleware_test

import (
	"context"

	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
type MockStore struct {
	data map[string]domain.Value
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]domain.Value),
	}
}

func (s *MockStore) Save(ctx context.Context, slotID string, state domain.Value) error {
	s.data[slotID] = state
	return nil
}

func (s *MockStore) Load(ctx context.Context, slotID string) (domain.Value, error) {
	state, ok := s.data[slotID]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return state, nil
}

func (s *MockStore) Delete(ctx context.Context, slotID string) error {
	delete(s.data, slotID)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ ports.SnapshotStore = (*MockStore)(nil)
