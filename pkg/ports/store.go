package ports

import (
	"context"

	"github.com/aretw0/sculpt/pkg/domain"
)

// SnapshotStore defines the interface for persisting state snapshots.
// Each slot holds the latest immutable value produced for it.
type SnapshotStore interface {
	// Save persists the snapshot for a given slot ID.
	Save(ctx context.Context, slotID string, state domain.Value) error

	// Load retrieves the snapshot for a given slot ID.
	// Returns domain.ErrSnapshotNotFound if the slot does not exist.
	Load(ctx context.Context, slotID string) (domain.Value, error)

	// Delete removes the snapshot for a given slot ID.
	Delete(ctx context.Context, slotID string) error

	// List returns the IDs of all stored slots.
	List(ctx context.Context) ([]string, error)
}
