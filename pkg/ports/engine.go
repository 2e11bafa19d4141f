package ports

import (
	"context"

	"github.com/aretw0/sculpt/pkg/domain"
)

// SlotService is the surface adapters (HTTP, MCP) drive.
// It is implemented by session.Manager.
type SlotService interface {
	// Actions lists the action types the service can dispatch.
	Actions() []string

	// LoadOrInit returns the slot state, creating it from the initial state if needed.
	LoadOrInit(ctx context.Context, slotID string) (domain.Value, error)

	// Dispatch applies an action to a slot and persists the result.
	Dispatch(ctx context.Context, slotID, action string, payload any) (*domain.Transition, error)

	// Reset restores a slot to the initial state.
	Reset(ctx context.Context, slotID string) (*domain.Transition, error)

	// Delete removes a slot.
	Delete(ctx context.Context, slotID string) error

	// List returns the IDs of all slots.
	List(ctx context.Context) ([]string, error)
}
