package ports

import "context"

// ActionDefinition is a declarative reducer as stored outside the program:
// a named list of operations, each a plain map (see package dsl).
type ActionDefinition struct {
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Ops         []map[string]any `json:"ops" yaml:"ops"`
}

// ActionSource retrieves action definitions from a backing repository.
type ActionSource interface {
	// ListActions returns every definition the source holds.
	ListActions(ctx context.Context) ([]ActionDefinition, error)

	// GetAction returns a single definition by name.
	GetAction(ctx context.Context, name string) (ActionDefinition, error)
}

// Watchable defines an interface for sources that can notify about backend changes.
// This is typically used for hot-reload of action definitions.
type Watchable interface {
	// Watch returns a channel that receives the ID of each changed definition.
	// The channel is closed when ctx ends.
	Watch(ctx context.Context) (<-chan string, error)
}
