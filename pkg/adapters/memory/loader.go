package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/ports"
)

// Loader implements ports.ActionSource using an in-memory map.
type Loader struct {
	actions map[string]ports.ActionDefinition
}

// NewLoader creates a new Loader from action definitions.
// This is handy for tests and for programs that declare reducers inline.
func NewLoader(defs ...ports.ActionDefinition) (*Loader, error) {
	actions := make(map[string]ports.ActionDefinition, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("action missing name")
		}
		if _, dup := actions[def.Name]; dup {
			return nil, fmt.Errorf("duplicate action: %s", def.Name)
		}
		actions[def.Name] = def
	}
	return &Loader{actions: actions}, nil
}

// GetAction retrieves a definition by name.
func (l *Loader) GetAction(ctx context.Context, name string) (ports.ActionDefinition, error) {
	def, ok := l.actions[name]
	if !ok {
		return ports.ActionDefinition{}, &domain.UnknownActionError{Action: name}
	}
	return def, nil
}

// ListActions returns all definitions ordered by name.
func (l *Loader) ListActions(ctx context.Context) ([]ports.ActionDefinition, error) {
	names := make([]string, 0, len(l.actions))
	for k := range l.actions {
		names = append(names, k)
	}
	sort.Strings(names) // Deterministic order

	defs := make([]ports.ActionDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, l.actions[name])
	}
	return defs, nil
}
