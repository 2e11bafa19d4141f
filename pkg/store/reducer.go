package store

import (
	"context"
	"sort"

	"github.com/aretw0/sculpt"
	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/draft"
)

// Action is a named request to change state.
type Action struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Reducer edits a draft of the current state in response to an action.
// Returning an error aborts the dispatch and leaves the state untouched.
type Reducer func(d *draft.Draft, a Action) error

// Reducers maps action names to their reducer.
type Reducers map[string]Reducer

// Names returns the handled action names in ascending order.
func (r Reducers) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether an action is handled.
func (r Reducers) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// Reduce applies the reducer for a.Type to state through eng.
// Unknown actions yield *domain.UnknownActionError.
func (r Reducers) Reduce(ctx context.Context, eng *sculpt.Engine, state domain.Value, a Action) (domain.Value, error) {
	reducer, ok := r[a.Type]
	if !ok {
		return nil, &domain.UnknownActionError{Action: a.Type}
	}
	return eng.Produce(ctx, state, func(d *draft.Draft) error {
		return reducer(d, a)
	})
}
