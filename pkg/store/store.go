// Package store provides an in-process state container: a current snapshot
// that only changes through named reducers, with selector subscriptions.
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/sculpt"
	"github.com/aretw0/sculpt/internal/logging"
	"github.com/aretw0/sculpt/pkg/domain"
)

// Selector picks the slice of state a subscriber cares about.
type Selector func(state domain.Value) domain.Value

// Listener receives the selected slice after and before a change.
type Listener func(next, prev domain.Value)

type subscription struct {
	selector Selector
	listener Listener
	last     domain.Value
}

type notification struct {
	listener   Listener
	next, prev domain.Value
}

// Store holds the current snapshot. Dispatch and Reset are serialized;
// State is safe to call at any time.
type Store struct {
	mu       sync.RWMutex
	initial  domain.Value
	state    domain.Value
	reducers Reducers

	subs   map[int]*subscription
	nextID int

	engine *sculpt.Engine
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithEngine runs reducers through eng, inheriting its hooks and logger.
func WithEngine(eng *sculpt.Engine) Option {
	return func(s *Store) {
		s.engine = eng
	}
}

// WithLogger configures a logger for the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers hooks. Only OnDispatch is used here;
// produce hooks belong to the engine.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Store) {
		s.hooks = hooks
	}
}

// New creates a Store holding initial.
func New(initial domain.Value, reducers Reducers, opts ...Option) *Store {
	if initial == nil {
		initial = domain.Null()
	}
	s := &Store{
		initial:  initial,
		state:    initial,
		reducers: reducers,
		subs:     make(map[int]*subscription),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = sculpt.New(sculpt.WithLogger(s.logger))
	}
	return s
}

// State returns the current snapshot.
func (s *Store) State() domain.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Actions returns the names of all handled actions.
func (s *Store) Actions() []string {
	return s.reducers.Names()
}

// Dispatch runs the reducer registered for actionType and swaps in the
// result. Subscribers are notified after the swap, outside the lock, so a
// listener may dispatch again.
func (s *Store) Dispatch(ctx context.Context, actionType string, payload any) (domain.Value, error) {
	start := time.Now()
	s.mu.Lock()
	prev := s.state
	next, err := s.reducers.Reduce(ctx, s.engine, prev, Action{Type: actionType, Payload: payload})
	var pending []notification
	if err == nil {
		s.state = next
		pending = s.collect(next)
	}
	s.mu.Unlock()

	changed := err == nil && !domain.Same(prev, next)
	if err != nil {
		s.logger.DebugContext(ctx, "dispatch failed", "action", actionType, "error", err)
	} else {
		s.logger.DebugContext(ctx, "dispatch applied", "action", actionType, "changed", changed)
	}
	if s.hooks.OnDispatch != nil {
		s.hooks.OnDispatch(ctx, &domain.DispatchEvent{
			EventBase: domain.EventBase{Timestamp: start, Type: domain.EventDispatch},
			Action:    actionType,
			Changed:   changed,
			Err:       err,
		})
	}
	if err != nil {
		return nil, err
	}

	notify(pending)
	return next, nil
}

// Reset restores the initial snapshot and notifies subscribers.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = s.initial
	pending := s.collect(s.initial)
	s.mu.Unlock()

	notify(pending)
}

// Subscribe registers listener for changes of the slice chosen by selector
// (the whole state when nil). The listener only fires when the new slice is
// not shallowly equal to the previous one. The returned func unsubscribes.
func (s *Store) Subscribe(selector Selector, listener Listener) (unsubscribe func()) {
	if selector == nil {
		selector = func(v domain.Value) domain.Value { return v }
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = &subscription{
		selector: selector,
		listener: listener,
		last:     selector(s.state),
	}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// collect must be called with s.mu held.
func (s *Store) collect(state domain.Value) []notification {
	var pending []notification
	for _, sub := range s.subs {
		selected := sub.selector(state)
		if domain.ShallowEqual(selected, sub.last) {
			continue
		}
		pending = append(pending, notification{listener: sub.listener, next: selected, prev: sub.last})
		sub.last = selected
	}
	return pending
}

func notify(pending []notification) {
	for _, n := range pending {
		n.listener(n.next, n.prev)
	}
}
