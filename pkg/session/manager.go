package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/sculpt"
	"github.com/aretw0/sculpt/internal/logging"
	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/ports"
	"github.com/aretw0/sculpt/pkg/store"
)

const defaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Observer receives every committed transition, in commit order per slot.
// It runs while the slot lock is held, so it must not block or call back
// into the Manager for the same slot.
type Observer func(ctx context.Context, t *domain.Transition)

// Manager orchestrates slot access, ensuring safe concurrent operations.
// Each slot is a durable snapshot advanced only through named reducers.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store   ports.SnapshotStore
	initial domain.Value
	engine  *sculpt.Engine

	reducersMu sync.RWMutex
	reducers   store.Reducers

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger // Logger for internal events (like deferred errors)
	hooks   domain.LifecycleHooks

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObs   int
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets how long a distributed lock is held before it expires (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithEngine runs reducers through eng.
func WithEngine(eng *sculpt.Engine) Option {
	return func(m *Manager) {
		m.engine = eng
	}
}

// WithReducers sets the actions slots can be advanced with.
func WithReducers(reducers store.Reducers) Option {
	return func(m *Manager) {
		m.reducers = reducers
	}
}

// WithInitialState sets the snapshot new and reset slots start from (default: empty record).
func WithInitialState(initial domain.Value) Option {
	return func(m *Manager) {
		m.initial = initial
	}
}

// WithLifecycleHooks registers dispatch hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithObserver registers an observer at construction time.
func WithObserver(fn Observer) Option {
	return func(m *Manager) {
		m.observers[m.nextObs] = fn
		m.nextObs++
	}
}

// NewManager creates a new slot Manager with the given persistence store.
func NewManager(snapshots ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store:     snapshots,
		reducers:  store.Reducers{},
		initial:   domain.NewRecord(),
		locks:     make(map[string]*lockEntry),
		lockTTL:   defaultLockTTL,
		logger:    logging.NewNop(), // Default to no-op
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.engine == nil {
		m.engine = sculpt.New(sculpt.WithLogger(m.logger))
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(slotID) after unlocking.
func (m *Manager) acquire(slotID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[slotID]
	if !exists {
		entry = &lockEntry{}
		m.locks[slotID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(slotID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[slotID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, slotID)
	}
}

// Actions returns the names of the registered reducers.
func (m *Manager) Actions() []string {
	return m.currentReducers().Names()
}

// SetReducers swaps the reducer set, e.g. after action definitions changed.
// Dispatches already running finish with the previous set.
func (m *Manager) SetReducers(reducers store.Reducers) {
	if reducers == nil {
		reducers = store.Reducers{}
	}
	m.reducersMu.Lock()
	m.reducers = reducers
	m.reducersMu.Unlock()
}

func (m *Manager) currentReducers() store.Reducers {
	m.reducersMu.RLock()
	defer m.reducersMu.RUnlock()
	return m.reducers
}

// Initial returns the snapshot new slots start from.
func (m *Manager) Initial() domain.Value {
	return m.initial
}

// Load retrieves an existing slot from the store.
func (m *Manager) Load(ctx context.Context, slotID string) (domain.Value, error) {
	var state domain.Value
	err := m.WithLock(ctx, slotID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, slotID)
		return err
	})
	return state, err
}

// LoadOrInit loads a slot. If not found, it persists the initial state.
func (m *Manager) LoadOrInit(ctx context.Context, slotID string) (domain.Value, error) {
	var state domain.Value
	err := m.WithLock(ctx, slotID, func(ctx context.Context) error {
		var err error
		state, _, err = m.loadOrInit(ctx, slotID)
		return err
	})
	return state, err
}

// loadOrInit must run under the slot lock. created reports a fresh slot.
func (m *Manager) loadOrInit(ctx context.Context, slotID string) (state domain.Value, created bool, err error) {
	state, err = m.store.Load(ctx, slotID)
	if err == nil {
		return state, false, nil
	}
	if !errors.Is(err, domain.ErrSnapshotNotFound) {
		return nil, false, fmt.Errorf("failed to check slot existence: %w", err)
	}

	// Persist immediately to reserve the ID
	if err := m.store.Save(ctx, slotID, m.initial); err != nil {
		return nil, false, fmt.Errorf("failed to initialize slot: %w", err)
	}
	return m.initial, true, nil
}

// Save persists a snapshot for the slot as is.
func (m *Manager) Save(ctx context.Context, slotID string, state domain.Value) error {
	return m.WithLock(ctx, slotID, func(ctx context.Context) error {
		return m.store.Save(ctx, slotID, state)
	})
}

// Dispatch applies action to the slot (initializing it if needed) and
// persists the result. An action that changes nothing is not written.
func (m *Manager) Dispatch(ctx context.Context, slotID, action string, payload any) (*domain.Transition, error) {
	start := time.Now()
	var t *domain.Transition
	err := m.WithLock(ctx, slotID, func(ctx context.Context) error {
		reducers := m.currentReducers()
		if !reducers.Has(action) {
			return &domain.UnknownActionError{Action: action}
		}

		before, _, err := m.loadOrInit(ctx, slotID)
		if err != nil {
			return err
		}

		after, err := reducers.Reduce(ctx, m.engine, before, store.Action{Type: action, Payload: payload})
		if err != nil {
			return err
		}

		t = newTransition(slotID, action, before, after)
		if t.Changed() {
			if err := m.store.Save(ctx, slotID, after); err != nil {
				return fmt.Errorf("failed to persist slot: %w", err)
			}
		}
		m.notify(ctx, t)
		return nil
	})

	m.emitDispatch(ctx, start, slotID, action, t, err)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Reset restores the slot to the initial state.
func (m *Manager) Reset(ctx context.Context, slotID string) (*domain.Transition, error) {
	var t *domain.Transition
	err := m.WithLock(ctx, slotID, func(ctx context.Context) error {
		before, err := m.store.Load(ctx, slotID)
		if err != nil {
			if !errors.Is(err, domain.ErrSnapshotNotFound) {
				return err
			}
			before = domain.Null()
		}
		if err := m.store.Save(ctx, slotID, m.initial); err != nil {
			return fmt.Errorf("failed to reset slot: %w", err)
		}
		t = newTransition(slotID, "", before, m.initial)
		m.notify(ctx, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.DebugContext(ctx, "slot reset", "slot_id", slotID, "changed", t.Changed())
	return t, nil
}

// Delete removes the slot from the store.
func (m *Manager) Delete(ctx context.Context, slotID string) error {
	return m.WithLock(ctx, slotID, func(ctx context.Context) error {
		return m.store.Delete(ctx, slotID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// Observe registers fn for every committed transition and returns a func
// that removes it.
func (m *Manager) Observe(fn Observer) (cancel func()) {
	m.obsMu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.obsMu.Unlock()

	return func() {
		m.obsMu.Lock()
		delete(m.observers, id)
		m.obsMu.Unlock()
	}
}

func (m *Manager) notify(ctx context.Context, t *domain.Transition) {
	m.obsMu.RLock()
	defer m.obsMu.RUnlock()
	for _, fn := range m.observers {
		fn(ctx, t)
	}
}

func (m *Manager) emitDispatch(ctx context.Context, start time.Time, slotID, action string, t *domain.Transition, err error) {
	changed := err == nil && t.Changed()
	if err != nil {
		m.logger.DebugContext(ctx, "dispatch failed", "slot_id", slotID, "action", action, "error", err)
	} else {
		m.logger.DebugContext(ctx, "dispatch applied", "slot_id", slotID, "action", action, "changed", changed)
	}
	if m.hooks.OnDispatch != nil {
		m.hooks.OnDispatch(ctx, &domain.DispatchEvent{
			EventBase: domain.EventBase{Timestamp: start, Type: domain.EventDispatch},
			SlotID:    slotID,
			Action:    action,
			Changed:   changed,
			Err:       err,
		})
	}
}

func newTransition(slotID, action string, before, after domain.Value) *domain.Transition {
	return &domain.Transition{
		SlotID:  slotID,
		Action:  action,
		Before:  before,
		After:   after,
		Changes: domain.Diff(before, after),
	}
}

// WithLock executes a function while holding the lock for the slot.
func (m *Manager) WithLock(ctx context.Context, slotID string, fn func(context.Context) error) error {
	entry := m.acquire(slotID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(slotID)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, slotID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"slot_id", slotID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

var _ ports.SlotService = (*Manager)(nil)
