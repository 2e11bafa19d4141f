package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/sculpt/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "sculpt:slot:"

// Store implements ports.SnapshotStore using Redis.
//
// Each snapshot is a JSON string under prefix+slotID. A sorted set at
// prefix+"index" lists slot IDs scored by expiry time so List does not
// need to SCAN the keyspace. Entries without TTL are scored 0.
type Store struct {
	client backend.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix (default "sculpt:slot:").
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires snapshots after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// NewFromClient wraps an existing go-redis client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New creates a Store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromURL connects using a redis:// URL.
func NewFromURL(url string, opts ...Option) (*Store, error) {
	o, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewFromClient(backend.NewClient(o), opts...), nil
}

// Client returns the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() backend.UniversalClient {
	return s.client
}

func (s *Store) key(slotID string) string { return s.prefix + slotID }
func (s *Store) indexKey() string         { return s.prefix + "index" }

func score(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}

// Save persists the snapshot and updates the index in one transaction.
func (s *Store) Save(ctx context.Context, slotID string, state domain.Value) error {
	if state == nil {
		state = domain.Null()
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	var expiry float64
	if s.ttl > 0 {
		expiry = score(time.Now().Add(s.ttl))
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(slotID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: expiry, Member: slotID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save snapshot to redis: %w", err)
	}
	return nil
}

// Load retrieves the snapshot for a slot.
func (s *Store) Load(ctx context.Context, slotID string) (domain.Value, error) {
	data, err := s.client.Get(ctx, s.key(slotID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot from redis: %w", err)
	}

	state, err := domain.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", slotID, err)
	}
	return state, nil
}

// Delete removes the snapshot and its index entry.
func (s *Store) Delete(ctx context.Context, slotID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(slotID))
	pipe.ZRem(ctx, s.indexKey(), slotID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete snapshot from redis: %w", err)
	}
	return nil
}

// List returns the indexed slot IDs. Expired entries are pruned lazily.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if s.ttl > 0 {
		now := strconv.FormatFloat(score(time.Now()), 'f', 3, 64)
		if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "(0", now).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune slot index: %w", err)
		}
	}

	slots, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
