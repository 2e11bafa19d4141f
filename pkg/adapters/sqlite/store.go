// Package sqlite persists slot snapshots in a single SQLite table using the
// pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/sculpt/pkg/domain"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Store implements ports.SnapshotStore on top of SQLite. Each slot is one
// row holding the snapshot as a JSON blob.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the database at path. An empty path defaults to
// "sculpt.db"; ":memory:" keeps everything in process.
func New(path string) (*Store, error) {
	if path == "" {
		path = "sculpt.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		slot TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Save upserts the snapshot for slotID.
func (s *Store) Save(ctx context.Context, slotID string, state domain.Value) error {
	if slotID == "" {
		return fmt.Errorf("slotID cannot be empty")
	}
	if state == nil {
		state = domain.Null()
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO snapshots(slot, payload, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
		slotID, data, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Load retrieves the snapshot for slotID.
func (s *Store) Load(ctx context.Context, slotID string) (domain.Value, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE slot = ?`, slotID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	state, err := domain.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", slotID, err)
	}
	return state, nil
}

// Delete removes the row for slotID, if any.
func (s *Store) Delete(ctx context.Context, slotID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE slot = ?`, slotID); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// List returns all slot IDs in ascending order.
func (s *Store) List(ctx context.Context) (_ []string, retErr error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slot FROM snapshots ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("select slots: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && retErr == nil {
			retErr = cerr
		}
	}()

	slots := []string{}
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}
