package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/sculpt/pkg/domain"
)

// Format selects the on-disk encoding of snapshots.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func (f Format) ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// Store implements ports.SnapshotStore using the local filesystem.
// It stores one file per slot in a configured directory.
type Store struct {
	BasePath string
	Format   Format
}

// Option configures the Store.
type Option func(*Store)

// WithFormat selects JSON (default) or YAML files.
func WithFormat(f Format) Option {
	return func(s *Store) {
		s.Format = f
	}
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".sculpt/slots".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".sculpt", "slots")
	}
	s := &Store{BasePath: basePath, Format: FormatJSON}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) path(slotID string) (string, error) {
	if slotID == "" {
		return "", fmt.Errorf("slotID cannot be empty")
	}
	if slotID != filepath.Base(slotID) || strings.HasPrefix(slotID, ".") {
		return "", fmt.Errorf("invalid slotID %q", slotID)
	}
	return filepath.Join(s.BasePath, slotID+s.Format.ext()), nil
}

func (s *Store) encode(state domain.Value) ([]byte, error) {
	if s.Format == FormatYAML {
		return domain.EncodeYAML(state)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (s *Store) decode(data []byte) (domain.Value, error) {
	if s.Format == FormatYAML {
		return domain.ParseYAML(data)
	}
	return domain.ParseJSON(data)
}

// Save persists the snapshot atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, slotID string, state domain.Value) error {
	destPath, err := s.path(slotID)
	if err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure slot directory: %w", err)
	}

	data, err := s.encode(state)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, ".tmp-"+slotID+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename replaces destPath in one step on every platform Go supports.
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to snapshot: %w", err)
	}
	return nil
}

// Load retrieves the snapshot for a slot.
func (s *Store) Load(ctx context.Context, slotID string) (domain.Value, error) {
	filePath, err := s.path(slotID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	state, err := s.decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", slotID, err)
	}
	return state, nil
}

// Delete removes the snapshot file.
func (s *Store) Delete(ctx context.Context, slotID string) error {
	filePath, err := s.path(slotID)
	if err != nil {
		return err
	}

	err = os.Remove(filePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot file: %w", err)
	}
	return nil
}

// List returns all stored slot IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}

	ext := s.Format.ext()
	var slots []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ext {
			continue
		}
		slots = append(slots, strings.TrimSuffix(name, ext))
	}
	sort.Strings(slots)
	return slots, nil
}
