package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/aretw0/sculpt/internal/logging"
	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOptions_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithOptions(logging.Options{Level: slog.LevelInfo, Format: logging.FormatJSON, Writer: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("dispatch failed",
		"slot", "board",
		"error", errors.New("boom"),
		"path", domain.Path{"users", "a.b", "name"},
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dispatch failed", entry["msg"])
	assert.Equal(t, "board", entry["slot_id"])
	assert.Equal(t, "boom", entry["err"])
	assert.Equal(t, `users["a.b"].name`, entry["path"])
	assert.NotContains(t, entry, "slot")
	assert.NotContains(t, entry, "error")
}

func TestNewWithOptions_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithOptions(logging.Options{Level: slog.LevelDebug, Writer: &buf})
	require.NoError(t, err)

	logger.Debug("set", "path", domain.Path{"todos", "0"})
	assert.Contains(t, buf.String(), "path=todos.0")
}

func TestNewWithOptions_UnknownFormat(t *testing.T) {
	_, err := logging.NewWithOptions(logging.Options{Format: "xml"})
	assert.Error(t, err)
}

func TestNewNop(t *testing.T) {
	assert.False(t, logging.NewNop().Enabled(t.Context(), slog.LevelError))
}
