package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/sculpt/pkg/domain"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures a logger.
type Options struct {
	Level slog.Level
	// Format is FormatText (default) or FormatJSON.
	Format string
	// Writer defaults to Stderr, keeping Stdout free for command output and JSON-RPC.
	Writer io.Writer
}

// New creates a text logger on Stderr.
func New(level slog.Level) *slog.Logger {
	logger, _ := NewWithOptions(Options{Level: level})
	return logger
}

// NewWithOptions creates a configured application logger.
// It standardizes common keys (e.g., "error" -> "err", "slot" -> "slot_id")
// and renders paths in dotted notation.
func NewWithOptions(opts Options) (*slog.Logger, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	ho := &slog.HandlerOptions{Level: opts.Level, ReplaceAttr: replaceAttr}

	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		return slog.New(slog.NewTextHandler(w, ho)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, ho)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", opts.Format)
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case "error":
		a.Key = "err"
	case "slot":
		a.Key = "slot_id"
	}
	if a.Value.Kind() == slog.KindAny {
		if p, ok := a.Value.Any().(domain.Path); ok {
			a.Value = slog.StringValue(p.String())
		}
	}
	return a
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
