package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/aretw0/sculpt/internal/logging"
	"github.com/aretw0/sculpt/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// CreateLogger configures the application logger from a level name and an
// output format (text or json) and writes to w.
// "off" (or an empty level) disables logging.
func CreateLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	switch strings.ToLower(level) {
	case "", "off", "none":
		return logging.NewNop(), nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return logging.NewWithOptions(logging.Options{Level: l, Format: format, Writer: w})
}

// PrintSystemMessage prints a standardized system message.
func PrintSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// DebugHooks logs every produce call and dispatch at debug level.
func DebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnProduce: func(ctx context.Context, e *domain.ProduceEvent) {
			logger.DebugContext(ctx, "Produce",
				"duration", e.Duration, "drafts", e.Drafts, "changed", e.Changed, "err", e.Err)
		},
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			if e.Err != nil {
				logger.DebugContext(ctx, "Dispatch (Error)", "slot_id", e.SlotID, "action", e.Action, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "Dispatch", "slot_id", e.SlotID, "action", e.Action, "changed", e.Changed)
		},
	}
}
