package sculpt

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/draft"
)

// Engine is the high-level entry point for the Sculpt library.
// It wraps the draft package with logging and lifecycle hooks.
// An Engine holds no per-call state and is safe for concurrent use.
type Engine struct {
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	Name   string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithName labels the engine in logs.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// New initializes a new Sculpt Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("engine", eng.Name)
	}
	return eng
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Hooks returns the registered lifecycle hooks.
func (e *Engine) Hooks() domain.LifecycleHooks {
	return e.hooks
}

// Produce applies recipe to a draft of base and returns the next state.
// See draft.Produce for the sharing and error guarantees.
func (e *Engine) Produce(ctx context.Context, base domain.Value, recipe draft.Recipe) (domain.Value, error) {
	return e.ProduceWith(ctx, base, func(d *draft.Draft) (any, error) {
		return nil, recipe(d)
	})
}

// ProduceWith is Produce for recipes that may return a replacement value.
func (e *Engine) ProduceWith(ctx context.Context, base domain.Value, recipe draft.ReplaceRecipe) (domain.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := draft.Execute(base, recipe)
	elapsed := time.Since(start)

	if err != nil {
		e.logger.DebugContext(ctx, "produce failed", "duration", elapsed, "error", err)
	} else {
		e.logger.DebugContext(ctx, "produce finished",
			"duration", elapsed,
			"drafts", out.Drafts,
			"changed", out.Changed,
			"replaced", out.Replaced,
		)
	}

	if e.hooks.OnProduce != nil {
		e.hooks.OnProduce(ctx, &domain.ProduceEvent{
			EventBase: domain.EventBase{Timestamp: start, Type: domain.EventProduce},
			Duration:  elapsed,
			Drafts:    out.Drafts,
			Changed:   out.Changed,
			Replaced:  out.Replaced,
			Err:       err,
		})
	}

	if err != nil {
		return nil, err
	}
	return out.Value, nil
}

var defaultEngine = New()

// Produce runs recipe with a default engine that neither logs nor emits hooks.
func Produce(base domain.Value, recipe draft.Recipe) (domain.Value, error) {
	return defaultEngine.Produce(context.Background(), base, recipe)
}

// ProduceNative converts a plain Go value (maps, slices, structs) into a
// state tree and applies recipe to it.
func ProduceNative(base any, recipe draft.Recipe) (domain.Value, error) {
	v, err := domain.FromNative(base)
	if err != nil {
		return nil, err
	}
	return Produce(v, recipe)
}
