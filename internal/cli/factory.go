package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/aretw0/sculpt"
	"github.com/aretw0/sculpt/pkg/adapters/file"
	loamAdapter "github.com/aretw0/sculpt/pkg/adapters/loam"
	"github.com/aretw0/sculpt/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/sculpt/pkg/adapters/redis"
	"github.com/aretw0/sculpt/pkg/adapters/sqlite"
	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/aretw0/sculpt/pkg/dsl"
	"github.com/aretw0/sculpt/pkg/persistence/middleware"
	"github.com/aretw0/sculpt/pkg/ports"
	"github.com/aretw0/sculpt/pkg/session"
	"github.com/aretw0/sculpt/pkg/store"
)

// Runtime is a slot manager assembled from a Config, plus what it owns.
type Runtime struct {
	Config  Config
	Manager *session.Manager
	// Watcher reports action definition changes when Config.Actions is set.
	Watcher ports.Watchable

	document *dsl.Document
	source   ports.ActionSource
	closers  []io.Closer
	logger   *slog.Logger
}

// Close releases backend connections.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i].Close())
	}
	return errors.Join(errs...)
}

// Reload recompiles the action definitions and swaps them into the manager.
// On failure the previous reducers stay active.
func (r *Runtime) Reload(ctx context.Context) error {
	reducers, err := r.reducers(ctx)
	if err != nil {
		return err
	}
	r.Manager.SetReducers(reducers)
	r.logger.Info("Actions reloaded", "actions", reducers.Names())
	return nil
}

func (r *Runtime) reducers(ctx context.Context) (store.Reducers, error) {
	var defs []ports.ActionDefinition
	if r.document != nil {
		defs = append(defs, r.document.Actions...)
	}
	if r.source != nil {
		loaded, err := r.source.ListActions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load actions from %s: %w", r.Config.Actions, err)
		}
		defs = append(defs, loaded...)
	}
	return dsl.Compile(defs...)
}

// BuildRuntime wires the snapshot backend, persistence middleware and
// action definitions described by cfg into a session manager.
func BuildRuntime(ctx context.Context, cfg Config, logger *slog.Logger, hooks domain.LifecycleHooks) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, logger: logger}

	initial := domain.Value(domain.NewRecord())
	if cfg.Document != "" {
		doc, err := dsl.LoadFile(cfg.Document)
		if err != nil {
			return nil, err
		}
		rt.document = doc
		initial = doc.Initial
	}
	if cfg.Actions != "" {
		loader, err := loamAdapter.Open(cfg.Actions)
		if err != nil {
			return nil, err
		}
		rt.source = loader
		rt.Watcher = loader
	}

	reducers, err := rt.reducers(ctx)
	if err != nil {
		return nil, err
	}

	snapshots, locker, err := rt.openStore(cfg.Store)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	snapshots, err = wrapStore(snapshots, cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	engine := sculpt.New(
		sculpt.WithLogger(logger),
		sculpt.WithLifecycleHooks(hooks),
		sculpt.WithName("sculpt-cli"),
	)
	opts := []session.Option{
		session.WithEngine(engine),
		session.WithLogger(logger),
		session.WithLifecycleHooks(hooks),
		session.WithReducers(reducers),
		session.WithInitialState(initial),
	}
	if locker != nil {
		opts = append(opts, session.WithLocker(locker))
		if cfg.Store.LockTTL > 0 {
			opts = append(opts, session.WithLockTTL(cfg.Store.LockTTL))
		}
	}
	rt.Manager = session.NewManager(snapshots, opts...)

	logger.Debug("Runtime ready",
		"backend", cfg.Store.Backend,
		"actions", reducers.Names(),
		"encrypted", cfg.Encryption.Key != "",
		"redact", len(cfg.Redact),
	)
	return rt, nil
}

func (r *Runtime) openStore(cfg StoreConfig) (ports.SnapshotStore, ports.DistributedLocker, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return memory.NewStore(), nil, nil
	case BackendFile:
		format := file.FormatJSON
		if cfg.Format == "yaml" {
			format = file.FormatYAML
		}
		return file.New(cfg.Path, file.WithFormat(format)), nil, nil
	case BackendSQLite:
		s, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		r.closers = append(r.closers, s)
		return s, nil, nil
	case BackendRedis:
		var opts []redisAdapter.Option
		if cfg.Prefix != "" {
			opts = append(opts, redisAdapter.WithPrefix(cfg.Prefix))
		}
		if cfg.TTL > 0 {
			opts = append(opts, redisAdapter.WithTTL(cfg.TTL))
		}
		s, err := redisAdapter.NewFromURL(cfg.URL, opts...)
		if err != nil {
			return nil, nil, err
		}
		r.closers = append(r.closers, s)

		var locker ports.DistributedLocker
		if cfg.Lock {
			prefix := cfg.Prefix
			if prefix == "" {
				prefix = "sculpt:"
			}
			locker = redisAdapter.NewLocker(s.Client(), prefix)
		}
		return s, locker, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

// wrapStore applies redaction before encryption, so ciphertext never holds
// the masked values.
func wrapStore(snapshots ports.SnapshotStore, cfg Config) (ports.SnapshotStore, error) {
	var mws []middleware.Middleware

	if len(cfg.Redact) > 0 {
		for _, p := range cfg.Redact {
			if _, err := regexp.Compile(p); err != nil {
				return nil, fmt.Errorf("invalid redact pattern %q: %w", p, err)
			}
		}
		mws = append(mws, middleware.NewPIIMiddleware(cfg.Redact))
	}

	if cfg.Encryption.Key != "" {
		key, err := middleware.DecodeKey(cfg.Encryption.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		encCfg := middleware.EncryptionConfig{ActiveKey: key}
		for i, fk := range cfg.Encryption.FallbackKeys {
			old, err := middleware.DecodeKey(fk)
			if err != nil {
				return nil, fmt.Errorf("invalid fallback key %d: %w", i, err)
			}
			encCfg.FallbackKeys = append(encCfg.FallbackKeys, old)
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(encCfg))
	}

	return middleware.Chain(snapshots, mws...), nil
}
