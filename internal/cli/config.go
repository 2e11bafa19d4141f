package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/sculpt/internal/logging"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when --config is not given.
const DefaultConfigFile = "sculpt.yaml"

// Backends supported by StoreConfig.Backend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config describes how the CLI assembles a slot manager.
type Config struct {
	// Document is a YAML file holding the initial state and inline actions.
	Document string `mapstructure:"document"`
	// Actions is a directory of action definition documents.
	Actions string `mapstructure:"actions"`

	Store      StoreConfig      `mapstructure:"store"`
	Encryption EncryptionConfig `mapstructure:"encryption"`
	// Redact lists key patterns whose values are masked before persisting.
	Redact []string `mapstructure:"redact"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // text or json
}

// StoreConfig selects and configures the snapshot backend.
type StoreConfig struct {
	Backend string        `mapstructure:"backend"`
	Path    string        `mapstructure:"path"`   // file directory or sqlite database
	Format  string        `mapstructure:"format"` // file backend: json or yaml
	URL     string        `mapstructure:"url"`    // redis://...
	Prefix  string        `mapstructure:"prefix"`
	TTL     time.Duration `mapstructure:"ttl"`
	Lock    bool          `mapstructure:"lock"` // redis: serialize slots across replicas
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

// EncryptionConfig holds hex or base64 encoded AES-256 keys.
type EncryptionConfig struct {
	Key          string   `mapstructure:"key"`
	FallbackKeys []string `mapstructure:"fallback_keys"`
}

// DefaultConfig is used when no config file exists.
func DefaultConfig() Config {
	return Config{
		Store:    StoreConfig{Backend: BackendMemory},
		LogLevel: "warn",
	}
}

// LoadConfig reads a YAML config file. Environment variables in the file are
// expanded. Relative paths are resolved against the file's directory.
// A missing file is only an error when required is set.
func LoadConfig(path string, required bool) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &raw); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	base := filepath.Dir(path)
	cfg.Document = resolve(base, cfg.Document)
	cfg.Actions = resolve(base, cfg.Actions)
	if cfg.Store.Backend == BackendFile || cfg.Store.Backend == BackendSQLite {
		if cfg.Store.Path != ":memory:" {
			cfg.Store.Path = resolve(base, cfg.Store.Path)
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks option combinations that cannot work.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case "", BackendMemory, BackendFile, BackendSQLite:
	case BackendRedis:
		if c.Store.URL == "" {
			return errors.New("store.url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Lock && c.Store.Backend != BackendRedis {
		return errors.New("store.lock requires the redis backend")
	}
	switch c.Store.Format {
	case "", "json", "yaml":
	default:
		return fmt.Errorf("unknown store format %q", c.Store.Format)
	}
	if len(c.Encryption.FallbackKeys) > 0 && c.Encryption.Key == "" {
		return errors.New("encryption.fallback_keys requires encryption.key")
	}
	switch c.LogFormat {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
