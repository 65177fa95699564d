// Package config loads the service configuration from a TOML file and
// BRIDGEUS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Config represents the main configuration for the feed service.
type Config struct {
	Server ServerConfig `toml:"server"`
	Feed   FeedConfig   `toml:"feed"`
	Store  StoreConfig  `toml:"store"`
	Log    LogConfig    `toml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string        `toml:"addr"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	// TrustProxy keys per-client limits on X-Forwarded-For. Only enable it
	// behind a proxy that overwrites the header.
	TrustProxy bool `toml:"trust_proxy"`
}

// FeedConfig holds the infinite-scroll settings.
type FeedConfig struct {
	PageSize  int           `toml:"page_size"`
	LoadDelay time.Duration `toml:"load_delay"` // simulated latency of a load-more
	// Endless keeps hasMore true while the generator may still grow the store.
	Endless        bool          `toml:"endless"`
	MaxPosts       int           `toml:"max_posts"` // 0 means unbounded
	SessionIdleTTL time.Duration `toml:"session_idle_ttl"`
	SweepSchedule  string        `toml:"sweep_schedule"` // cron spec
	LoadRate       float64       `toml:"load_rate"`      // load-more requests per second per client
	LoadBurst      int           `toml:"load_burst"`
}

// StoreConfig selects the source store backend. Path is only read by the
// badger backend and the store commands.
type StoreConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path,omitempty"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "text"
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Feed: FeedConfig{
			PageSize:       8,
			LoadDelay:      800 * time.Millisecond,
			Endless:        true,
			MaxPosts:       2000,
			SessionIdleTTL: 30 * time.Minute,
			SweepSchedule:  "@every 1m",
			LoadRate:       5,
			LoadBurst:      10,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Path:    filepath.Join("data", "badger"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Read decodes a Config from r on top of the defaults.
func Read(r io.Reader) (*Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Write encodes a Config to w.
func Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Load reads the file at path (defaults when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		cfg, err = Read(f)
		if err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. Values that do not
// parse are logged and ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	envString(lookup, "BRIDGEUS_ADDR", &c.Server.Addr)
	envBool(lookup, "BRIDGEUS_TRUST_PROXY", &c.Server.TrustProxy)
	envInt(lookup, "BRIDGEUS_PAGE_SIZE", &c.Feed.PageSize)
	envDuration(lookup, "BRIDGEUS_LOAD_DELAY", &c.Feed.LoadDelay)
	envBool(lookup, "BRIDGEUS_ENDLESS", &c.Feed.Endless)
	envInt(lookup, "BRIDGEUS_MAX_POSTS", &c.Feed.MaxPosts)
	envDuration(lookup, "BRIDGEUS_SESSION_IDLE_TTL", &c.Feed.SessionIdleTTL)
	envString(lookup, "BRIDGEUS_STORE_BACKEND", &c.Store.Backend)
	envString(lookup, "BRIDGEUS_STORE_PATH", &c.Store.Path)
	envString(lookup, "LOG_LEVEL", &c.Log.Level)
	envString(lookup, "BRIDGEUS_LOG_FORMAT", &c.Log.Format)
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Feed.PageSize < 1 {
		errs = append(errs, fmt.Errorf("feed.page_size must be positive, got %d", c.Feed.PageSize))
	}
	if c.Feed.LoadDelay < 0 {
		errs = append(errs, errors.New("feed.load_delay must not be negative"))
	}
	if c.Feed.MaxPosts < 0 {
		errs = append(errs, errors.New("feed.max_posts must not be negative"))
	}
	if c.Feed.SessionIdleTTL <= 0 {
		errs = append(errs, errors.New("feed.session_idle_ttl must be positive"))
	}
	if c.Feed.LoadRate <= 0 || c.Feed.LoadBurst < 1 {
		errs = append(errs, errors.New("feed.load_rate and feed.load_burst must be positive"))
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendBadger:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the badger backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}
	return errors.Join(errs...)
}

func envString(lookup func(string) (string, bool), key string, dst *string) {
	if v, ok := lookup(key); ok && v != "" {
		*dst = v
	}
}

func envInt(lookup func(string) (string, bool), key string, dst *int) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer value for environment variable, using default",
			slog.String("key", key), slog.String("value", v))
		return
	}
	*dst = n
}

func envBool(lookup func(string) (string, bool), key string, dst *bool) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean value for environment variable, using default",
			slog.String("key", key), slog.String("value", v))
		return
	}
	*dst = b
}

func envDuration(lookup func(string) (string, bool), key string, dst *time.Duration) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration value for environment variable, using default",
			slog.String("key", key), slog.String("value", v))
		return
	}
	*dst = d
}
