// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads authcore settings. Sources are applied in order:
// built-in defaults, an optional YAML file, then command-line flags. The
// DATABASE_URL environment variable fills database.url when nothing else did.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/logging"
	"github.com/holomush/authcore/internal/store"
)

// EnvDatabaseURL is consulted when database.url is otherwise empty.
const EnvDatabaseURL = "DATABASE_URL"

// Config is the full set of settings.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Session  SessionConfig  `koanf:"session"`
	Argon2   Argon2Config   `koanf:"argon2"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Sweep    SweepConfig    `koanf:"sweep"`
}

// DatabaseConfig locates PostgreSQL.
type DatabaseConfig struct {
	URL            string `koanf:"url"`
	MaxConns       int32  `koanf:"max_conns"`
	ConnectRetries uint64 `koanf:"connect_retries"`
}

// LogConfig selects the log format and level.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// SessionConfig controls session lifetime.
type SessionConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// Argon2Config sets the password hashing cost.
type Argon2Config struct {
	Time      uint32 `koanf:"time"`
	MemoryKiB uint32 `koanf:"memory_kib"`
	Threads   uint8  `koanf:"threads"`
}

// MetricsConfig sets where the sweeper serves /metrics and health probes.
// An empty Addr disables the server.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// SweepConfig sets how often expired sessions are purged.
type SweepConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Database: DatabaseConfig{ConnectRetries: store.DefaultConnectRetries},
		Log:      LogConfig{Format: "json", Level: "info"},
		Session:  SessionConfig{TTL: auth.DefaultSessionTTL},
		Argon2: Argon2Config{
			Time:      auth.DefaultArgon2Time,
			MemoryKiB: auth.DefaultArgon2Memory,
			Threads:   auth.DefaultArgon2Threads,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Sweep:   SweepConfig{Interval: 10 * time.Minute},
	}
}

// flagKeys maps flag names to config keys. Flags not listed are ignored.
var flagKeys = map[string]string{
	"database-url":    "database.url",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"session-ttl":     "session.ttl",
	"connect-retries": "database.connect_retries",
	"interval":        "sweep.interval",
	"metrics-addr":    "metrics.addr",
}

// RegisterFlags adds the global flags Load understands to fs. The sweep
// command defines --interval and --metrics-addr itself.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("database-url", "", "PostgreSQL connection URL (default $"+EnvDatabaseURL+")")
	fs.String("log-format", d.Log.Format, "log format: json or text")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn or error")
	fs.Duration("session-ttl", d.Session.TTL, "session lifetime")
	fs.Uint64("connect-retries", d.Database.ConnectRetries, "database connect retries at startup")
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the changed flags in fs (may be nil).
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaultValues() {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv(EnvDatabaseURL)
	}
	return &cfg, nil
}

func defaultValues() map[string]any {
	d := Default()
	return map[string]any{
		"database.url":             d.Database.URL,
		"database.max_conns":       d.Database.MaxConns,
		"database.connect_retries": d.Database.ConnectRetries,
		"log.format":               d.Log.Format,
		"log.level":                d.Log.Level,
		"session.ttl":              d.Session.TTL,
		"argon2.time":              d.Argon2.Time,
		"argon2.memory_kib":        d.Argon2.MemoryKiB,
		"argon2.threads":           d.Argon2.Threads,
		"metrics.addr":             d.Metrics.Addr,
		"sweep.interval":           d.Sweep.Interval,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").With("key", "database.url").
			Errorf("database.url is required (or set %s)", EnvDatabaseURL)
	}
	if c.Database.MaxConns < 0 {
		return oops.Code("CONFIG_INVALID").With("key", "database.max_conns").
			Errorf("database.max_conns must not be negative")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").With("key", "log.format").
			Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "log.level").
			Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Session.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").With("key", "session.ttl").
			Errorf("session.ttl must be positive, got %s", c.Session.TTL)
	}
	if err := c.Argon2Params().Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "argon2").Wrap(err)
	}
	if c.Sweep.Interval <= 0 {
		return oops.Code("CONFIG_INVALID").With("key", "sweep.interval").
			Errorf("sweep.interval must be positive, got %s", c.Sweep.Interval)
	}
	return nil
}

// Argon2Params converts the hashing settings.
func (c *Config) Argon2Params() auth.Argon2Params {
	return auth.Argon2Params{Time: c.Argon2.Time, Memory: c.Argon2.MemoryKiB, Threads: c.Argon2.Threads}
}

// PoolConfig converts the database settings.
func (c *Config) PoolConfig() store.PoolConfig {
	return store.PoolConfig{
		URL:            c.Database.URL,
		MaxConns:       c.Database.MaxConns,
		ConnectRetries: c.Database.ConnectRetries,
	}
}
