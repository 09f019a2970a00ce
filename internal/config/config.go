// Package config loads bundlecore settings from defaults, an optional TOML
// file and BUNDLECORE_ environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// EnvConfig names the variable that points at an explicit config file.
const EnvConfig = "BUNDLECORE_CONFIG"

// Config holds application configuration.
type Config struct {
	Cache   CacheConfig
	Reactor ReactorConfig
	Log     LogConfig
}

// CacheConfig selects the persistence cache.
type CacheConfig struct {
	Backend string
	Path    string
}

// ReactorConfig tunes the reactor scheduler.
type ReactorConfig struct {
	LoopLimit int           `mapstructure:"loop_limit"`
	Window    time.Duration `mapstructure:"window"`

	// IdleAfter enables APP_IDLE dispatch. Zero disables it.
	IdleAfter time.Duration `mapstructure:"idle_after"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// DefaultDir is where the config file and the default cache live.
func DefaultDir() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "bundlecore")
}

// Load reads configuration from file and env. Env var overrides use prefix
// BUNDLECORE_, with dots replaced by underscores (BUNDLECORE_CACHE_BACKEND).
//
// path overrides the file location. When empty, BUNDLECORE_CONFIG is used,
// then ~/.config/bundlecore/config.toml if it exists.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.path", filepath.Join(DefaultDir(), "cache.db"))
	v.SetDefault("reactor.loop_limit", 10)
	v.SetDefault("reactor.window", time.Second)
	v.SetDefault("reactor.idle_after", time.Duration(0))
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(DefaultDir())
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("BUNDLECORE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the runtime cannot use.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case BackendMemory:
	case BackendSQLite, BackendBolt:
		if c.Cache.Path == "" {
			return fmt.Errorf("config: cache.path is required for the %s backend", c.Cache.Backend)
		}
	default:
		return fmt.Errorf("config: unknown cache.backend %q (want memory, sqlite or bolt)", c.Cache.Backend)
	}
	if c.Reactor.LoopLimit <= 0 {
		return fmt.Errorf("config: reactor.loop_limit must be positive, got %d", c.Reactor.LoopLimit)
	}
	if c.Reactor.Window <= 0 {
		return fmt.Errorf("config: reactor.window must be positive, got %s", c.Reactor.Window)
	}
	if c.Reactor.IdleAfter < 0 {
		return fmt.Errorf("config: reactor.idle_after must not be negative, got %s", c.Reactor.IdleAfter)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses Level. An empty level is info.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return level, nil
}
