// Package config manages application configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix for environment overrides. Double underscore
// separates nesting levels, e.g. SCRIBESYNC_YOUTUBE__API_KEY maps to
// youtube.api_key.
const envPrefix = "SCRIBESYNC_"

// Config holds all application configuration for catalog sync runs.
// Priority: env vars > config file > defaults.
type Config struct {
	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// DBPath is the BoltDB file backing the local store.
	DBPath string `koanf:"db_path" validate:"required"`

	YouTube   YouTubeConfig   `koanf:"youtube"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Retry     RetryConfig     `koanf:"retry"`
	Sync      SyncConfig      `koanf:"sync"`
}

// YouTubeConfig configures access to the external catalog API.
type YouTubeConfig struct {
	// APIKey authorizes Data API calls.
	APIKey string `koanf:"api_key"`
	// DailyQuotaLimit is the external daily call budget in units.
	DailyQuotaLimit int `koanf:"daily_quota_limit" validate:"gte=0"`
}

// RateLimitConfig configures the local fixed-window gate.
type RateLimitConfig struct {
	// Window is the fixed window length.
	Window time.Duration `koanf:"window" validate:"gt=0"`
	// MaxRequests is the per-window request ceiling.
	MaxRequests int `koanf:"max_requests" validate:"gt=0"`
}

// RetryConfig configures transient-failure retries.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget, including the first try.
	MaxAttempts int `koanf:"max_attempts" validate:"gte=1"`
	// InitialBackoff is the first retry delay.
	InitialBackoff time.Duration `koanf:"initial_backoff" validate:"gt=0"`
	// MaxBackoff caps the retry delay.
	MaxBackoff time.Duration `koanf:"max_backoff" validate:"gt=0"`
	// Multiplier is the exponential growth factor.
	Multiplier float64 `koanf:"multiplier" validate:"gt=1"`
}

// SyncConfig carries the default sync run options.
type SyncConfig struct {
	// Mode is the default sync mode (incremental, full, deep).
	Mode string `koanf:"mode" validate:"oneof=incremental full deep"`
	// IncludeRegular admits long-form videos.
	IncludeRegular bool `koanf:"include_regular"`
	// IncludeShorts admits YouTube Shorts.
	IncludeShorts bool `koanf:"include_shorts"`
	// SyncMetadata hydrates durations and full descriptions per page.
	SyncMetadata bool `koanf:"sync_metadata"`
	// MaxItems bounds incremental runs.
	MaxItems int `koanf:"max_items" validate:"gte=0"`
	// MaxEmptyPages ends full/deep runs after this many consecutive
	// pages with nothing new.
	MaxEmptyPages int `koanf:"max_empty_pages" validate:"gte=0"`
	// PageSize is the requested items per page (API ceiling is 50).
	PageSize int `koanf:"page_size" validate:"gte=0,lte=50"`
}

// Default returns configuration with safe defaults.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		DBPath:   defaultDBPath(),
		YouTube: YouTubeConfig{
			DailyQuotaLimit: 10000,
		},
		RateLimit: RateLimitConfig{
			Window:      1 * time.Minute,
			MaxRequests: 30,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 1 * time.Second,
			MaxBackoff:     30 * time.Second,
			Multiplier:     2.0,
		},
		Sync: SyncConfig{
			Mode:           "incremental",
			IncludeRegular: true,
			IncludeShorts:  true,
			SyncMetadata:   true,
			MaxItems:       50,
			MaxEmptyPages:  2,
			PageSize:       50,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file, and the
// environment, then validates the merged result. An empty path skips the
// file layer; a missing file at the default location is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	explicit := path != ""
	if path == "" {
		path = defaultConfigPath()
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// defaultConfigPath returns the conventional config file location.
func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "scribesync", "config.yaml")
	}
	return "scribesync.yaml"
}

// defaultDBPath returns the conventional database location.
func defaultDBPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "scribesync", "scribesync.db")
	}
	return "scribesync.db"
}
