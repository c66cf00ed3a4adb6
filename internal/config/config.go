package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	"github.com/illarion/lockmark/internal/cache"
	"github.com/illarion/lockmark/internal/logger"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "LOCKMARK_"

var (
	ErrInvalidCacheConfig = errors.New("invalid cache configuration")
	ErrInvalidLogConfig   = errors.New("invalid log configuration")
)

// Config is the lockmark configuration
type Config struct {
	// Password is used instead of prompting when set.
	// Env: LOCKMARK_PASSWORD
	Password string `env:"PASSWORD"`

	Cache Cache `envPrefix:"CACHE_"`

	Inline Inline `envPrefix:"INLINE_"`

	// Keyring enables reading and updating passwords in the OS keyring.
	// Env: LOCKMARK_KEYRING
	Keyring bool `env:"KEYRING" envDefault:"true"`

	// IndexPath is the bbolt index of protected files, relative to the
	// workspace root.
	// Env: LOCKMARK_INDEX
	IndexPath string `env:"INDEX" envDefault:".lockmark"`

	// LogLevel is a zerolog level name.
	// Env: LOCKMARK_LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`
}

// Cache holds the session password cache settings
type Cache struct {
	// Env: LOCKMARK_CACHE_ACTIVE
	Active bool `env:"ACTIVE" envDefault:"true"`

	// TimeoutMinutes of 0 keeps passwords until cleared.
	// Env: LOCKMARK_CACHE_TIMEOUT_MINUTES
	TimeoutMinutes int `env:"TIMEOUT_MINUTES" envDefault:"15"`

	// Env: LOCKMARK_CACHE_SCOPE (file, folder, workspace)
	Scope cache.Scope `env:"SCOPE" envDefault:"file"`
}

// Inline holds defaults for inline markers
type Inline struct {
	// Hidden wraps new markers in comment tokens.
	// Env: LOCKMARK_INLINE_HIDDEN
	Hidden bool `env:"HIDDEN" envDefault:"false"`
}

// CacheConfig converts the settings for cache.New
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Active:         c.Cache.Active,
		TimeoutMinutes: c.Cache.TimeoutMinutes,
		Scope:          c.Cache.Scope,
	}
}

// Load reads the environment and merges overrides on top. Non-zero
// fields of overrides win.
func Load(overrides *Config) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("error getting env configs: %w", err)
	}

	if overrides != nil {
		if err := mergo.Merge(cfg, overrides, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("error merging configs: %w", err)
		}
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Cache.TimeoutMinutes < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidCacheConfig)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLogConfig, err)
	}
	return nil
}
