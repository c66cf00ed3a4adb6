package config

import (
	"testing"

	"github.com/illarion/lockmark/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.True(t, cfg.Cache.Active)
	assert.Equal(t, 15, cfg.Cache.TimeoutMinutes)
	assert.Equal(t, cache.ScopeFile, cfg.Cache.Scope)
	assert.False(t, cfg.Inline.Hidden)
	assert.True(t, cfg.Keyring)
	assert.Equal(t, ".lockmark", cfg.IndexPath)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("LOCKMARK_PASSWORD", "from-env")
	t.Setenv("LOCKMARK_CACHE_ACTIVE", "false")
	t.Setenv("LOCKMARK_CACHE_TIMEOUT_MINUTES", "0")
	t.Setenv("LOCKMARK_CACHE_SCOPE", "workspace")
	t.Setenv("LOCKMARK_INLINE_HIDDEN", "true")
	t.Setenv("LOCKMARK_KEYRING", "false")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Password)
	assert.False(t, cfg.Cache.Active)
	assert.Equal(t, 0, cfg.Cache.TimeoutMinutes)
	assert.Equal(t, cache.ScopeWorkspace, cfg.Cache.Scope)
	assert.True(t, cfg.Inline.Hidden)
	assert.False(t, cfg.Keyring)

	cc := cfg.CacheConfig()
	assert.Equal(t, cache.Config{Active: false, TimeoutMinutes: 0, Scope: cache.ScopeWorkspace}, cc)
}

func TestLoad_OverridesWin(t *testing.T) {
	t.Setenv("LOCKMARK_LOG_LEVEL", "info")
	t.Setenv("LOCKMARK_CACHE_TIMEOUT_MINUTES", "30")

	cfg, err := Load(&Config{LogLevel: "debug", Cache: Cache{TimeoutMinutes: 5}})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.Cache.TimeoutMinutes)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("bad scope", func(t *testing.T) {
		t.Setenv("LOCKMARK_CACHE_SCOPE", "galaxy")
		_, err := Load(nil)
		assert.Error(t, err)
	})

	t.Run("negative timeout", func(t *testing.T) {
		t.Setenv("LOCKMARK_CACHE_TIMEOUT_MINUTES", "-1")
		_, err := Load(nil)
		assert.ErrorIs(t, err, ErrInvalidCacheConfig)
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("LOCKMARK_LOG_LEVEL", "shouting")
		_, err := Load(nil)
		assert.ErrorIs(t, err, ErrInvalidLogConfig)
	})
}
