package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/turnstile/pkg/observability"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("TURNSTILE_POSTGRES_URL", "postgres://localhost:5432/turnstile?sslmode=disable")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.Equal(t, 7*24*time.Hour, cfg.Observability.ExpiryWindow)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("TURNSTILE_POSTGRES_URL", "postgres://db:5432/turnstile")
	t.Setenv("TURNSTILE_PORT", "3000")
	t.Setenv("TURNSTILE_CACHE_ENABLED", "true")
	t.Setenv("TURNSTILE_REDIS_URL", "redis://redis:6379")
	t.Setenv("TURNSTILE_CACHE_TTL", "30s")
	t.Setenv("TURNSTILE_LOG_LEVEL", "debug")
	t.Setenv("TURNSTILE_POSTGRES_MAX_CONNS", "50")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, 50, cfg.Database.MaxConns)
}

func TestLoadConfig_MissingDatabaseURL(t *testing.T) {
	t.Setenv("TURNSTILE_POSTGRES_URL", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres URL is required")
}

func TestValidate_PortCollision(t *testing.T) {
	t.Setenv("TURNSTILE_POSTGRES_URL", "postgres://db:5432/turnstile")
	t.Setenv("TURNSTILE_PORT", "8080")
	t.Setenv("TURNSTILE_HEALTH_PORT", "8080")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be different")
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STRING", "value")
	assert.Equal(t, "value", getEnv("TEST_STRING", "default"))
	assert.Equal(t, "default", getEnv("TEST_MISSING", "default"))

	t.Setenv("TEST_BOOL", "TRUE")
	assert.True(t, getEnvBool("TEST_BOOL", false))
	t.Setenv("TEST_BOOL", "0")
	assert.False(t, getEnvBool("TEST_BOOL", true))

	t.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, getEnvInt("TEST_INT", 1))
	t.Setenv("TEST_INT", "not a number")
	assert.Equal(t, 1, getEnvInt("TEST_INT", 1))

	t.Setenv("TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DURATION", time.Minute))
	assert.Equal(t, time.Minute, getEnvDuration("TEST_DURATION_MISSING", time.Minute))
}
