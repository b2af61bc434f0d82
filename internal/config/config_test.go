package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STATE_DB_PATH", "LISTEN_ADDR", "LOG_LEVEL", "ENV",
		"REDIS_ADDR", "REDIS_USERNAME", "REDIS_PASSWORD", "REDIS_DB",
		"AWS_REGION", "AWS_HANDLER_ROLE_NAME", "AWS_SESSION_NAME",
		"PLATFORMS", "CONSUMER_COUNT", "MAX_TRANSIENT_RETRIES",
		"DEQUEUE_TIMEOUT", "RETRY_BASE_BACKOFF", "REAP_GRACE",
		"REAP_INTERVAL", "STALE_AFTER", "CACHE_TTL", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "csecbridge.sqlite", cfg.StateDBPath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"aws"}, cfg.Platforms)
	assert.Equal(t, 2, cfg.ConsumerCount)
	assert.Equal(t, 5, cfg.MaxTransientRetries)
	assert.Equal(t, 5*time.Second, cfg.DequeueTimeout)
	assert.Equal(t, time.Second, cfg.RetryBaseBackoff)
	assert.Equal(t, 15*time.Minute, cfg.ReapGrace)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.NotEmpty(t, cfg.Warnings)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STATE_DB_PATH", "/var/lib/csecbridge/state.sqlite")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("PLATFORMS", "aws, gcp")
	t.Setenv("CONSUMER_COUNT", "8")
	t.Setenv("CACHE_TTL", "300s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/csecbridge/state.sqlite", cfg.StateDBPath)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, []string{"aws", "gcp"}, cfg.Platforms)
	assert.Equal(t, 8, cfg.ConsumerCount)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadFromEnv_BadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("REAP_GRACE", "fifteen minutes")

	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestLoadFromEnv_ProductionGuards(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")

	_, err := LoadFromEnv()
	require.Error(t, err, "production requires a redis password")

	t.Setenv("REDIS_PASSWORD", "secret")
	_, err = LoadFromEnv()
	require.Error(t, err, "production rejects CORS wildcard")

	t.Setenv("CORS_ALLOWED_ORIGINS", "https://portal.example.com")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"# comment\n"+
			"STATE_DB_PATH=\"/tmp/state.sqlite\"\n"+
			"LOG_LEVEL=warn\n"+
			"not a kv line\n",
	), 0o600))

	// Pre-set values win over the file.
	t.Setenv("LOG_LEVEL", "error")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "/tmp/state.sqlite", os.Getenv("STATE_DB_PATH"))
	assert.Equal(t, "error", os.Getenv("LOG_LEVEL"))

	// A missing file is not an error.
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
