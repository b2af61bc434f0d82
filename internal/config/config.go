// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// RedisConfig holds connection settings for the queue and status cache.
type RedisConfig struct {
	Addr     string // host:port (default "localhost:6379")
	Username string
	Password string
	DB       int
}

// AWSConfig holds settings for the IAM execution adapter.
type AWSConfig struct {
	Region          string // region for STS and per-account IAM clients (default "eu-west-1")
	HandlerRoleName string // role assumed in each target account (default "access-handler")
	SessionName     string // assume-role session label (default "csecbridge-worker")
}

// Config holds the configuration for the API server, the worker, and the
// operator CLI. One struct serves all three binaries; each reads the
// fields it needs.
type Config struct {
	StateDBPath string // path to the SQLite state store (default "csecbridge.sqlite")
	ListenAddr  string // HTTP listen address (default ":8080")
	LogLevel    string // log level: debug, info, warn, error (default "info")
	Env         string // environment: "development" (default) or "production"

	Redis RedisConfig
	AWS   AWSConfig

	// Platforms lists the target platforms this deployment serves; each
	// gets its own queue and consumer pool (default ["aws"]).
	Platforms []string

	// Consumer pool tuning.
	ConsumerCount       int           // consumers per platform (default 2)
	DequeueTimeout      time.Duration // blocking-pop timeout per wait (default 5s)
	MaxTransientRetries int           // redeliveries before FAILED (default 5)
	RetryBaseBackoff    time.Duration // first-retry delay, doubles per attempt (default 1s)

	// Recovery tuning.
	ReapGrace    time.Duration // IN_PROGRESS age before a reap (default 15m)
	ReapInterval time.Duration // reaper schedule (default 1m)
	StaleAfter   time.Duration // PENDING age before a reconciliation re-enqueue (default 30m)

	CacheTTL time.Duration // status cache TTL (default 5m)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables and applies
// defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		StateDBPath: os.Getenv("STATE_DB_PATH"),
		ListenAddr:  os.Getenv("LISTEN_ADDR"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		Env:         os.Getenv("ENV"),
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Username: os.Getenv("REDIS_USERNAME"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		AWS: AWSConfig{
			Region:          os.Getenv("AWS_REGION"),
			HandlerRoleName: os.Getenv("AWS_HANDLER_ROLE_NAME"),
			SessionName:     os.Getenv("AWS_SESSION_NAME"),
		},
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB must be an integer: %w", err)
		}
		cfg.Redis.DB = n
	}

	if v := os.Getenv("PLATFORMS"); v != "" {
		platforms := strings.Split(v, ",")
		for i := range platforms {
			platforms[i] = strings.TrimSpace(platforms[i])
		}
		cfg.Platforms = compactNonEmpty(platforms)
	}

	cfg.ConsumerCount = parseIntEnvDefault("CONSUMER_COUNT", 2)
	cfg.MaxTransientRetries = parseIntEnvDefault("MAX_TRANSIENT_RETRIES", 5)

	var err error
	if cfg.DequeueTimeout, err = parseDurationEnvDefault("DEQUEUE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryBaseBackoff, err = parseDurationEnvDefault("RETRY_BASE_BACKOFF", time.Second); err != nil {
		return nil, err
	}
	if cfg.ReapGrace, err = parseDurationEnvDefault("REAP_GRACE", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReapInterval, err = parseDurationEnvDefault("REAP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.StaleAfter, err = parseDurationEnvDefault("STALE_AFTER", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = parseDurationEnvDefault("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Defaults
	if cfg.StateDBPath == "" {
		cfg.StateDBPath = "csecbridge.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
		cfg.Warnings = append(cfg.Warnings, "REDIS_ADDR not set — using localhost:6379")
	}
	if len(cfg.Platforms) == 0 {
		cfg.Platforms = []string{"aws"}
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "eu-west-1"
	}
	if cfg.AWS.HandlerRoleName == "" {
		cfg.AWS.HandlerRoleName = "access-handler"
		cfg.Warnings = append(cfg.Warnings, "AWS_HANDLER_ROLE_NAME not set — using access-handler")
	}
	if cfg.AWS.SessionName == "" {
		cfg.AWS.SessionName = "csecbridge-worker"
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.Redis.Password == "" {
			return nil, fmt.Errorf("REDIS_PASSWORD must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

func parseIntEnvDefault(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}

func parseDurationEnvDefault(key string, defaultVal time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s or 5m: %w", key, err)
	}
	return d, nil
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = stripQuotes(value)
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(v string) string {
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
