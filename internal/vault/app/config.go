package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	vaulthttp "github.com/aussiebroadwan/domainvault/internal/vault/http"
	"github.com/aussiebroadwan/domainvault/pkg/httpx"
)

type Config struct {
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	CacheDriver string // Local cache: sqlite, redis or memory (default: sqlite)
	CacheFile   string // SQLite file for the sqlite cache (default: vault.db)
	RedisURL    string // redis:// URL for the redis cache

	RemoteDriver string  // Remote store: none, postgres or memory (default: none)
	RemoteURL    string  // Postgres connection URL
	RemoteRPS    float64 // Remote calls per second, 0 for unlimited (default: 20)

	MasterKeyPath string // Master key file, created on first serve (default: master.key)
	MasterKey     string // Master key material, overrides the file

	AuthURL      string   // Auth service base URL; empty disables sign-in
	AuthIssuer   string   // Expected token issuer
	AuthAudience []string // Accepted token audiences, comma separated
	SessionScope string   // Scope required to sign in (default: profile:read)

	SweepSchedule string // Auto-renew sweep schedule (default: @hourly)
	JWKSRefresh   string // Key refresh schedule (default: @every 15m)
	ICSNamespace  string // UID namespace for calendar export (default: domainvault.com)

	Limits vaulthttp.Limits
}

func LoadConfig() Config {
	return Config{
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		CacheDriver: getEnvOrDefault("VAULT_CACHE_DRIVER", "sqlite"),
		CacheFile:   getEnvOrDefault("VAULT_CACHE_FILE", "vault.db"),
		RedisURL:    os.Getenv("VAULT_REDIS_URL"),

		RemoteDriver: getEnvOrDefault("VAULT_REMOTE_DRIVER", "none"),
		RemoteURL:    os.Getenv("VAULT_REMOTE_URL"),
		RemoteRPS:    getEnvFloatOrDefault("VAULT_REMOTE_RPS", 20),

		MasterKeyPath: getEnvOrDefault("VAULT_MASTER_KEY_PATH", "master.key"),
		MasterKey:     os.Getenv("VAULT_MASTER_KEY"),

		AuthURL:      os.Getenv("VAULT_AUTH_URL"),
		AuthIssuer:   os.Getenv("VAULT_AUTH_ISSUER"),
		AuthAudience: splitList(os.Getenv("VAULT_AUTH_AUDIENCE")),
		SessionScope: getEnvOrDefault("VAULT_SESSION_SCOPE", "profile:read"),

		SweepSchedule: getEnvOrDefault("VAULT_SWEEP_SCHEDULE", "@hourly"),
		JWKSRefresh:   getEnvOrDefault("VAULT_JWKS_REFRESH", "@every 15m"),
		ICSNamespace:  getEnvOrDefault("VAULT_ICS_NAMESPACE", "domainvault.com"),

		Limits: vaulthttp.Limits{
			Read:    httpx.RateLimitFromEnv("READ", httpx.ReadLimit),
			Write:   httpx.RateLimitFromEnv("WRITE", httpx.WriteLimit),
			Session: httpx.RateLimitFromEnv("SESSION", httpx.SessionLimit),
			Account: httpx.RateLimitFromEnv("ACCOUNT", httpx.SessionLimit),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if f, err := strconv.ParseFloat(value, 64); err == nil && f >= 0 {
		return f
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer seconds
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
