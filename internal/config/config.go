package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	AuthSecret string // HS256 signing secret shared with the identity provider
	AuthIssuer string // optional, reject tokens from other issuers when set

	DefaultPageSize int // page size when the client does not ask for one
	MaxPageSize     int // hard cap on requested page sizes

	SeedFile string // path to a bookmarks.yaml seed file (optional, empty = no seeding)

	RevalidateInterval time.Duration // interval between background revalidation sweeps
	CacheIdleTTL       time.Duration // evict cached query entries idle longer than this

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AdminCIDRS []string // optional, restrict admin endpoints to specific IPs/CIDRs
	TrustProxy bool     // true => trust X-Forwarded-For headers

	RateLimitPerMinute int // mutation requests allowed per user per minute (0 = unlimited)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("LINKHOARD_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("LINKHOARD_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("LINKHOARD_LOG_LEVEL", "info"),
		PrettyLog: mustBool("LINKHOARD_PRETTY_LOG", true),

		// Auth
		AuthSecret: requireEnv("LINKHOARD_AUTH_SECRET"),
		AuthIssuer: getenv("LINKHOARD_AUTH_ISSUER", ""),

		// Pagination
		DefaultPageSize: getenvInt("LINKHOARD_DEFAULT_PAGE_SIZE", 20),
		MaxPageSize:     getenvInt("LINKHOARD_MAX_PAGE_SIZE", 100),

		// Seed file
		SeedFile: getenv("LINKHOARD_SEED_FILE", ""), // Optional, empty = seeding disabled

		// Background maintenance
		RevalidateInterval: mustDuration("LINKHOARD_REVALIDATE_INTERVAL", 5*time.Minute),
		CacheIdleTTL:       mustDuration("LINKHOARD_CACHE_IDLE_TTL", 30*time.Minute),

		// Redis settings
		RedisAddr:             requireEnv("LINKHOARD_REDIS_ADDR"),
		RedisUser:             getenv("LINKHOARD_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("LINKHOARD_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("LINKHOARD_REDIS_PASSWORD", ""),
		RedisDB:               requireEnvInt("LINKHOARD_REDIS_DB"),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AdminCIDRS: splitAndTrim(getenv("LINKHOARD_ADMIN_CIDRS", "")),
		TrustProxy: mustBool("LINKHOARD_TRUST_PROXY", true),

		RateLimitPerMinute: getenvInt("LINKHOARD_RATE_LIMIT_PER_MINUTE", 120),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: LINKHOARD_REDIS_PASSWORD is required when LINKHOARD_REDIS_PASSWORD_REQUIRED=true")
	}

	if cfg.DefaultPageSize <= 0 || cfg.DefaultPageSize > cfg.MaxPageSize {
		panic(fmt.Sprintf("❌ FATAL: Invalid page size configuration: default=%d max=%d",
			cfg.DefaultPageSize, cfg.MaxPageSize))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.AuthSecret = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
