package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	BaseURL         string        // public base URL, ex: "https://marks.domain.ext"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	DatabaseURL string // sqlite file URL or libsql:// remote URL

	// OAuth / sessions
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string        // defaults to BaseURL + /auth/callback
	JWTSecret          string        // HMAC key for session tokens
	SessionTTL         time.Duration // session cookie lifetime (default: 24h)

	// Seed import (optional, empty file = disabled)
	SeedFile       string        // path to a bookmarks.yaml seed file
	SeedOwnerEmail string        // account the seed bookmarks belong to
	SeedInterval   time.Duration // re-import interval (default: 24h)

	// Redis (optional, empty addr = single-instance mode)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // dial timeout (ex: 5s)
	RedisRT             time.Duration // read timeout (ex: 3s)
	RedisWT             time.Duration // write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // connection pool size
	RedisConnectTimeout time.Duration // total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // initial wait between retries, grows exponentially
	RedisWarnThreshold  int           // warn after this many attempts

	// Access restrictions
	AllowedHosts []string // optional, restrict access to specific Host headers
	AdminCIDRS   []string // optional, restrict admin endpoints to these IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers

	// Rate limiting on mutating API routes
	RateLimitBurst  int // token bucket capacity per client IP
	RateLimitPerMin int // refill rate per client IP per minute
}

func Load() *Config {
	_ = godotenv.Load() // ignore error if .env not found (e.g. prod)

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("SMARTMARK_LISTEN_PORT", ":8080"),
		BaseURL:         getenv("SMARTMARK_BASE_URL", "http://localhost:8080"),
		ShutdownTimeout: mustDuration("SMARTMARK_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("SMARTMARK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("SMARTMARK_PRETTY_LOG", true),

		// Storage
		DatabaseURL: getenv("SMARTMARK_DATABASE_URL", "file:smartmark.db"),

		// OAuth / sessions
		GoogleClientID:     requireEnv("SMARTMARK_GOOGLE_CLIENT_ID"),
		GoogleClientSecret: requireEnv("SMARTMARK_GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  getenv("SMARTMARK_GOOGLE_REDIRECT_URL", ""),
		JWTSecret:          requireEnv("SMARTMARK_JWT_SECRET"),
		SessionTTL:         mustDuration("SMARTMARK_SESSION_TTL", 24*time.Hour),

		// Seed import
		SeedFile:       getenv("SMARTMARK_SEED_FILE", ""), // optional, empty = disabled
		SeedOwnerEmail: getenv("SMARTMARK_SEED_OWNER_EMAIL", ""),
		SeedInterval:   mustDuration("SMARTMARK_SEED_INTERVAL", 24*time.Hour),

		// Redis settings
		RedisAddr:           getenv("SMARTMARK_REDIS_ADDR", ""), // optional, empty = disabled
		RedisUser:           getenv("SMARTMARK_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("SMARTMARK_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("SMARTMARK_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("SMARTMARK_ALLOWED_HOSTS", "")),
		AdminCIDRS:   splitAndTrim(getenv("SMARTMARK_ADMIN_CIDRS", "")),
		TrustProxy:   mustBool("SMARTMARK_TRUST_PROXY", false),

		// Rate limiting
		RateLimitBurst:  getenvInt("SMARTMARK_RATE_LIMIT_BURST", 20),
		RateLimitPerMin: getenvInt("SMARTMARK_RATE_LIMIT_PER_MIN", 60),
	}

	if cfg.GoogleRedirectURL == "" {
		cfg.GoogleRedirectURL = strings.TrimRight(cfg.BaseURL, "/") + "/auth/callback"
	}

	if cfg.SeedFile != "" && cfg.SeedOwnerEmail == "" {
		panic("❌ FATAL: SMARTMARK_SEED_OWNER_EMAIL is required when SMARTMARK_SEED_FILE is set")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.GoogleClientSecret = "***REDACTED***"
		cfgCopy.JWTSecret = "***REDACTED***"
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
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
