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

// Storage backends selectable with STASH_STORE.
const (
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per HTTP request (default: 15s)

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	Store      string // "redis" | "sqlite" | "memory"
	SQLitePath string // database file when Store == "sqlite"

	// Capture
	DuplicateWindow time.Duration // recently-captured suppression window (default: 8s)
	SettleDelay     time.Duration // wait after a save click before extracting (default: 300ms)

	// Categories & housekeeping
	CategoryFile   string        // optional categories.yaml, empty = managed through the API only
	ReloadInterval time.Duration // interval to reload the category file (default: 24h)
	GCInterval     time.Duration // interval to purge soft-deleted records (default: 24h)
	GCThreshold    time.Duration // age after which soft-deleted records are purged (default: 720h)

	// Remote sync
	SyncEndpoint   string        // default endpoint when settings carry none
	SyncToken      string        // bearer token, never exported
	SyncInterval   time.Duration // 0 disables the periodic job
	SyncTimeout    time.Duration // per HTTP call (default: 10s)
	SyncAttempts   int           // per call (default: 3)
	SyncRetryDelay time.Duration // fixed delay between attempts (default: 2s)
	SyncRate       int           // max calls per second (default: 2)

	// Feed import
	FeedTimeout  time.Duration // per fetch attempt (default: 15s)
	FeedMaxBytes int64         // body size cap (default: 5MB)

	// NATS transport (optional)
	NATSURL     string        // empty => in-process dispatch
	NATSSubject string        // request subject (default: stash.requests)
	NATSQueue   string        // queue group of the responders (default: stash)
	NATSTimeout time.Duration // request/reply timeout (default: 5s)
	NATSServe   bool          // also answer requests on NATSSubject

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

	// Access restrictions
	AllowedHosts     []string // optional, restrict access to specific Host headers
	AllowedCIDRS     []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy       bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	RateLimitBurst   int      // write routes, per client IP (default: 30)
	RateLimitPerMin  int      // write routes refill, per client IP (default: 120)
	RateLimitEntries int      // max tracked client IPs (default: 10000)
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first; variables already set win.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("STASH_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("STASH_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("STASH_REQUEST_TIMEOUT", 15*time.Second),

		// Logging
		LogLevel:  getenv("STASH_LOG_LEVEL", "info"),
		PrettyLog: mustBool("STASH_PRETTY_LOG", true),

		// Storage
		Store:      strings.ToLower(getenv("STASH_STORE", StoreRedis)),
		SQLitePath: getenv("STASH_SQLITE_PATH", "stash.db"),

		// Capture
		DuplicateWindow: mustDuration("STASH_DUPLICATE_WINDOW", 8*time.Second),
		SettleDelay:     mustDuration("STASH_SETTLE_DELAY", 300*time.Millisecond),

		// Categories & housekeeping
		CategoryFile:   getenv("STASH_CATEGORY_FILE", ""),
		ReloadInterval: mustDuration("STASH_RELOAD_INTERVAL", 24*time.Hour),
		GCInterval:     mustDuration("STASH_GC_INTERVAL", 24*time.Hour),
		GCThreshold:    mustDuration("STASH_GC_THRESHOLD", 30*24*time.Hour),

		// Sync
		SyncEndpoint:   getenv("STASH_SYNC_ENDPOINT", ""),
		SyncToken:      getenv("STASH_SYNC_TOKEN", ""),
		SyncInterval:   mustDuration("STASH_SYNC_INTERVAL", 15*time.Minute),
		SyncTimeout:    mustDuration("STASH_SYNC_TIMEOUT", 10*time.Second),
		SyncAttempts:   getenvInt("STASH_SYNC_ATTEMPTS", 3),
		SyncRetryDelay: mustDuration("STASH_SYNC_RETRY_DELAY", 2*time.Second),
		SyncRate:       getenvInt("STASH_SYNC_RATE", 2),

		// Feed import
		FeedTimeout:  mustDuration("STASH_FEED_TIMEOUT", 15*time.Second),
		FeedMaxBytes: int64(getenvInt("STASH_FEED_MAX_BYTES", 5*1024*1024)),

		// NATS
		NATSURL:     getenv("STASH_NATS_URL", ""),
		NATSSubject: getenv("STASH_NATS_SUBJECT", "stash.requests"),
		NATSQueue:   getenv("STASH_NATS_QUEUE", "stash"),
		NATSTimeout: mustDuration("STASH_NATS_TIMEOUT", 5*time.Second),
		NATSServe:   mustBool("STASH_NATS_SERVE", true),

		// Redis settings
		RedisUser:             getenv("STASH_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("STASH_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("STASH_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("STASH_REDIS_DB", 0),
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
		AllowedHosts:     splitAndTrim(getenv("STASH_ALLOWED_HOSTS", "")),
		AllowedCIDRS:     parseAllowedIPs(getenv("STASH_ALLOWED_CIDRS", "")),
		TrustProxy:       mustBool("STASH_TRUST_PROXY", false),
		RateLimitBurst:   getenvInt("STASH_RATE_LIMIT_BURST", 30),
		RateLimitPerMin:  getenvInt("STASH_RATE_LIMIT_PER_MIN", 120),
		RateLimitEntries: getenvInt("STASH_RATE_LIMIT_MAX_ENTRIES", 10000),
	}

	switch cfg.Store {
	case StoreRedis:
		cfg.RedisAddr = requireEnv("STASH_REDIS_ADDR")
	case StoreSQLite, StoreMemory:
	default:
		panic(fmt.Sprintf("❌ FATAL: STASH_STORE must be redis, sqlite or memory, got %q", cfg.Store))
	}

	// Validate Redis password configuration
	if cfg.Store == StoreRedis && cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: STASH_REDIS_PASSWORD is required when STASH_REDIS_PASSWORD_REQUIRED=true")
	}

	if cfg.DuplicateWindow <= 0 {
		panic("❌ FATAL: STASH_DUPLICATE_WINDOW must be positive")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	if cp.SyncToken != "" {
		cp.SyncToken = "***REDACTED***"
	}
	return cp
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

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
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
