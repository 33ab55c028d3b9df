package deps

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/stash/internal/capture"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/syncer"
	"github.com/MrSnakeDoc/stash/internal/transport"
)

// Syncer runs one remote sync. *syncer.Service implements it.
type Syncer interface {
	Run(ctx context.Context) (syncer.Result, error)
}

// Pinger reports whether the record store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed to access the server
	AllowedCIDRS []string         // IPs allowed to access the admin endpoints
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)

	RateLimitBurst   int // write routes, per client IP
	RateLimitPerMin  int
	RateLimitEntries int
	MaxBodyBytes     int64 // request body cap for imports and messages

	Sender    transport.Sender // dispatcher, local or over NATS
	Capture   *capture.Router  // snapshot capture
	Store     Pinger           // storage engine
	StoreKind string           // "redis" | "sqlite" | "memory"
	Sync      Syncer           // nil when remote sync is not configured

	RedisClient   *redis.Client // nil unless the redis store is used
	NATSConn      *nats.Conn    // nil when dispatching in process
	CategoryFile  string        // empty when categories are managed through the API only
	ReloadTrigger chan struct{} // Channel to trigger a manual category reload (nil without a category file)
}

// Now returns the configured clock.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
