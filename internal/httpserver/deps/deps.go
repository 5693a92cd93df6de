package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linkhoard/linkhoard/internal/account"
	"github.com/linkhoard/linkhoard/internal/auth"
	"github.com/linkhoard/linkhoard/internal/cache"
	"github.com/linkhoard/linkhoard/internal/logger"
	"github.com/linkhoard/linkhoard/internal/mutation"
	"github.com/linkhoard/linkhoard/internal/query"
)

type Deps struct {
	Logger            logger.Logger
	StartTime         time.Time
	Version           string
	Commit            string
	BuildDate         string
	GoVersion         string
	TimeNow           func() time.Time  // for testing, defaults to time.Now
	AdminCIDRS        []string          // IPs allowed to access infra/revalidate endpoints
	TrustProxy        bool              // true if running behind a trusted reverse proxy
	RedisClient       *redis.Client     // Redis client connection (nil in tests)
	Verifier          *auth.Verifier    // bearer token verifier
	Engine            *query.Engine     // paginated query engine
	Mutator           *mutation.Mutator // optimistic mutation layer
	Deleter           *account.Deleter  // whole-account removal
	Cache             *cache.Store      // shared query cache
	DefaultPageSize   int               // page size when the client does not ask for one
	MaxPageSize       int               // hard cap on requested page sizes
	RevalidateTrigger chan struct{}     // Channel to trigger a manual revalidation sweep
	RateLimitPerMin   int               // mutation requests per user per minute (0 = unlimited)
}
