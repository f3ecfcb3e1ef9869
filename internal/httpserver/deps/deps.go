package deps

import (
	"time"

	"golang.org/x/oauth2"

	"github.com/smartmark/smartmark/internal/feed"
	"github.com/smartmark/smartmark/internal/logger"
	"github.com/smartmark/smartmark/internal/session"
	"github.com/smartmark/smartmark/internal/store/sqlite"
	"github.com/smartmark/smartmark/internal/webui"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time    // for testing, defaults to time.Now
	AllowedHosts []string            // Host headers allowed to access the server
	AdminCIDRS   []string            // IPs/CIDRs allowed on admin endpoints
	TrustProxy   bool                // true if running behind a trusted reverse proxy
	Sessions     *session.Manager    // session cookie issue/verify/revoke
	OAuth        *oauth2.Config      // Google authorization-code flow
	Store        *sqlite.Repository  // bookmark + user persistence
	Feed         *feed.Broadcaster   // change event fan-out
	WebUI        *webui.Renderer     // embedded page templates
	SecureCookie bool                // Secure flag on auth cookies (production)
	RateBurst    int                 // rate limit burst for mutating API routes
	RatePerMin   int                 // rate limit refill per IP per minute
	SeedTrigger  chan struct{}       // manual seed re-import trigger (nil if seeding disabled)
}
