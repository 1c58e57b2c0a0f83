package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/shipcheck/internal/index"
	"github.com/MrSnakeDoc/shipcheck/internal/logger"
	"github.com/MrSnakeDoc/shipcheck/internal/metrics"
)

// Pinger is the part of the report store the infra endpoint needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger        logger.Logger
	StartTime     time.Time
	Version       string
	Commit        string
	BuildDate     string
	GoVersion     string
	TimeNow       func() time.Time   // for testing, defaults to time.Now
	AllowedCIDRS  []string           // IPs allowed to access the ops endpoints
	TrustProxy    bool               // true if running behind a trusted reverse proxy (e.g., cloudflared)
	ChannelKind   string             // remote command channel in use ("ssm" or "shell")
	MemoryIndex   *index.MemoryIndex // In-memory report index
	Store         Pinger             // Redis report store, nil when Redis is disabled
	Metrics       *metrics.Metrics   // Prometheus collectors
	VerifyTrigger chan struct{}      // Channel to trigger an immediate verification round
	HistoryLimit  int                // default number of reports returned per target
}

// Now returns d.TimeNow() or time.Now() when unset.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
