package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/database"
	"github.com/KOMKZ/go-yogan-monitor/health"
	"github.com/KOMKZ/go-yogan-monitor/redis"
)

// Pinger pings a named instance
type Pinger interface {
	Ping(ctx context.Context, name string) error
	Names() []string
}

var (
	_ Pinger = (*redis.Manager)(nil)
	_ Pinger = (*database.Manager)(nil)
)

// PingCheck pings one instance; slower than slow is degraded
func PingCheck(p Pinger, name string, slow time.Duration) health.CheckFunc {
	return func(ctx context.Context) (health.Output, error) {
		start := time.Now()
		if err := p.Ping(ctx, name); err != nil {
			return health.Output{
				Status:  health.StatusUnhealthy,
				Message: fmt.Sprintf("Ping failed: %v", err),
			}, nil
		}

		elapsed := time.Since(start)
		data := map[string]interface{}{"response_time": elapsed.Milliseconds()}
		if slow > 0 && elapsed > slow {
			return health.Output{Status: health.StatusDegraded, Message: fmt.Sprintf("Slow ping: %dms", elapsed.Milliseconds()), Data: data}, nil
		}
		return health.Output{Status: health.StatusHealthy, Message: "OK", Data: data}, nil
	}
}

// RegisterPingers adds one check per instance named "<prefix>:<name>"
func RegisterPingers(engine *health.Engine, prefix string, p Pinger, slow time.Duration) {
	for _, name := range p.Names() {
		engine.AddCheck(prefix+":"+name, PingCheck(p, name, slow))
	}
}
