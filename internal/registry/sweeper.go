package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// ExpirySweeper reclaims expired sessions on a fixed interval, independent of
// request traffic, so seats free up even when users never log out.
type ExpirySweeper struct {
	registry *Registry
	clock    clockwork.Clock
	interval time.Duration
}

func NewExpirySweeper(registry *Registry, interval time.Duration, clock clockwork.Clock) *ExpirySweeper {
	if interval <= 0 {
		panic("registry: sweep interval must be positive")
	}
	return &ExpirySweeper{
		registry: registry,
		clock:    clock,
		interval: interval,
	}
}

// Run starts the periodic sweep loop. It blocks until ctx is cancelled.
func (w *ExpirySweeper) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if reclaimed := w.registry.SweepExpired(w.clock.Now()); reclaimed > 0 {
				slog.Info("Expiry sweep reclaimed sessions", "count", reclaimed)
			}
		}
	}
}
