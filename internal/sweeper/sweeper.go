package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// IdleSweeper is the target of the periodic sweep; the hub (via its
// transport server) implements it. The sweeper owns the cadence, the
// target owns the semantics.
type IdleSweeper interface {
	SweepIdle(threshold time.Duration) int
}

// Run evicts idle presence connections every interval. A crashed or
// network-partitioned client can leave a transport-level "connected" state
// behind; this bounds how stale that can get.
func Run(ctx context.Context, target IdleSweeper, interval, threshold time.Duration) {
	tk := time.NewTicker(interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				if n := target.SweepIdle(threshold); n > 0 {
					zap.L().Info("sweeper.evicted", zap.Int("connections", n))
				}
			}
		}
	}()
}
