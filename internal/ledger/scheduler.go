package ledger

import (
	"context"
	"time"
)

// schedulerGrace is how far past an epoch boundary the scheduler fires.
// The small delay keeps the timer from racing the boundary itself; a
// contribution landing first simply performs the rollover lazily and the
// scheduler's call becomes a no-op.
const schedulerGrace = time.Second

// runScheduler forces a rollover check shortly after every epoch boundary
// so epochs with zero activity still close with a zero-totals snapshot.
// Overlapping or redundant fires are safe: RolloverIfNeeded serializes on
// the kind lock and the boundary check inside it is idempotent.
//
// The immediate recovery check happens in Init via Hydrate, before this
// loop starts.
func (k *Kind) runScheduler(ctx context.Context) {
	defer close(k.done)

	k.log.Info("epoch scheduler started", "period", k.cfg.Period)

	for {
		// Re-arm from the aggregator's own epoch, not the wall clock:
		// after a failed rollover that epoch is stale, its boundary is
		// already behind us, and the wait degrades to a retry every
		// grace interval until the store recovers.
		boundary := time.Unix(int64(k.agg.LatestState().CurrentEpoch), 0).Add(k.cfg.Period)
		wait := boundary.Sub(k.cfg.Clock.Now()) + schedulerGrace
		if wait < schedulerGrace {
			wait = schedulerGrace
		}

		timer := k.cfg.Clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			k.log.Info("epoch scheduler stopped")
			return
		case <-timer.Chan():
			if err := k.agg.RolloverIfNeeded(ctx, "scheduler"); err != nil {
				k.log.Error("scheduled rollover failed", "error", err)
			}
		}
	}
}
