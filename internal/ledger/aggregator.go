package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/coinsandsteel/knightlands-server-sub000/internal/interfaces"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/keymutex"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/metrics"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/models"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/models/events"
)

// Aggregator tracks one kind's process-wide epoch totals and performs the
// lazy epoch rollover. All mutation runs inside the kind's keyed lock for
// the full check-rollover-mutate-persist sequence, so rollover always
// happens-before any increase recorded in the new epoch.
//
// The persisted EpochState is the source of truth across restarts; the
// in-memory copy is a cache hydrated once at startup. Increase refuses to
// run before hydration.
type Aggregator struct {
	kind   string
	period time.Duration
	clock  clockwork.Clock
	store  interfaces.LedgerStore
	pub    interfaces.EventPublisher // optional
	log    *slog.Logger
	locks  *keymutex.KeyMutex

	// state and hydrated are only touched while holding locks.Lock(kind).
	state    models.EpochState
	hydrated bool
}

func newAggregator(kind string, period time.Duration, clock clockwork.Clock, store interfaces.LedgerStore, pub interfaces.EventPublisher, log *slog.Logger, locks *keymutex.KeyMutex) *Aggregator {
	return &Aggregator{
		kind:   kind,
		period: period,
		clock:  clock,
		store:  store,
		pub:    pub,
		log:    log,
		locks:  locks,
	}
}

// CurrentEpoch derives the live epoch id from wall-clock time alone:
// floor(now/period)*period, in Unix seconds.
func (a *Aggregator) CurrentEpoch() models.EpochID {
	p := int64(a.period / time.Second)
	now := a.clock.Now().Unix()
	return models.EpochID(now / p * p)
}

// Hydrate loads the persisted epoch state (creating a zeroed one on first
// run) and immediately repairs any epoch boundary crossed while the
// process was down. Must complete before any Increase call is trusted.
func (a *Aggregator) Hydrate(ctx context.Context) error {
	unlock := a.locks.Lock(a.kind)
	defer unlock()

	st, err := a.store.LoadEpochState(ctx, a.kind)
	if err != nil {
		return fmt.Errorf("load epoch state for %s: %w", a.kind, err)
	}
	if st == nil {
		fresh := models.Zeroed(a.CurrentEpoch())
		if err := a.store.SaveEpochState(ctx, a.kind, fresh); err != nil {
			return fmt.Errorf("init epoch state for %s: %w", a.kind, err)
		}
		st = &fresh
	}
	a.state = *st
	a.hydrated = true

	// Recovery rollover: the stored epoch may be several periods old.
	if err := a.rolloverLocked(ctx, "recovery"); err != nil {
		return err
	}

	a.log.Info("epoch aggregator hydrated",
		"kind", a.kind,
		"epoch", int64(a.state.CurrentEpoch),
		"total_shares", a.state.TotalShares,
		"total_free_shares", a.state.TotalFreeShares)
	return nil
}

// Increase folds a contribution into the current epoch's totals for the
// given tier. The rollover check runs first inside the same critical
// section, so a contribution can never land in a stale epoch. A storage
// failure leaves both the in-memory and persisted state untouched.
func (a *Aggregator) Increase(ctx context.Context, points, shares decimal.Decimal, tier models.Tier) error {
	unlock := a.locks.Lock(a.kind)
	defer unlock()

	if !a.hydrated {
		return fmt.Errorf("epoch aggregator %s not hydrated", a.kind)
	}
	if err := a.rolloverLocked(ctx, "contribution"); err != nil {
		return err
	}

	next := a.state
	switch tier {
	case models.TierFree:
		next.TotalFreePoints = next.TotalFreePoints.Add(points)
		next.TotalFreeShares = next.TotalFreeShares.Add(shares)
	default:
		next.TotalPoints = next.TotalPoints.Add(points)
		next.TotalShares = next.TotalShares.Add(shares)
	}

	if err := a.store.SaveEpochState(ctx, a.kind, next); err != nil {
		return fmt.Errorf("save epoch state for %s: %w", a.kind, err)
	}
	a.state = next

	metrics.ContributionsTotal.WithLabelValues(a.kind, tier.String()).Inc()
	a.publish(events.TopicTotalsUpdated, events.TotalsUpdated{
		Kind:            a.kind,
		Epoch:           int64(next.CurrentEpoch),
		TotalPoints:     next.TotalPoints,
		TotalShares:     next.TotalShares,
		TotalFreePoints: next.TotalFreePoints,
		TotalFreeShares: next.TotalFreeShares,
		OccurredAt:      a.clock.Now().UTC(),
	})
	return nil
}

// RolloverIfNeeded runs the boundary check outside any contribution.
// The scheduler calls it so quiet epochs still close with a zero-totals
// snapshot; settlement calls it so a claim made right after a boundary
// always finds its snapshot already written. trigger only labels metrics
// and logs.
func (a *Aggregator) RolloverIfNeeded(ctx context.Context, trigger string) error {
	unlock := a.locks.Lock(a.kind)
	defer unlock()

	if !a.hydrated {
		return fmt.Errorf("epoch aggregator %s not hydrated", a.kind)
	}
	return a.rolloverLocked(ctx, trigger)
}

// rolloverLocked advances the aggregator across an epoch boundary: it
// snapshots the closing epoch's totals and zeroes the counters, in one
// atomic store write. The snapshot write is an idempotent upsert, so two
// callers observing the same stale epoch race harmlessly. Epochs never
// regress: the new epoch id is always >= the old one.
//
// Callers must hold the kind lock.
func (a *Aggregator) rolloverLocked(ctx context.Context, trigger string) error {
	now := a.CurrentEpoch()
	if now == a.state.CurrentEpoch {
		return nil
	}

	snapshot := models.EpochSnapshot{
		EpochID:         a.state.CurrentEpoch,
		TotalPoints:     a.state.TotalPoints,
		TotalShares:     a.state.TotalShares,
		TotalFreePoints: a.state.TotalFreePoints,
		TotalFreeShares: a.state.TotalFreeShares,
	}
	next := models.Zeroed(now)

	if err := a.store.RolloverEpoch(ctx, a.kind, snapshot, next); err != nil {
		return fmt.Errorf("rollover %s epoch %d: %w", a.kind, int64(snapshot.EpochID), err)
	}
	a.state = next

	metrics.RolloversTotal.WithLabelValues(a.kind, trigger).Inc()
	a.log.Info("epoch rolled over",
		"kind", a.kind,
		"closed_epoch", int64(snapshot.EpochID),
		"new_epoch", int64(now),
		"trigger", trigger,
		"total_shares", snapshot.TotalShares,
		"total_free_shares", snapshot.TotalFreeShares)

	a.publish(events.TopicEpochRolledOver, events.EpochRolledOver{
		Kind:            a.kind,
		ClosedEpoch:     int64(snapshot.EpochID),
		NewEpoch:        int64(now),
		TotalShares:     snapshot.TotalShares,
		TotalFreeShares: snapshot.TotalFreeShares,
		OccurredAt:      a.clock.Now().UTC(),
	})
	return nil
}

// Snapshot returns the immutable totals of a closed epoch, or nil if that
// epoch never produced one.
func (a *Aggregator) Snapshot(ctx context.Context, epoch models.EpochID) (*models.EpochSnapshot, error) {
	return a.store.GetSnapshot(ctx, a.kind, epoch)
}

// LatestState returns a copy of the live epoch totals for telemetry.
func (a *Aggregator) LatestState() models.EpochState {
	unlock := a.locks.Lock(a.kind)
	defer unlock()
	return a.state
}

func (a *Aggregator) publish(topic string, event any) {
	if a.pub == nil {
		return
	}
	if err := a.pub.Publish(topic, event); err != nil {
		a.log.Warn("publish failed", "kind", a.kind, "topic", topic, "error", err)
	}
}
