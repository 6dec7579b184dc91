// Package ledger implements the epoch-settled bonding-curve contribution
// ledger behind the game's DKT-paying features. One Kind instance is one
// independent ledger (raid points, dividends, seasonal points), each with
// its own epoch clock, curve constants, and persistence namespace, all
// running on the same generic engine.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/coinsandsteel/knightlands-server-sub000/internal/interfaces"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/keymutex"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/models"
)

// Config carries everything a Kind needs. Store, Settler, and Logger are
// required; Publisher is optional and Clock defaults to the real clock.
type Config struct {
	// Name is the ledger kind, e.g. "raid_points". It keys the kind's
	// lock and namespaces every persisted record.
	Name string

	// Period is the epoch length.
	Period time.Duration

	// Curvature is the initial size of each user's private point and
	// share pools. Larger values flatten the diminishing-return curve.
	Curvature decimal.Decimal

	// Emission and FreeEmission are the per-epoch reward budgets for the
	// paid and free tiers. The tiers draw from separate share pools on
	// the same clock.
	Emission     decimal.Decimal
	FreeEmission decimal.Decimal

	Store     interfaces.LedgerStore
	Settler   interfaces.SettlementCollaborator
	Publisher interfaces.EventPublisher
	Logger    *slog.Logger
	Clock     clockwork.Clock
}

func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("kind name is required")
	}
	if c.Period < time.Second {
		return errors.New("period must be at least one second")
	}
	if !c.Curvature.IsPositive() {
		return errors.New("curvature must be positive")
	}
	if c.Emission.IsNegative() || c.FreeEmission.IsNegative() {
		return errors.New("emissions must not be negative")
	}
	if c.Store == nil {
		return errors.New("store is required")
	}
	if c.Settler == nil {
		return errors.New("settlement collaborator is required")
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Kind is one ledger kind's public surface. Construct with New, then call
// Init exactly once before any other method, and Close on shutdown.
type Kind struct {
	cfg   Config
	log   *slog.Logger
	locks *keymutex.KeyMutex
	agg   *Aggregator

	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config) (*Kind, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	locks := keymutex.New()
	return &Kind{
		cfg:   cfg,
		log:   cfg.Logger.With("kind", cfg.Name),
		locks: locks,
		agg:   newAggregator(cfg.Name, cfg.Period, cfg.Clock, cfg.Store, cfg.Publisher, cfg.Logger, locks),
	}, nil
}

func (k *Kind) Name() string { return k.cfg.Name }

// Init hydrates the aggregator from storage, repairs any epoch boundary
// missed while the process was down, and starts the rollover scheduler.
func (k *Kind) Init(ctx context.Context) error {
	if err := k.agg.Hydrate(ctx); err != nil {
		return err
	}

	sctx, cancel := context.WithCancel(context.Background())
	k.cancel = cancel
	k.done = make(chan struct{})
	go k.runScheduler(sctx)
	return nil
}

// Close stops the scheduler and waits for it to exit. In-flight ledger
// operations are not interrupted; they finish under their locks.
func (k *Kind) Close() {
	if k.cancel == nil {
		return
	}
	k.cancel()
	<-k.done
}

// CurrentEpoch exposes the kind's live epoch id.
func (k *Kind) CurrentEpoch() models.EpochID {
	return k.agg.CurrentEpoch()
}

// LatestState returns the live epoch totals for UI display of the pool.
func (k *Kind) LatestState() models.EpochState {
	return k.agg.LatestState()
}
