package ledger

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/coinsandsteel/knightlands-server-sub000/internal/metrics"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/models"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/models/events"
)

func (k *Kind) userKey(userID string) string {
	return k.cfg.Name + ":user:" + userID
}

func (k *Kind) freshUserState(userID string, tier models.Tier) models.UserLedgerState {
	return models.UserLedgerState{
		UserID:           userID,
		Tier:             tier,
		Score:            decimal.Zero,
		Shares:           decimal.Zero,
		PointsPool:       k.cfg.Curvature,
		SharesPool:       k.cfg.Curvature,
		LastClaimedEpoch: k.agg.CurrentEpoch(),
	}
}

// AddPoints records raw points a game feature awarded to the user. Any
// pending epoch is settled first, then the amount is pushed through the
// user's bonding curve and the resulting shares are folded into the
// kind-wide totals for the user's tier.
//
// Points originate from internal reward computations the ledger does not
// fully trust: NaN, infinite, and negative amounts are dropped without
// error rather than allowed to corrupt the pools.
func (k *Kind) AddPoints(ctx context.Context, userID string, tier models.Tier, amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		metrics.ContributionsDroppedTotal.WithLabelValues(k.cfg.Name, "non_finite").Inc()
		k.log.Debug("dropped non-finite contribution", "user_id", userID)
		return nil
	}
	if amount < 0 {
		metrics.ContributionsDroppedTotal.WithLabelValues(k.cfg.Name, "negative").Inc()
		k.log.Debug("dropped negative contribution", "user_id", userID, "amount", amount)
		return nil
	}

	unlock := k.locks.Lock(k.userKey(userID))
	defer unlock()

	st, err := k.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if st == nil {
		fresh := k.freshUserState(userID, tier)
		st = &fresh
	}
	if st.Tier != tier {
		// Switching tiers forfeits the running epoch: the accrued shares
		// were earned against the other tier's pool and cannot settle
		// against this one.
		fresh := k.freshUserState(userID, tier)
		st = &fresh
	}

	if err := k.settleLocked(ctx, st); err != nil {
		return err
	}

	amt := decimal.NewFromFloat(amount)
	shares := sharesFor(amt, st.PointsPool, st.SharesPool)

	st.PointsPool = st.PointsPool.Add(amt)
	st.SharesPool = st.SharesPool.Sub(shares)
	st.Shares = st.Shares.Add(shares)
	st.Score = st.Score.Add(amt)

	if err := k.cfg.Store.SaveUserLedger(ctx, k.cfg.Name, *st); err != nil {
		return fmt.Errorf("save user ledger %s/%s: %w", k.cfg.Name, userID, err)
	}
	return k.agg.Increase(ctx, amt, shares, tier)
}

// TrySettle flushes the user's pending epoch, if any. Game code calls this
// on any touch of the account (login, inventory open) so rewards land
// without waiting for the next contribution. A user with no ledger state
// has nothing to settle.
func (k *Kind) TrySettle(ctx context.Context, userID string) error {
	unlock := k.locks.Lock(k.userKey(userID))
	defer unlock()

	st, err := k.loadUser(ctx, userID)
	if err != nil || st == nil {
		return err
	}
	return k.settleLocked(ctx, st)
}

// ResetUser forcibly zeroes the user's ledger and re-anchors it to the
// current epoch without paying out. Used when an account status change
// forfeits the running epoch.
func (k *Kind) ResetUser(ctx context.Context, userID string) error {
	unlock := k.locks.Lock(k.userKey(userID))
	defer unlock()

	st, err := k.loadUser(ctx, userID)
	if err != nil || st == nil {
		return err
	}
	fresh := k.freshUserState(userID, st.Tier)
	if err := k.cfg.Store.SaveUserLedger(ctx, k.cfg.Name, fresh); err != nil {
		return fmt.Errorf("reset user ledger %s/%s: %w", k.cfg.Name, userID, err)
	}
	return nil
}

// UserState returns a copy of the user's ledger state, or nil if the user
// has never contributed to this kind.
func (k *Kind) UserState(ctx context.Context, userID string) (*models.UserLedgerState, error) {
	unlock := k.locks.Lock(k.userKey(userID))
	defer unlock()
	return k.loadUser(ctx, userID)
}

func (k *Kind) loadUser(ctx context.Context, userID string) (*models.UserLedgerState, error) {
	st, err := k.cfg.Store.LoadUserLedger(ctx, k.cfg.Name, userID)
	if err != nil {
		return nil, fmt.Errorf("load user ledger %s/%s: %w", k.cfg.Name, userID, err)
	}
	return st, nil
}

// settleLocked resolves the user's pending epoch against its immutable
// snapshot. The caller must hold the user's lock and st must be non-nil.
//
// Order matters here: the reward is credited through the external
// collaborator first, and only once that call has succeeded is the reset
// ledger persisted. A crediting failure therefore leaves the user
// eligible to retry settlement on the next touch, never short-changed.
func (k *Kind) settleLocked(ctx context.Context, st *models.UserLedgerState) error {
	current := k.agg.CurrentEpoch()
	if st.LastClaimedEpoch == current {
		return nil
	}

	timer := prometheus.NewTimer(metrics.SettlementDuration.WithLabelValues(k.cfg.Name))
	defer timer.ObserveDuration()

	// The snapshot for the boundary we just crossed may not exist yet if
	// this touch is the first activity of the new epoch; run the lazy
	// rollover before reading it.
	if err := k.agg.RolloverIfNeeded(ctx, "settlement"); err != nil {
		metrics.SettlementsTotal.WithLabelValues(k.cfg.Name, "error").Inc()
		return err
	}

	// A missing snapshot means the epoch closed with no rollover record
	// (restart mid-epoch with zero traffic). The claim resolves to zero
	// rather than blocking gameplay on a hole in history.
	snap, err := k.agg.Snapshot(ctx, st.LastClaimedEpoch)
	if err != nil {
		metrics.SettlementsTotal.WithLabelValues(k.cfg.Name, "error").Inc()
		return fmt.Errorf("load snapshot %s/%d: %w", k.cfg.Name, int64(st.LastClaimedEpoch), err)
	}

	reward := decimal.Zero
	if snap != nil {
		denom, emission := snap.TotalShares, k.cfg.Emission
		if st.Tier == models.TierFree {
			denom, emission = snap.TotalFreeShares, k.cfg.FreeEmission
		}
		if denom.IsPositive() && st.Shares.IsPositive() {
			reward = st.Shares.Div(denom).Mul(emission)
		}
	}

	if reward.IsPositive() {
		creditID := uuid.New().String()
		if err := k.cfg.Settler.Credit(ctx, creditID, st.UserID, reward); err != nil {
			metrics.SettlementsTotal.WithLabelValues(k.cfg.Name, "error").Inc()
			return fmt.Errorf("credit settlement %s/%s: %w", k.cfg.Name, st.UserID, err)
		}
		metrics.SettlementsTotal.WithLabelValues(k.cfg.Name, "credited").Inc()
		k.log.Info("settled epoch reward",
			"user_id", st.UserID,
			"epoch", int64(st.LastClaimedEpoch),
			"tier", st.Tier.String(),
			"shares", st.Shares,
			"reward", reward,
			"credit_id", creditID)
		k.publish(events.TopicSettlementComplete, events.SettlementCompleted{
			CreditID:   creditID,
			Kind:       k.cfg.Name,
			UserID:     st.UserID,
			Epoch:      int64(st.LastClaimedEpoch),
			Tier:       st.Tier.String(),
			Shares:     st.Shares,
			Reward:     reward,
			OccurredAt: k.cfg.Clock.Now().UTC(),
		})
	} else {
		metrics.SettlementsTotal.WithLabelValues(k.cfg.Name, "zero").Inc()
	}

	*st = k.freshUserState(st.UserID, st.Tier)
	if err := k.cfg.Store.SaveUserLedger(ctx, k.cfg.Name, *st); err != nil {
		return fmt.Errorf("save settled user ledger %s/%s: %w", k.cfg.Name, st.UserID, err)
	}
	return nil
}

func (k *Kind) publish(topic string, event any) {
	if k.cfg.Publisher == nil {
		return
	}
	if err := k.cfg.Publisher.Publish(topic, event); err != nil {
		k.log.Warn("publish failed", "topic", topic, "error", err)
	}
}
