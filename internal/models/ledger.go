package models

import "github.com/shopspring/decimal"

// EpochID identifies an epoch by its start, in Unix seconds.
// It is always floor(now/period)*period for the owning ledger kind's period.
type EpochID int64

// Tier partitions contributors into independent reward pools sharing one
// epoch clock.
type Tier int

const (
	TierPaid Tier = iota
	TierFree
)

func (t Tier) String() string {
	if t == TierFree {
		return "free"
	}
	return "paid"
}

// UserLedgerState is a user's private bonding-curve accumulator for one
// ledger kind. It is created lazily on first contribution and reset at
// every settlement.
type UserLedgerState struct {
	UserID string
	Tier   Tier

	// Score is lifetime raw points contributed since the last settlement.
	// Informational only; it does not affect payouts.
	Score decimal.Decimal

	// Shares accumulated within the current, not-yet-settled epoch.
	Shares decimal.Decimal

	// PointsPool and SharesPool are the private bonding-curve reservoirs.
	// Both start at the kind's curvature constant; PointsPool only grows
	// within an epoch and SharesPool only shrinks, never below zero.
	PointsPool decimal.Decimal
	SharesPool decimal.Decimal

	// LastClaimedEpoch is the epoch this ledger is accumulating against.
	LastClaimedEpoch EpochID
}

// EpochState is the singleton per-kind record of everything contributed
// within the current epoch, split by tier. Counters are zeroed exactly
// once, at the moment rollover is detected.
type EpochState struct {
	CurrentEpoch EpochID

	TotalPoints decimal.Decimal
	TotalShares decimal.Decimal

	TotalFreePoints decimal.Decimal
	TotalFreeShares decimal.Decimal
}

// Zeroed returns a fresh state anchored at epoch with all counters at zero.
func Zeroed(epoch EpochID) EpochState {
	return EpochState{
		CurrentEpoch:    epoch,
		TotalPoints:     decimal.Zero,
		TotalShares:     decimal.Zero,
		TotalFreePoints: decimal.Zero,
		TotalFreeShares: decimal.Zero,
	}
}

// EpochSnapshot is the immutable record of a closed epoch's final totals.
// At most one exists per (kind, epoch); every settlement against that
// epoch reads the same denominator.
type EpochSnapshot struct {
	EpochID EpochID

	TotalPoints decimal.Decimal
	TotalShares decimal.Decimal

	TotalFreePoints decimal.Decimal
	TotalFreeShares decimal.Decimal
}
