package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Topics the ledger publishes on.
const (
	TopicTotalsUpdated      = "ledger_totals_updated"
	TopicEpochRolledOver    = "ledger_epoch_rolled_over"
	TopicSettlementComplete = "ledger_settlement_completed"
)

// TotalsUpdated carries a kind's live epoch totals after a contribution.
type TotalsUpdated struct {
	Kind            string          `json:"kind"`
	Epoch           int64           `json:"epoch"`
	TotalPoints     decimal.Decimal `json:"total_points"`
	TotalShares     decimal.Decimal `json:"total_shares"`
	TotalFreePoints decimal.Decimal `json:"total_free_points"`
	TotalFreeShares decimal.Decimal `json:"total_free_shares"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// EpochRolledOver announces that an epoch closed and its snapshot was written.
type EpochRolledOver struct {
	Kind            string          `json:"kind"`
	ClosedEpoch     int64           `json:"closed_epoch"`
	NewEpoch        int64           `json:"new_epoch"`
	TotalShares     decimal.Decimal `json:"total_shares"`
	TotalFreeShares decimal.Decimal `json:"total_free_shares"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// SettlementCompleted is published after a user's reward has been credited.
type SettlementCompleted struct {
	CreditID   string          `json:"credit_id"`
	Kind       string          `json:"kind"`
	UserID     string          `json:"user_id"`
	Epoch      int64           `json:"epoch"`
	Tier       string          `json:"tier"`
	Shares     decimal.Decimal `json:"shares"`
	Reward     decimal.Decimal `json:"reward"`
	OccurredAt time.Time       `json:"occurred_at"`
}
