package interfaces

import (
	"context"

	"github.com/shopspring/decimal"
)

// SettlementCollaborator credits a user's real currency balance once an
// epoch settles. creditID is a unique id for the credit so collaborators
// that forward to slower backends (chain transfers, payment queues) can
// deduplicate retries.
//
// Credit must only return nil once the credit is durable: the ledger
// resets a user's accrued shares only after a successful Credit, so an
// error here leaves the user eligible to settle again on the next touch.
type SettlementCollaborator interface {
	Credit(ctx context.Context, creditID, userID string, amount decimal.Decimal) error
}
