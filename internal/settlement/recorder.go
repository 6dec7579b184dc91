// Package settlement carries the default SettlementCollaborator used when
// the ledger runs without the game's currency service attached: credits
// accumulate in memory and are logged, which is enough for local runs and
// for the operational server's balance endpoint.
package settlement

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/coinsandsteel/knightlands-server-sub000/internal/interfaces"
)

type Recorder struct {
	log *slog.Logger

	mu       sync.Mutex
	balances map[string]decimal.Decimal
	credits  map[string]struct{} // processed credit ids
}

func NewRecorder(log *slog.Logger) *Recorder {
	return &Recorder{
		log:      log,
		balances: make(map[string]decimal.Decimal),
		credits:  make(map[string]struct{}),
	}
}

// Credit adds amount to the user's balance. Replays of an already-applied
// credit id are acknowledged without double-crediting.
func (r *Recorder) Credit(ctx context.Context, creditID, userID string, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, done := r.credits[creditID]; done {
		return nil
	}
	r.credits[creditID] = struct{}{}
	r.balances[userID] = r.balances[userID].Add(amount)

	r.log.Info("credited settlement reward",
		"credit_id", creditID, "user_id", userID, "amount", amount)
	return nil
}

// Balance returns the user's accumulated credits.
func (r *Recorder) Balance(userID string) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[userID]
}

var _ interfaces.SettlementCollaborator = (*Recorder)(nil)
