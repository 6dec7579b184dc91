package interfaces

import (
	"context"

	"github.com/coinsandsteel/knightlands-server-sub000/internal/models"
)

// LedgerStore is the durable persistence boundary for the epoch ledger.
// Every method is namespaced by kind so one store serves all ledger kinds.
//
// RolloverEpoch must be atomic: either the snapshot is recorded and the
// epoch state replaced, or neither happens. The snapshot write is an
// idempotent upsert keyed by (kind, epoch id): writing the same epoch
// twice must leave the first snapshot untouched.
type LedgerStore interface {
	LoadEpochState(ctx context.Context, kind string) (*models.EpochState, error)
	SaveEpochState(ctx context.Context, kind string, state models.EpochState) error
	RolloverEpoch(ctx context.Context, kind string, snapshot models.EpochSnapshot, next models.EpochState) error
	GetSnapshot(ctx context.Context, kind string, epoch models.EpochID) (*models.EpochSnapshot, error)

	LoadUserLedger(ctx context.Context, kind, userID string) (*models.UserLedgerState, error)
	SaveUserLedger(ctx context.Context, kind string, state models.UserLedgerState) error
}
