package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coinsandsteel/knightlands-server-sub000/internal/models"
)

func TestMemoryLedgerStore_EpochStateRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryLedgerStore()

	st, err := store.LoadEpochState(ctx, "raid_points")
	require.NoError(t, err)
	require.Nil(t, st)

	saved := models.Zeroed(1000)
	saved.TotalShares = decimal.NewFromInt(77)
	require.NoError(t, store.SaveEpochState(ctx, "raid_points", saved))

	st, err = store.LoadEpochState(ctx, "raid_points")
	require.NoError(t, err)
	require.NotNil(t, st)
	require.True(t, st.TotalShares.Equal(decimal.NewFromInt(77)))

	// Kinds are isolated namespaces.
	other, err := store.LoadEpochState(ctx, "dividends")
	require.NoError(t, err)
	require.Nil(t, other)
}

func TestMemoryLedgerStore_RolloverFirstWriterWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryLedgerStore()

	first := models.EpochSnapshot{EpochID: 1000, TotalShares: decimal.NewFromInt(40)}
	second := models.EpochSnapshot{EpochID: 1000, TotalShares: decimal.NewFromInt(99)}

	require.NoError(t, store.RolloverEpoch(ctx, "raid_points", first, models.Zeroed(1100)))
	require.NoError(t, store.RolloverEpoch(ctx, "raid_points", second, models.Zeroed(1100)))

	require.Equal(t, 1, store.SnapshotCount("raid_points"))

	snap, err := store.GetSnapshot(ctx, "raid_points", 1000)
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.True(t, snap.TotalShares.Equal(decimal.NewFromInt(40)),
		"snapshot must be immutable once written, got %s", snap.TotalShares)
}

func TestMemoryLedgerStore_UserLedgerRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryLedgerStore()

	st, err := store.LoadUserLedger(ctx, "raid_points", "user-a")
	require.NoError(t, err)
	require.Nil(t, st)

	require.NoError(t, store.SaveUserLedger(ctx, "raid_points", models.UserLedgerState{
		UserID:           "user-a",
		Tier:             models.TierFree,
		Shares:           decimal.NewFromInt(4000),
		LastClaimedEpoch: 1000,
	}))

	st, err = store.LoadUserLedger(ctx, "raid_points", "user-a")
	require.NoError(t, err)
	require.NotNil(t, st)
	require.Equal(t, models.TierFree, st.Tier)
	require.True(t, st.Shares.Equal(decimal.NewFromInt(4000)))

	// Same user under another kind is a separate ledger.
	other, err := store.LoadUserLedger(ctx, "dividends", "user-a")
	require.NoError(t, err)
	require.Nil(t, other)
}
