package ledger

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/coinsandsteel/knightlands-server-sub000/internal/models"
)

func TestScheduler_ClosesQuietEpochs(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	fc := clockwork.NewFakeClockAt(time.Unix(testBaseUnix, 0))

	k, err := New(testConfig(store, newMockSettler(), fc))
	require.NoError(t, err)
	require.NoError(t, k.Init(context.Background()))
	defer k.Close()

	// No contributions at all: the scheduler alone must close the epoch
	// with a zero-totals snapshot.
	fc.BlockUntil(1)
	fc.Advance(102 * time.Second)
	require.Eventually(t, func() bool {
		return store.SnapshotCount("raid_points") == 1
	}, 2*time.Second, 10*time.Millisecond)

	// And the one after it, re-armed from the new boundary.
	fc.BlockUntil(1)
	fc.Advance(100 * time.Second)
	require.Eventually(t, func() bool {
		return store.SnapshotCount("raid_points") == 2
	}, 2*time.Second, 10*time.Millisecond)

	snap, err := k.agg.Snapshot(context.Background(), testBaseUnix)
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.True(t, snap.TotalShares.IsZero())
}

func TestScheduler_RetriesFailedRolloverAtGraceIntervals(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	fc := clockwork.NewFakeClockAt(time.Unix(testBaseUnix, 0))

	// The store rejects rollovers until told otherwise.
	var storeDown atomic.Bool
	storeDown.Store(true)
	var attempts atomic.Int32
	store.rolloverFunc = func(ctx context.Context, kind string, snapshot models.EpochSnapshot, next models.EpochState) error {
		attempts.Add(1)
		if storeDown.Load() {
			return errors.New("store down")
		}
		return store.MemoryLedgerStore.RolloverEpoch(ctx, kind, snapshot, next)
	}

	k, err := New(testConfig(store, newMockSettler(), fc))
	require.NoError(t, err)
	require.NoError(t, k.Init(context.Background()))
	defer k.Close()

	fc.BlockUntil(1)
	fc.Advance(101 * time.Second)
	require.Eventually(t, func() bool {
		return attempts.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// The re-arm must come from the aggregator's stale epoch, whose
	// boundary is already behind us: the retry fires within the grace
	// interval, not a full period away.
	fc.BlockUntil(1)
	storeDown.Store(false)
	fc.Advance(2 * time.Second)
	require.Eventually(t, func() bool {
		return store.SnapshotCount("raid_points") == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, models.EpochID(testBaseUnix+100), k.LatestState().CurrentEpoch)
}

func TestScheduler_CloseStopsTheLoop(t *testing.T) {
	t.Parallel()

	fc := clockwork.NewFakeClockAt(time.Unix(testBaseUnix, 0))
	k, err := New(testConfig(newMockStore(), newMockSettler(), fc))
	require.NoError(t, err)
	require.NoError(t, k.Init(context.Background()))

	done := make(chan struct{})
	go func() {
		k.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not stop the scheduler")
	}

	// Close is safe to call again.
	k.Close()
}
