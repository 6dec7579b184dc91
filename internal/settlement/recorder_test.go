package settlement

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coinsandsteel/knightlands-server-sub000/internal/logger"
)

func TestRecorder_AccumulatesCredits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewRecorder(logger.NewNop())

	require.NoError(t, r.Credit(ctx, "c1", "user-a", decimal.NewFromInt(1000)))
	require.NoError(t, r.Credit(ctx, "c2", "user-a", decimal.NewFromInt(500)))
	require.NoError(t, r.Credit(ctx, "c3", "user-b", decimal.NewFromInt(100)))

	require.True(t, r.Balance("user-a").Equal(decimal.NewFromInt(1500)))
	require.True(t, r.Balance("user-b").Equal(decimal.NewFromInt(100)))
	require.True(t, r.Balance("stranger").IsZero())
}

func TestRecorder_ReplayedCreditIDIsIgnored(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewRecorder(logger.NewNop())

	require.NoError(t, r.Credit(ctx, "c1", "user-a", decimal.NewFromInt(1000)))
	require.NoError(t, r.Credit(ctx, "c1", "user-a", decimal.NewFromInt(1000)))

	require.True(t, r.Balance("user-a").Equal(decimal.NewFromInt(1000)))
}
