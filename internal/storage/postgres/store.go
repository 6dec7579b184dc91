package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coinsandsteel/knightlands-server-sub000/internal/interfaces"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/models"
)

// PostgresLedgerStore persists epoch ledger state in three tables:
// a per-kind epoch-state singleton, an append-only snapshot table keyed by
// (kind, epoch_id), and per-(kind, user) ledger rows. All amounts are
// NUMERIC so decimal values round-trip without drift.
type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{db: db}
}

// EnsureSchema creates the ledger tables if they do not exist yet.
func (p *PostgresLedgerStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS ledger_epoch_state (
		kind              TEXT PRIMARY KEY,
		current_epoch     BIGINT NOT NULL,
		total_points      NUMERIC NOT NULL,
		total_shares      NUMERIC NOT NULL,
		total_free_points NUMERIC NOT NULL,
		total_free_shares NUMERIC NOT NULL
	);
	CREATE TABLE IF NOT EXISTS ledger_epoch_snapshots (
		kind              TEXT NOT NULL,
		epoch_id          BIGINT NOT NULL,
		total_points      NUMERIC NOT NULL,
		total_shares      NUMERIC NOT NULL,
		total_free_points NUMERIC NOT NULL,
		total_free_shares NUMERIC NOT NULL,
		PRIMARY KEY (kind, epoch_id)
	);
	CREATE TABLE IF NOT EXISTS ledger_user_state (
		kind         TEXT NOT NULL,
		user_id      TEXT NOT NULL,
		tier         SMALLINT NOT NULL,
		last_claimed BIGINT NOT NULL,
		points_pool  NUMERIC NOT NULL,
		shares_pool  NUMERIC NOT NULL,
		shares       NUMERIC NOT NULL,
		score        NUMERIC NOT NULL,
		PRIMARY KEY (kind, user_id)
	);`

	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

func (p *PostgresLedgerStore) LoadEpochState(ctx context.Context, kind string) (*models.EpochState, error) {
	const query = `SELECT current_epoch, total_points, total_shares, total_free_points, total_free_shares
	FROM ledger_epoch_state WHERE kind = $1`

	var st models.EpochState
	var epoch int64
	err := p.db.QueryRowContext(ctx, query, kind).Scan(
		&epoch, &st.TotalPoints, &st.TotalShares, &st.TotalFreePoints, &st.TotalFreeShares,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	st.CurrentEpoch = models.EpochID(epoch)
	return &st, nil
}

func (p *PostgresLedgerStore) SaveEpochState(ctx context.Context, kind string, state models.EpochState) error {
	return p.saveEpochState(ctx, p.db, kind, state)
}

// execer covers *sql.DB and *sql.Tx so saves compose into transactions.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (p *PostgresLedgerStore) saveEpochState(ctx context.Context, ex execer, kind string, state models.EpochState) error {
	const query = `INSERT INTO ledger_epoch_state
		(kind, current_epoch, total_points, total_shares, total_free_points, total_free_shares)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (kind) DO UPDATE SET
		current_epoch     = EXCLUDED.current_epoch,
		total_points      = EXCLUDED.total_points,
		total_shares      = EXCLUDED.total_shares,
		total_free_points = EXCLUDED.total_free_points,
		total_free_shares = EXCLUDED.total_free_shares`

	_, err := ex.ExecContext(ctx, query, kind, int64(state.CurrentEpoch),
		state.TotalPoints, state.TotalShares, state.TotalFreePoints, state.TotalFreeShares)
	return err
}

// RolloverEpoch writes the closing epoch's snapshot and the zeroed state in
// one transaction. The snapshot insert is ON CONFLICT DO NOTHING: the first
// writer wins and a concurrent rollover for the same epoch id is a no-op,
// never a mutation of history.
func (p *PostgresLedgerStore) RolloverEpoch(ctx context.Context, kind string, snapshot models.EpochSnapshot, next models.EpochState) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	const insertSnapshot = `INSERT INTO ledger_epoch_snapshots
		(kind, epoch_id, total_points, total_shares, total_free_points, total_free_shares)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (kind, epoch_id) DO NOTHING`

	_, err = tx.ExecContext(ctx, insertSnapshot, kind, int64(snapshot.EpochID),
		snapshot.TotalPoints, snapshot.TotalShares, snapshot.TotalFreePoints, snapshot.TotalFreeShares)
	if err != nil {
		return err
	}

	if err = p.saveEpochState(ctx, tx, kind, next); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PostgresLedgerStore) GetSnapshot(ctx context.Context, kind string, epoch models.EpochID) (*models.EpochSnapshot, error) {
	const query = `SELECT total_points, total_shares, total_free_points, total_free_shares
	FROM ledger_epoch_snapshots WHERE kind = $1 AND epoch_id = $2`

	snap := models.EpochSnapshot{EpochID: epoch}
	err := p.db.QueryRowContext(ctx, query, kind, int64(epoch)).Scan(
		&snap.TotalPoints, &snap.TotalShares, &snap.TotalFreePoints, &snap.TotalFreeShares,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (p *PostgresLedgerStore) LoadUserLedger(ctx context.Context, kind, userID string) (*models.UserLedgerState, error) {
	const query = `SELECT tier, last_claimed, points_pool, shares_pool, shares, score
	FROM ledger_user_state WHERE kind = $1 AND user_id = $2`

	st := models.UserLedgerState{UserID: userID}
	var tier int
	var lastClaimed int64
	err := p.db.QueryRowContext(ctx, query, kind, userID).Scan(
		&tier, &lastClaimed, &st.PointsPool, &st.SharesPool, &st.Shares, &st.Score,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	st.Tier = models.Tier(tier)
	st.LastClaimedEpoch = models.EpochID(lastClaimed)
	return &st, nil
}

func (p *PostgresLedgerStore) SaveUserLedger(ctx context.Context, kind string, state models.UserLedgerState) error {
	const query = `INSERT INTO ledger_user_state
		(kind, user_id, tier, last_claimed, points_pool, shares_pool, shares, score)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (kind, user_id) DO UPDATE SET
		tier         = EXCLUDED.tier,
		last_claimed = EXCLUDED.last_claimed,
		points_pool  = EXCLUDED.points_pool,
		shares_pool  = EXCLUDED.shares_pool,
		shares       = EXCLUDED.shares,
		score        = EXCLUDED.score`

	_, err := p.db.ExecContext(ctx, query, kind, state.UserID, int(state.Tier),
		int64(state.LastClaimedEpoch), state.PointsPool, state.SharesPool, state.Shares, state.Score)
	return err
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
