package memory

import (
	"context"
	"sync"

	"github.com/coinsandsteel/knightlands-server-sub000/internal/interfaces"
	"github.com/coinsandsteel/knightlands-server-sub000/internal/models"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore,
// used by tests and local runs. All maps are keyed by kind so one instance
// serves every ledger kind, matching the durable stores.
type MemoryLedgerStore struct {
	mu         sync.Mutex
	epochState map[string]models.EpochState
	snapshots  map[string]map[models.EpochID]models.EpochSnapshot
	users      map[string]map[string]models.UserLedgerState
}

func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		epochState: make(map[string]models.EpochState),
		snapshots:  make(map[string]map[models.EpochID]models.EpochSnapshot),
		users:      make(map[string]map[string]models.UserLedgerState),
	}
}

func (m *MemoryLedgerStore) LoadEpochState(ctx context.Context, kind string) (*models.EpochState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.epochState[kind]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *MemoryLedgerStore) SaveEpochState(ctx context.Context, kind string, state models.EpochState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epochState[kind] = state
	return nil
}

// RolloverEpoch records the closing epoch's snapshot and replaces the epoch
// state under one lock, mirroring the single transaction the durable store
// uses. The snapshot write is first-writer-wins: a second rollover for the
// same epoch id leaves the original snapshot untouched.
func (m *MemoryLedgerStore) RolloverEpoch(ctx context.Context, kind string, snapshot models.EpochSnapshot, next models.EpochState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byEpoch, ok := m.snapshots[kind]
	if !ok {
		byEpoch = make(map[models.EpochID]models.EpochSnapshot)
		m.snapshots[kind] = byEpoch
	}
	if _, exists := byEpoch[snapshot.EpochID]; !exists {
		byEpoch[snapshot.EpochID] = snapshot
	}
	m.epochState[kind] = next
	return nil
}

func (m *MemoryLedgerStore) GetSnapshot(ctx context.Context, kind string, epoch models.EpochID) (*models.EpochSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, ok := m.snapshots[kind][epoch]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *MemoryLedgerStore) LoadUserLedger(ctx context.Context, kind, userID string) (*models.UserLedgerState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.users[kind][userID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *MemoryLedgerStore) SaveUserLedger(ctx context.Context, kind string, state models.UserLedgerState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byUser, ok := m.users[kind]
	if !ok {
		byUser = make(map[string]models.UserLedgerState)
		m.users[kind] = byUser
	}
	byUser[state.UserID] = state
	return nil
}

// SnapshotCount reports how many snapshots exist for a kind. Test helper.
func (m *MemoryLedgerStore) SnapshotCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots[kind])
}

// Compile-time check: MemoryLedgerStore implements LedgerStore.
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
