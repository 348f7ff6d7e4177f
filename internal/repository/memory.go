package repository

import (
	"context"
	"sync"

	"github.com/azizikri/qr-credits/internal/domain"
)

// MemoryStore keeps ledgers in process and publishes every save to its
// subscribers. Tests use it as both store and feed in place of Postgres.
type MemoryStore struct {
	*Broadcaster

	mu      sync.RWMutex
	ledgers map[string]domain.Ledger
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Broadcaster: NewBroadcaster(),
		ledgers:     make(map[string]domain.Ledger),
	}
}

func (m *MemoryStore) LoadLedger(ctx context.Context, userID string) (domain.Ledger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.ledgers[userID]
	if !ok {
		return domain.Ledger{}, domain.ErrNotFound
	}
	return l.Clone(), nil
}

func (m *MemoryStore) SaveLedger(ctx context.Context, ledger domain.Ledger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.ledgers[ledger.UserID] = ledger.Clone()
	m.mu.Unlock()

	m.Publish(ledger)
	return nil
}
