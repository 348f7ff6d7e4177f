package repository

import (
	"context"
	"sync"

	"github.com/azizikri/qr-credits/internal/domain"
)

type subscriber struct {
	ch chan domain.Ledger
}

// Broadcaster fans ledger snapshots out to per-user subscribers. Each
// subscriber holds at most one pending snapshot; a newer one replaces it.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]map[*subscriber]struct{})}
}

func (b *Broadcaster) Subscribe(ctx context.Context, userID string) (<-chan domain.Ledger, error) {
	sub := &subscriber{ch: make(chan domain.Ledger, 1)}

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[*subscriber]struct{})
	}
	b.subs[userID][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[userID], sub)
		if len(b.subs[userID]) == 0 {
			delete(b.subs, userID)
		}
		close(sub.ch)
		b.mu.Unlock()
	}()

	return sub.ch, nil
}

func (b *Broadcaster) Publish(ledger domain.Ledger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[ledger.UserID] {
		deliverLatest(sub.ch, ledger.Clone())
	}
}

func (b *Broadcaster) Subscribers(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[userID])
}

func deliverLatest(ch chan domain.Ledger, ledger domain.Ledger) {
	for {
		select {
		case ch <- ledger:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
