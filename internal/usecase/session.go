package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/azizikri/qr-credits/internal/domain"
)

var errSessionClosed = errors.New("ledger session closed")

type commandKind int

const (
	cmdScan commandKind = iota
	cmdClear
	cmdGet
)

type command struct {
	ctx    context.Context
	kind   commandKind
	code   string
	policy domain.Policy
	reply  chan result
}

type result struct {
	outcome domain.Outcome
	ledger  domain.Ledger
	err     error
}

// Session owns the in-memory ledger of one user. A single goroutine applies
// remote snapshots and local commands in arrival order, so neither needs a
// lock. A snapshot replaces memory only when it was written after the ledger
// currently held; echoes of this session's own earlier writes are dropped.
type Session struct {
	userID         string
	catalog        domain.Catalog
	store          LedgerStore
	persistTimeout time.Duration
	now            func() time.Time

	ledger   domain.Ledger
	commands chan command
	done     chan struct{}
}

func startSession(ctx context.Context, userID string, catalog domain.Catalog, store LedgerStore, feed LedgerFeed, persistTimeout time.Duration, now func() time.Time) (*Session, error) {
	ctx, stop := context.WithCancel(ctx)

	var snapshots <-chan domain.Ledger
	if feed != nil {
		ch, err := feed.Subscribe(ctx, userID)
		if err != nil {
			stop()
			return nil, fmt.Errorf("subscribe ledger %s: %w", userID, err)
		}
		snapshots = ch
	}

	loadCtx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	ledger, err := store.LoadLedger(loadCtx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			stop()
			return nil, fmt.Errorf("load ledger %s: %w", userID, err)
		}
		ledger = domain.NewLedger(userID)
	}

	s := &Session{
		userID:         userID,
		catalog:        catalog,
		store:          store,
		persistTimeout: persistTimeout,
		now:            now,
		ledger:         ledger,
		commands:       make(chan command),
		done:           make(chan struct{}),
	}
	go s.run(ctx, stop, snapshots)
	return s, nil
}

func (s *Session) run(ctx context.Context, stop context.CancelFunc, snapshots <-chan domain.Ledger) {
	defer close(s.done)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			if snap.UserID != s.userID || !snap.UpdatedAt.After(s.ledger.UpdatedAt) {
				continue
			}
			s.ledger = snap.Clone()
		case cmd := <-s.commands:
			cmd.reply <- s.handle(cmd)
		}
	}
}

func (s *Session) handle(cmd command) result {
	switch cmd.kind {
	case cmdScan:
		outcome, next := Redeem(s.ledger, s.catalog, cmd.policy, cmd.code)
		if !outcome.Accepted() {
			return result{outcome: outcome, ledger: s.ledger.Clone(), err: outcome.Err()}
		}
		return s.commit(cmd.ctx, outcome, next)
	case cmdClear:
		outcome, next := Clear(s.ledger)
		return s.commit(cmd.ctx, outcome, next)
	default:
		return result{ledger: s.ledger.Clone()}
	}
}

// commit writes next and only then makes it the in-memory ledger. A failed
// write leaves memory as it was.
func (s *Session) commit(ctx context.Context, outcome domain.Outcome, next domain.Ledger) result {
	next.UpdatedAt = s.nextStamp()

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()

	if err := s.store.SaveLedger(writeCtx, next); err != nil {
		return result{
			outcome: domain.Outcome{
				Kind:    domain.OutcomePersistenceFailure,
				Code:    outcome.Code,
				Balance: s.ledger.Balance,
			},
			ledger: s.ledger.Clone(),
			err:    fmt.Errorf("%w: save ledger %s: %v", domain.ErrPersistence, s.userID, err),
		}
	}

	s.ledger = next
	return result{outcome: outcome, ledger: next.Clone()}
}

// nextStamp returns a write time strictly after the current ledger's, at
// the microsecond precision Postgres keeps, so stored and published copies
// of one write compare equal.
func (s *Session) nextStamp() time.Time {
	stamp := s.now().UTC().Truncate(time.Microsecond)
	if !stamp.After(s.ledger.UpdatedAt) {
		stamp = s.ledger.UpdatedAt.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return stamp
}

func (s *Session) do(ctx context.Context, cmd command) (result, error) {
	cmd.ctx = ctx
	cmd.reply = make(chan result, 1)

	select {
	case s.commands <- cmd:
	case <-s.done:
		return result{}, errSessionClosed
	case <-ctx.Done():
		return result{}, ctx.Err()
	}

	// Once queued the command runs to completion; the write is bounded by
	// the persist timeout, so the caller always learns the outcome.
	return <-cmd.reply, nil
}
