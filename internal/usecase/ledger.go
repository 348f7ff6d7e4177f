package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/azizikri/qr-credits/internal/domain"
)

const DefaultPersistTimeout = 5 * time.Second

type sessionSlot struct {
	ready   chan struct{}
	session *Session
	err     error
}

// LedgerService keeps exactly one Session per user and routes operations to
// it.
type LedgerService struct {
	catalog        domain.Catalog
	store          LedgerStore
	feed           LedgerFeed
	policies       PolicyResolver
	notifier       Notifier
	metrics        Metrics
	persistTimeout time.Duration
	now            func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*sessionSlot
}

type Option func(*LedgerService)

func WithNotifier(n Notifier) Option {
	return func(s *LedgerService) { s.notifier = n }
}

func WithMetrics(m Metrics) Option {
	return func(s *LedgerService) { s.metrics = m }
}

func WithPersistTimeout(d time.Duration) Option {
	return func(s *LedgerService) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

// NewLedgerService wires the redemption engine. feed may be nil, in which
// case sessions only see their own writes.
func NewLedgerService(catalog domain.Catalog, store LedgerStore, feed LedgerFeed, policies PolicyResolver, opts ...Option) *LedgerService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &LedgerService{
		catalog:        catalog,
		store:          store,
		feed:           feed,
		policies:       policies,
		notifier:       nopNotifier{},
		metrics:        nopMetrics{},
		persistTimeout: DefaultPersistTimeout,
		now:            time.Now,
		ctx:            ctx,
		cancel:         cancel,
		sessions:       make(map[string]*sessionSlot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) SubmitScan(ctx context.Context, id domain.Identity, code string) (domain.Outcome, error) {
	policy := s.policies.Resolve(id)
	r, err := s.dispatch(ctx, id, command{kind: cmdScan, code: code, policy: policy})
	if err != nil {
		return domain.Outcome{}, err
	}
	s.observe(ctx, domain.NormalizeUserID(id.UserID), policy, r.outcome)
	return r.outcome, r.err
}

// ScanAndRedeem runs one scanner session and submits every decoded code in
// order. Rule rejections and persistence failures are reported per code and
// do not stop the batch.
func (s *LedgerService) ScanAndRedeem(ctx context.Context, id domain.Identity, scanner Scanner) ([]domain.Outcome, error) {
	if !scanner.IsSupported(ctx) {
		return nil, domain.ErrScannerUnsupported
	}
	permission, err := scanner.RequestPermission(ctx)
	if err != nil {
		return nil, fmt.Errorf("request camera permission: %w", err)
	}
	if !permission.Allowed() {
		return nil, domain.ErrPermissionDenied
	}

	codes, err := scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	outcomes := make([]domain.Outcome, 0, len(codes))
	for _, code := range codes {
		outcome, err := s.SubmitScan(ctx, id, code)
		if err != nil && outcome.Kind == "" {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (s *LedgerService) ClearLedger(ctx context.Context, id domain.Identity) (domain.Outcome, error) {
	r, err := s.dispatch(ctx, id, command{kind: cmdClear})
	if err != nil {
		return domain.Outcome{}, err
	}
	s.observe(ctx, domain.NormalizeUserID(id.UserID), s.policies.Resolve(id), r.outcome)
	return r.outcome, r.err
}

func (s *LedgerService) GetLedger(ctx context.Context, id domain.Identity) (domain.Ledger, error) {
	r, err := s.dispatch(ctx, id, command{kind: cmdGet})
	if err != nil {
		return domain.Ledger{}, err
	}
	return r.ledger, nil
}

// Close stops every session and waits for their loops to exit.
func (s *LedgerService) Close() {
	s.cancel()

	s.mu.Lock()
	slots := make([]*sessionSlot, 0, len(s.sessions))
	for _, slot := range s.sessions {
		slots = append(slots, slot)
	}
	s.mu.Unlock()

	for _, slot := range slots {
		<-slot.ready
		if slot.session != nil {
			<-slot.session.done
		}
	}
}

func (s *LedgerService) dispatch(ctx context.Context, id domain.Identity, cmd command) (result, error) {
	userID := domain.NormalizeUserID(id.UserID)
	if userID == "" {
		return result{}, domain.ErrMissingIdentity
	}
	sess, err := s.session(ctx, userID)
	if err != nil {
		return result{}, err
	}
	return sess.do(ctx, cmd)
}

func (s *LedgerService) session(ctx context.Context, userID string) (*Session, error) {
	s.mu.Lock()
	if slot, ok := s.sessions[userID]; ok {
		s.mu.Unlock()
		select {
		case <-slot.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if slot.err != nil {
			return nil, slot.err
		}
		return slot.session, nil
	}
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return nil, errSessionClosed
	}
	slot := &sessionSlot{ready: make(chan struct{})}
	s.sessions[userID] = slot
	s.mu.Unlock()

	slot.session, slot.err = startSession(s.ctx, userID, s.catalog, s.store, s.feed, s.persistTimeout, s.now)
	close(slot.ready)

	if slot.err != nil {
		s.mu.Lock()
		delete(s.sessions, userID)
		s.mu.Unlock()
		return nil, slot.err
	}
	return slot.session, nil
}

func (s *LedgerService) observe(ctx context.Context, userID string, policy domain.Policy, outcome domain.Outcome) {
	s.metrics.ObserveOutcome(policy, outcome)
	s.notifier.Notify(ctx, userID, outcome)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, domain.Outcome) {}

type nopMetrics struct{}

func (nopMetrics) ObserveOutcome(domain.Policy, domain.Outcome) {}
