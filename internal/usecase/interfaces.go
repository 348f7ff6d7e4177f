package usecase

import (
	"context"

	"github.com/azizikri/qr-credits/internal/domain"
)

// LedgerGateway is the surface the delivery layer talks to, either in
// process or across Kafka.
type LedgerGateway interface {
	SubmitScan(ctx context.Context, id domain.Identity, code string) (domain.Outcome, error)
	ScanBatch(ctx context.Context, id domain.Identity, codes []string, permission domain.Permission) ([]domain.Outcome, error)
	ClearLedger(ctx context.Context, id domain.Identity) (domain.Outcome, error)
	GetLedger(ctx context.Context, id domain.Identity) (domain.Ledger, error)
}

// LedgerStore persists whole ledgers keyed by user. LoadLedger returns
// domain.ErrNotFound when no record exists.
type LedgerStore interface {
	LoadLedger(ctx context.Context, userID string) (domain.Ledger, error)
	SaveLedger(ctx context.Context, ledger domain.Ledger) error
}

// LedgerFeed delivers ledger snapshots written by any session or device.
// The channel is closed when ctx is done.
type LedgerFeed interface {
	Subscribe(ctx context.Context, userID string) (<-chan domain.Ledger, error)
}

type Scanner interface {
	IsSupported(ctx context.Context) bool
	RequestPermission(ctx context.Context) (domain.Permission, error)
	Scan(ctx context.Context) ([]string, error)
}

type PolicyResolver interface {
	Resolve(id domain.Identity) domain.Policy
}

type Notifier interface {
	Notify(ctx context.Context, userID string, outcome domain.Outcome)
}

type Metrics interface {
	ObserveOutcome(policy domain.Policy, outcome domain.Outcome)
}
