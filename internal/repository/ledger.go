package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/azizikri/qr-credits/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// LedgerRepository stores whole ledgers in Postgres. Every save replaces the
// user's row and redemption rows inside one transaction.
type LedgerRepository struct {
	store Store
}

func NewLedgerRepository(store Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

func (r *LedgerRepository) LoadLedger(ctx context.Context, userID string) (domain.Ledger, error) {
	row, err := r.store.GetLedger(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Ledger{}, domain.ErrNotFound
		}
		return domain.Ledger{}, fmt.Errorf("get ledger: %w", err)
	}

	redemptions, err := r.store.ListRedemptions(ctx, userID)
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("list redemptions: %w", err)
	}

	var redeemed []string
	counts := make(map[string]int)
	for _, item := range redemptions {
		switch item.Tracker {
		case TrackerStandard:
			redeemed = append(redeemed, item.Code)
		case TrackerPrivileged:
			counts[item.Code] = int(item.Count)
		}
	}

	return domain.LedgerFromParts(row.UserID, int(row.Balance), redeemed, counts, row.UpdatedAt.Time), nil
}

func (r *LedgerRepository) SaveLedger(ctx context.Context, ledger domain.Ledger) error {
	return r.store.ExecTx(ctx, func(q Querier) error {
		err := q.UpsertLedger(ctx, UpsertLedgerParams{
			UserID:    ledger.UserID,
			Balance:   int32(ledger.Balance),
			UpdatedAt: pgtype.Timestamptz{Time: ledger.UpdatedAt, Valid: true},
		})
		if err != nil {
			return fmt.Errorf("upsert ledger: %w", err)
		}

		if err := q.DeleteRedemptions(ctx, ledger.UserID); err != nil {
			return fmt.Errorf("delete redemptions: %w", err)
		}

		for _, code := range ledger.RedeemedCodes() {
			err := q.InsertRedemption(ctx, InsertRedemptionParams{
				UserID:  ledger.UserID,
				Code:    code,
				Tracker: TrackerStandard,
				Count:   1,
			})
			if err != nil {
				return fmt.Errorf("insert redemption: %w", err)
			}
		}

		codes := make([]string, 0, len(ledger.AdminCounts))
		for code := range ledger.AdminCounts {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			n := ledger.AdminCounts[code]
			if n <= 0 {
				continue
			}
			err := q.InsertRedemption(ctx, InsertRedemptionParams{
				UserID:  ledger.UserID,
				Code:    code,
				Tracker: TrackerPrivileged,
				Count:   int32(n),
			})
			if err != nil {
				return fmt.Errorf("insert redemption: %w", err)
			}
		}
		return nil
	})
}
