package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	ExecTx(ctx context.Context, fn func(Querier) error) error
	GetLedger(ctx context.Context, userID string) (LedgerRow, error)
	ListRedemptions(ctx context.Context, userID string) ([]RedemptionRow, error)
}

type Querier interface {
	UpsertLedger(ctx context.Context, arg UpsertLedgerParams) error
	DeleteRedemptions(ctx context.Context, userID string) error
	InsertRedemption(ctx context.Context, arg InsertRedemptionParams) error
}

type store struct {
	pool    *pgxpool.Pool
	queries *Queries
}

func New(pool *pgxpool.Pool) Store {
	return &store{
		pool:    pool,
		queries: NewQueries(pool),
	}
}

func (s *store) ExecTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	q := s.queries.WithTx(tx)
	if err := fn(q); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %v, rollback err: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *store) GetLedger(ctx context.Context, userID string) (LedgerRow, error) {
	return s.queries.GetLedger(ctx, userID)
}

func (s *store) ListRedemptions(ctx context.Context, userID string) ([]RedemptionRow, error) {
	return s.queries.ListRedemptions(ctx, userID)
}
