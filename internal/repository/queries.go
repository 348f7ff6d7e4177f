package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	TrackerStandard   = "standard"
	TrackerPrivileged = "privileged"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

type LedgerRow struct {
	UserID    string
	Balance   int32
	UpdatedAt pgtype.Timestamptz
}

type RedemptionRow struct {
	Code    string
	Tracker string
	Count   int32
}

const getLedger = `SELECT user_id, balance, updated_at FROM ledgers WHERE user_id = $1`

func (q *Queries) GetLedger(ctx context.Context, userID string) (LedgerRow, error) {
	var row LedgerRow
	err := q.db.QueryRow(ctx, getLedger, userID).Scan(&row.UserID, &row.Balance, &row.UpdatedAt)
	return row, err
}

const listRedemptions = `SELECT code, tracker, count FROM ledger_redemptions WHERE user_id = $1 ORDER BY tracker, code`

func (q *Queries) ListRedemptions(ctx context.Context, userID string) ([]RedemptionRow, error) {
	rows, err := q.db.Query(ctx, listRedemptions, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RedemptionRow
	for rows.Next() {
		var r RedemptionRow
		if err := rows.Scan(&r.Code, &r.Tracker, &r.Count); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

type UpsertLedgerParams struct {
	UserID    string
	Balance   int32
	UpdatedAt pgtype.Timestamptz
}

const upsertLedger = `
INSERT INTO ledgers (user_id, balance, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = EXCLUDED.updated_at`

func (q *Queries) UpsertLedger(ctx context.Context, arg UpsertLedgerParams) error {
	_, err := q.db.Exec(ctx, upsertLedger, arg.UserID, arg.Balance, arg.UpdatedAt)
	return err
}

const deleteRedemptions = `DELETE FROM ledger_redemptions WHERE user_id = $1`

func (q *Queries) DeleteRedemptions(ctx context.Context, userID string) error {
	_, err := q.db.Exec(ctx, deleteRedemptions, userID)
	return err
}

type InsertRedemptionParams struct {
	UserID  string
	Code    string
	Tracker string
	Count   int32
}

const insertRedemption = `INSERT INTO ledger_redemptions (user_id, code, tracker, count) VALUES ($1, $2, $3, $4)`

func (q *Queries) InsertRedemption(ctx context.Context, arg InsertRedemptionParams) error {
	_, err := q.db.Exec(ctx, insertRedemption, arg.UserID, arg.Code, arg.Tracker, arg.Count)
	return err
}
