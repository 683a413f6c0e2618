package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boostly/backend/internal/models"
)

const ledgerColumns = `id, user_id, task_id, request_id, entry_type, amount_cents, balance_after, created_at`

type LedgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// CreateTx appends a ledger entry inside the given transaction. Entries are
// never updated or deleted.
func (r *LedgerRepo) CreateTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error {
	return tx.QueryRow(ctx, `
		INSERT INTO ledger_entries (id, user_id, task_id, request_id, entry_type, amount_cents, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, e.ID, e.UserID, e.TaskID, e.RequestID, e.EntryType, e.AmountCents, e.BalanceAfter).Scan(&e.CreatedAt)
}

// LedgerFilter narrows List. Zero fields are not applied.
type LedgerFilter struct {
	UserID    *uuid.UUID
	TaskID    *uuid.UUID
	EntryType string
	From      *time.Time
	To        *time.Time
}

func (f LedgerFilter) conditions() (string, []any) {
	where := []string{"TRUE"}
	args := []any{}
	if f.UserID != nil {
		args = append(args, *f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.TaskID != nil {
		args = append(args, *f.TaskID)
		where = append(where, fmt.Sprintf("task_id = $%d", len(args)))
	}
	if f.EntryType != "" {
		args = append(args, f.EntryType)
		where = append(where, fmt.Sprintf("entry_type = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	return strings.Join(where, " AND "), args
}

func (r *LedgerRepo) List(ctx context.Context, f LedgerFilter, page PageParams) ([]*models.LedgerEntry, int, error) {
	cond, args := f.conditions()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		ledgerColumns, cond, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.TaskID, &e.RequestID, &e.EntryType, &e.AmountCents,
			&e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, &e)
	}
	return list, total, rows.Err()
}

// EntryTypeTotal is one row of the summary report.
type EntryTypeTotal struct {
	EntryType  string `json:"entry_type"`
	Count      int    `json:"count"`
	TotalCents int64  `json:"total_cents"`
}

// SumByEntryType aggregates signed amounts per entry type over the window.
func (r *LedgerRepo) SumByEntryType(ctx context.Context, f LedgerFilter) ([]EntryTypeTotal, error) {
	cond, args := f.conditions()
	rows, err := r.pool.Query(ctx, `
		SELECT entry_type, COUNT(*), COALESCE(SUM(amount_cents), 0)
		FROM ledger_entries WHERE `+cond+`
		GROUP BY entry_type ORDER BY entry_type
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var totals []EntryTypeTotal
	for rows.Next() {
		var t EntryTypeTotal
		if err := rows.Scan(&t.EntryType, &t.Count, &t.TotalCents); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
