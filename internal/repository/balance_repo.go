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

const balanceRequestColumns = `id, user_id, type, amount_cents, method, reference, status,
	admin_notes, rejection_reason, reviewed_by, reviewed_at, created_at`

type BalanceRequestRepo struct {
	pool *pgxpool.Pool
}

func NewBalanceRequestRepo(pool *pgxpool.Pool) *BalanceRequestRepo {
	return &BalanceRequestRepo{pool: pool}
}

func (r *BalanceRequestRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func scanBalanceRequest(row pgx.Row) (*models.BalanceRequest, error) {
	var b models.BalanceRequest
	err := row.Scan(&b.ID, &b.UserID, &b.Type, &b.AmountCents, &b.Method, &b.Reference, &b.Status,
		&b.AdminNotes, &b.RejectionReason, &b.ReviewedBy, &b.ReviewedAt, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BalanceRequestRepo) Create(ctx context.Context, b *models.BalanceRequest) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO balance_requests (id, user_id, type, amount_cents, method, reference, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, b.ID, b.UserID, b.Type, b.AmountCents, b.Method, b.Reference, b.Status).Scan(&b.CreatedAt)
}

func (r *BalanceRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.BalanceRequest, error) {
	return scanBalanceRequest(r.pool.QueryRow(ctx,
		`SELECT `+balanceRequestColumns+` FROM balance_requests WHERE id = $1`, id))
}

// GetByIDForUpdate locks the request row. Call within a transaction.
func (r *BalanceRequestRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.BalanceRequest, error) {
	return scanBalanceRequest(tx.QueryRow(ctx,
		`SELECT `+balanceRequestColumns+` FROM balance_requests WHERE id = $1 FOR UPDATE`, id))
}

// BalanceRequestFilter narrows List. Empty fields are not applied.
type BalanceRequestFilter struct {
	Status string
	Type   string
	UserID *uuid.UUID
}

func (r *BalanceRequestRepo) List(ctx context.Context, f BalanceRequestFilter, page PageParams) ([]*models.BalanceRequest, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.UserID != nil {
		args = append(args, *f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM balance_requests WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM balance_requests WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		balanceRequestColumns, cond, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []*models.BalanceRequest
	for rows.Next() {
		var b models.BalanceRequest
		if err := rows.Scan(&b.ID, &b.UserID, &b.Type, &b.AmountCents, &b.Method, &b.Reference, &b.Status,
			&b.AdminNotes, &b.RejectionReason, &b.ReviewedBy, &b.ReviewedAt, &b.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, &b)
	}
	return list, total, rows.Err()
}

// MarkReviewed applies the one-way pending -> approved|rejected transition.
// Returns false when the request was not pending.
func (r *BalanceRequestRepo) MarkReviewed(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string,
	reviewerID uuid.UUID, notes, reason *string, at time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE balance_requests SET status = $2, admin_notes = $3, rejection_reason = $4, reviewed_by = $5, reviewed_at = $6
		WHERE id = $1 AND status = 'pending'
	`, id, status, notes, reason, reviewerID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
