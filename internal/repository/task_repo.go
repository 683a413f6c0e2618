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

const taskColumns = `id, giver_id, title, description, service_type, platform, target_url, quantity, remaining_quantity,
	status, admin_status, budget_cents, per_unit_cents, admin_notes, rejection_reason, reviewed_by, reviewed_at,
	created_at, updated_at`

// taskSortColumns maps sortBy query values to ORDER BY columns. Anything else
// falls back to created_at.
var taskSortColumns = map[string]string{
	"created_at":   "created_at",
	"budget_cents": "budget_cents",
	"quantity":     "quantity",
	"title":        "title",
}

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.GiverID, &t.Title, &t.Description, &t.ServiceType, &t.Platform, &t.TargetURL,
		&t.Quantity, &t.RemainingQuantity, &t.Status, &t.AdminStatus, &t.BudgetCents, &t.PerUnitCents,
		&t.AdminNotes, &t.RejectionReason, &t.ReviewedBy, &t.ReviewedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, giver_id, title, description, service_type, platform, target_url, quantity,
			remaining_quantity, status, admin_status, budget_cents, per_unit_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`, t.ID, t.GiverID, t.Title, t.Description, t.ServiceType, t.Platform, t.TargetURL, t.Quantity,
		t.RemainingQuantity, t.Status, t.AdminStatus, t.BudgetCents, t.PerUnitCents).
		Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

// GetByIDForUpdate locks the task row. Call within a transaction.
func (r *TaskRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error) {
	return scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
}

// TaskFilter narrows List. Empty fields are not applied.
type TaskFilter struct {
	AdminStatus string
	Status      string
	Platform    string
	ServiceType string
	Search      string
	GiverID     *uuid.UUID
	SortBy      string
	SortOrder   string
}

// List returns one page of tasks matching the filter plus the total count.
// Order is server-determined: sortBy/sortOrder when given, otherwise
// descending creation time.
func (r *TaskRepo) List(ctx context.Context, f TaskFilter, page PageParams) ([]*models.Task, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.AdminStatus != "" {
		add("admin_status = $%d", f.AdminStatus)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Platform != "" {
		add("platform = $%d", f.Platform)
	}
	if f.ServiceType != "" {
		add("service_type = $%d", f.ServiceType)
	}
	if f.GiverID != nil {
		add("giver_id = $%d", *f.GiverID)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := taskSortColumns[f.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		dir = "ASC"
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		taskColumns, cond, sortCol, dir, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.GiverID, &t.Title, &t.Description, &t.ServiceType, &t.Platform, &t.TargetURL,
			&t.Quantity, &t.RemainingQuantity, &t.Status, &t.AdminStatus, &t.BudgetCents, &t.PerUnitCents,
			&t.AdminNotes, &t.RejectionReason, &t.ReviewedBy, &t.ReviewedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, &t)
	}
	return list, total, rows.Err()
}

// MarkReviewed applies the one-way pending -> approved|rejected transition.
// Returns false when the task was not pending (already reviewed, or missing).
func (r *TaskRepo) MarkReviewed(ctx context.Context, tx pgx.Tx, id uuid.UUID, adminStatus, newStatus string,
	reviewerID uuid.UUID, notes, reason *string, at time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE tasks SET admin_status = $2, status = $3, admin_notes = $4, rejection_reason = $5,
			reviewed_by = $6, reviewed_at = $7, updated_at = now()
		WHERE id = $1 AND admin_status = 'pending'
	`, id, adminStatus, newStatus, notes, reason, reviewerID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DecrementRemaining consumes one unit and flips the task to completed (or
// back to active) depending on what is left after this submission.
func (r *TaskRepo) DecrementRemaining(ctx context.Context, tx pgx.Tx, id uuid.UUID) (remaining int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE tasks SET
			remaining_quantity = remaining_quantity - 1,
			status = CASE WHEN remaining_quantity - 1 <= 0 THEN 'completed' ELSE 'active' END,
			updated_at = now()
		WHERE id = $1 AND remaining_quantity > 0
		RETURNING remaining_quantity
	`, id).Scan(&remaining)
	return remaining, err
}

// SetStatus updates the lifecycle status only.
func (r *TaskRepo) SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `UPDATE tasks SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return err
}
