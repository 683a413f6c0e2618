package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boostly/backend/internal/models"
)

const submissionColumns = `id, task_id, doer_id, status, proof_text, proof_urls, payout_cents,
	rejection_reason, reviewed_by, reviewed_at, created_at`

type SubmissionRepo struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepo(pool *pgxpool.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool}
}

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var s models.Submission
	err := row.Scan(&s.ID, &s.TaskID, &s.DoerID, &s.Status, &s.ProofText, &s.ProofURLs, &s.PayoutCents,
		&s.RejectionReason, &s.ReviewedBy, &s.ReviewedAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubmissionRepo) Create(ctx context.Context, s *models.Submission) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO submissions (id, task_id, doer_id, status, proof_text, proof_urls, payout_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, s.ID, s.TaskID, s.DoerID, s.Status, s.ProofText, s.ProofURLs, s.PayoutCents).Scan(&s.CreatedAt)
}

func (r *SubmissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	return scanSubmission(r.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
}

func (r *SubmissionRepo) ListByTaskID(ctx context.Context, taskID uuid.UUID) ([]*models.Submission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+submissionColumns+` FROM submissions WHERE task_id = $1 ORDER BY created_at DESC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubmissions(rows)
}

// GetPendingForUpdate locks the oldest submitted-state submission of the task.
// Returns pgx.ErrNoRows when none is pending.
func (r *SubmissionRepo) GetPendingForUpdate(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (*models.Submission, error) {
	return scanSubmission(tx.QueryRow(ctx, `
		SELECT `+submissionColumns+` FROM submissions
		WHERE task_id = $1 AND status = 'submitted'
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE
	`, taskID))
}

// ListPendingByTaskIDs returns the oldest pending submission per task, used
// when embedding proofs into a status=submitted task listing.
func (r *SubmissionRepo) ListPendingByTaskIDs(ctx context.Context, taskIDs []uuid.UUID) (map[uuid.UUID]*models.Submission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (task_id) `+submissionColumns+` FROM submissions
		WHERE task_id = ANY($1) AND status = 'submitted'
		ORDER BY task_id, created_at ASC
	`, taskIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list, err := collectSubmissions(rows)
	if err != nil {
		return nil, err
	}
	byTask := make(map[uuid.UUID]*models.Submission, len(list))
	for _, s := range list {
		byTask[s.TaskID] = s
	}
	return byTask, nil
}

// MarkReviewed applies the one-way submitted -> approved|rejected transition.
// Returns false when the submission was not in the submitted state.
func (r *SubmissionRepo) MarkReviewed(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string,
	reviewerID uuid.UUID, reason *string, at time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE submissions SET status = $2, rejection_reason = $3, reviewed_by = $4, reviewed_at = $5
		WHERE id = $1 AND status = 'submitted'
	`, id, status, reason, reviewerID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CountPendingForTask counts remaining submitted-state submissions, used to
// decide whether the task stays in the submitted lifecycle state.
func (r *SubmissionRepo) CountPendingForTask(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (int, error) {
	var n int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM submissions WHERE task_id = $1 AND status = 'submitted'
	`, taskID).Scan(&n)
	return n, err
}

func collectSubmissions(rows pgx.Rows) ([]*models.Submission, error) {
	var list []*models.Submission
	for rows.Next() {
		var s models.Submission
		if err := rows.Scan(&s.ID, &s.TaskID, &s.DoerID, &s.Status, &s.ProofText, &s.ProofURLs, &s.PayoutCents,
			&s.RejectionReason, &s.ReviewedBy, &s.ReviewedAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
