package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/boostly/backend/internal/models"
	"github.com/boostly/backend/internal/notify"
	"github.com/boostly/backend/internal/repository"
)

// ErrNotFound is returned when the task does not exist.
var ErrNotFound = errors.New("task not found")

// ErrNotReviewable is returned when the task is in neither reviewable
// pre-state: admin review already settled and no submission pending.
var ErrNotReviewable = errors.New("task is not awaiting review")

// ErrReasonRequired is returned when a rejection carries an empty reason.
var ErrReasonRequired = errors.New("rejection reason is required")

// TaskDetail is a task with its full submission history.
type TaskDetail struct {
	Task        *models.Task         `json:"task"`
	Submissions []*models.Submission `json:"submissions"`
}

// Service is the review queue plus the approve/reject decision executor.
// The backend conflates task review and submission review under one endpoint
// family: a decision on a pending-admin-review task settles the task itself,
// while a decision on a task in the submitted lifecycle state settles its
// oldest pending submission.
type Service interface {
	ListTasks(ctx context.Context, f repository.TaskFilter, page repository.PageParams) ([]*models.Task, int, error)
	GetTask(ctx context.Context, id uuid.UUID) (*TaskDetail, error)
	Approve(ctx context.Context, taskID, reviewerID uuid.UUID, notes *string) (*TaskDetail, error)
	Reject(ctx context.Context, taskID, reviewerID uuid.UUID, reason string, notes *string) (*TaskDetail, error)
}

// TaskRepo is the subset of the task repository the service needs.
type TaskRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, f repository.TaskFilter, page repository.PageParams) ([]*models.Task, int, error)
	MarkReviewed(ctx context.Context, tx pgx.Tx, id uuid.UUID, adminStatus, newStatus string,
		reviewerID uuid.UUID, notes, reason *string, at time.Time) (bool, error)
	DecrementRemaining(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int, error)
	SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
}

// SubmissionRepo is the subset of the submission repository the service needs.
type SubmissionRepo interface {
	ListByTaskID(ctx context.Context, taskID uuid.UUID) ([]*models.Submission, error)
	ListPendingByTaskIDs(ctx context.Context, taskIDs []uuid.UUID) (map[uuid.UUID]*models.Submission, error)
	GetPendingForUpdate(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (*models.Submission, error)
	MarkReviewed(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string,
		reviewerID uuid.UUID, reason *string, at time.Time) (bool, error)
	CountPendingForTask(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (int, error)
}

// Treasury abstracts the money moves a decision can trigger.
type Treasury interface {
	LockBudget(ctx context.Context, tx pgx.Tx, giverID, taskID uuid.UUID, amount int64) error
	PayoutSubmission(ctx context.Context, tx pgx.Tx, taskID, giverID, doerID uuid.UUID, amount int64, feePercent int) error
	RefundRemainder(ctx context.Context, tx pgx.Tx, giverID, taskID uuid.UUID, amount int64) error
}

// SettingsSource provides the platform fee percentage.
type SettingsSource interface {
	Get(ctx context.Context) (models.Settings, error)
}

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InsertDecisionTxFunc enqueues a decision notification within the given
// transaction. Provided by main using river.Client.InsertTx.
type InsertDecisionTxFunc func(ctx context.Context, tx pgx.Tx, args notify.DecisionJobArgs) error

type service struct {
	pool           TxBeginner
	tasks          TaskRepo
	submissions    SubmissionRepo
	treasury       Treasury
	settings       SettingsSource
	insertDecision InsertDecisionTxFunc
}

// NewService creates the review service. insertDecision is typically a
// closure over river.Client.InsertTx.
func NewService(pool TxBeginner, tasks TaskRepo, submissions SubmissionRepo, treasury Treasury,
	settings SettingsSource, insertDecision InsertDecisionTxFunc) *service {
	return &service{
		pool:           pool,
		tasks:          tasks,
		submissions:    submissions,
		treasury:       treasury,
		settings:       settings,
		insertDecision: insertDecision,
	}
}

var _ Service = (*service)(nil)

// ListTasks returns one page of tasks. For status=submitted listings the
// oldest pending submission is embedded on each task so the reviewer sees
// the proof being decided.
func (s *service) ListTasks(ctx context.Context, f repository.TaskFilter, page repository.PageParams) ([]*models.Task, int, error) {
	tasks, total, err := s.tasks.List(ctx, f, page)
	if err != nil {
		return nil, 0, err
	}
	if f.Status == models.TaskStatusSubmitted && len(tasks) > 0 {
		ids := make([]uuid.UUID, len(tasks))
		for i, t := range tasks {
			ids[i] = t.ID
		}
		pending, err := s.submissions.ListPendingByTaskIDs(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for _, t := range tasks {
			t.PendingSubmission = pending[t.ID]
		}
	}
	return tasks, total, nil
}

func (s *service) GetTask(ctx context.Context, id uuid.UUID) (*TaskDetail, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	subs, err := s.submissions.ListByTaskID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TaskDetail{Task: task, Submissions: subs}, nil
}

// Approve settles exactly one approval: either the task's admin review or
// its oldest pending submission, depending on pre-state. The state
// transition, money movement, and notification job commit atomically.
func (s *service) Approve(ctx context.Context, taskID, reviewerID uuid.UUID, notes *string) (*TaskDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	task, err := s.tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	switch {
	case task.AdminStatus == models.AdminStatusPending:
		if err := s.approveTask(ctx, tx, task, reviewerID, notes); err != nil {
			return nil, err
		}
	case task.Status == models.TaskStatusSubmitted:
		if err := s.approveSubmission(ctx, tx, task, reviewerID); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: admin_status=%s status=%s", ErrNotReviewable, task.AdminStatus, task.Status)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.GetTask(ctx, taskID)
}

func (s *service) approveTask(ctx context.Context, tx pgx.Tx, task *models.Task, reviewerID uuid.UUID, notes *string) error {
	ok, err := s.tasks.MarkReviewed(ctx, tx, task.ID, models.AdminStatusApproved, models.TaskStatusActive,
		reviewerID, notes, nil, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: admin_status=%s", ErrNotReviewable, task.AdminStatus)
	}
	if err := s.treasury.LockBudget(ctx, tx, task.GiverID, task.ID, task.BudgetCents); err != nil {
		return err
	}
	return s.insertDecision(ctx, tx, notify.DecisionJobArgs{
		Event:  notify.EventTaskApproved,
		UserID: task.GiverID,
		TaskID: &task.ID,
	})
}

func (s *service) approveSubmission(ctx context.Context, tx pgx.Tx, task *models.Task, reviewerID uuid.UUID) error {
	sub, err := s.submissions.GetPendingForUpdate(ctx, tx, task.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: no pending submission", ErrNotReviewable)
		}
		return err
	}
	ok, err := s.submissions.MarkReviewed(ctx, tx, sub.ID, models.SubmissionStatusApproved, reviewerID, nil, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: submission already reviewed", ErrNotReviewable)
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	amount := sub.PayoutCents
	if amount <= 0 {
		amount = task.PerUnitCents
	}
	if err := s.treasury.PayoutSubmission(ctx, tx, task.ID, task.GiverID, sub.DoerID, amount, settings.PlatformFeePercent); err != nil {
		return err
	}

	remaining, err := s.tasks.DecrementRemaining(ctx, tx, task.ID)
	if err != nil {
		return err
	}
	if remaining <= 0 {
		// Task done: leftover budget beyond quantity*per_unit goes back to the giver.
		leftover := task.BudgetCents - int64(task.Quantity)*task.PerUnitCents
		if err := s.treasury.RefundRemainder(ctx, tx, task.GiverID, task.ID, leftover); err != nil {
			return err
		}
	} else {
		pending, err := s.submissions.CountPendingForTask(ctx, tx, task.ID)
		if err != nil {
			return err
		}
		if pending > 0 {
			if err := s.tasks.SetStatus(ctx, tx, task.ID, models.TaskStatusSubmitted); err != nil {
				return err
			}
		}
	}

	return s.insertDecision(ctx, tx, notify.DecisionJobArgs{
		Event:  notify.EventSubmissionApproved,
		UserID: sub.DoerID,
		TaskID: &task.ID,
	})
}

// Reject settles exactly one rejection. The reason is mandatory; nothing is
// written when it is empty or whitespace.
func (s *service) Reject(ctx context.Context, taskID, reviewerID uuid.UUID, reason string, notes *string) (*TaskDetail, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	task, err := s.tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	switch {
	case task.AdminStatus == models.AdminStatusPending:
		ok, err := s.tasks.MarkReviewed(ctx, tx, task.ID, models.AdminStatusRejected, task.Status,
			reviewerID, notes, &reason, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: admin_status=%s", ErrNotReviewable, task.AdminStatus)
		}
		if err := s.insertDecision(ctx, tx, notify.DecisionJobArgs{
			Event:  notify.EventTaskRejected,
			UserID: task.GiverID,
			TaskID: &task.ID,
			Reason: &reason,
		}); err != nil {
			return nil, err
		}
	case task.Status == models.TaskStatusSubmitted:
		if err := s.rejectSubmission(ctx, tx, task, reviewerID, reason); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: admin_status=%s status=%s", ErrNotReviewable, task.AdminStatus, task.Status)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.GetTask(ctx, taskID)
}

func (s *service) rejectSubmission(ctx context.Context, tx pgx.Tx, task *models.Task, reviewerID uuid.UUID, reason string) error {
	sub, err := s.submissions.GetPendingForUpdate(ctx, tx, task.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: no pending submission", ErrNotReviewable)
		}
		return err
	}
	ok, err := s.submissions.MarkReviewed(ctx, tx, sub.ID, models.SubmissionStatusRejected, reviewerID, &reason, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: submission already reviewed", ErrNotReviewable)
	}

	// No money moves on a rejected submission; the escrow stays held for the
	// remaining quantity. The task returns to active once nothing is pending.
	pending, err := s.submissions.CountPendingForTask(ctx, tx, task.ID)
	if err != nil {
		return err
	}
	if pending == 0 {
		if err := s.tasks.SetStatus(ctx, tx, task.ID, models.TaskStatusActive); err != nil {
			return err
		}
	}

	return s.insertDecision(ctx, tx, notify.DecisionJobArgs{
		Event:  notify.EventSubmissionRejected,
		UserID: sub.DoerID,
		TaskID: &task.ID,
		Reason: &reason,
	})
}
