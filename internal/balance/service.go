package balance

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

// ErrNotFound is returned when the balance request does not exist.
var ErrNotFound = errors.New("balance request not found")

// ErrNotPending is returned when the request was already reviewed.
var ErrNotPending = errors.New("balance request is not pending")

// ErrReasonRequired is returned when a rejection carries an empty reason.
var ErrReasonRequired = errors.New("rejection reason is required")

// Service reviews deposit/withdrawal requests. Approval moves the money and
// writes the ledger entry in the same transaction as the state change.
type Service interface {
	List(ctx context.Context, f repository.BalanceRequestFilter, page repository.PageParams) ([]*models.BalanceRequest, int, error)
	Approve(ctx context.Context, requestID, reviewerID uuid.UUID, notes *string) (*models.BalanceRequest, error)
	Reject(ctx context.Context, requestID, reviewerID uuid.UUID, reason string, notes *string) (*models.BalanceRequest, error)
}

// RequestRepo is the subset of the balance-request repository the service needs.
type RequestRepo interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.BalanceRequest, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.BalanceRequest, error)
	List(ctx context.Context, f repository.BalanceRequestFilter, page repository.PageParams) ([]*models.BalanceRequest, int, error)
	MarkReviewed(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string,
		reviewerID uuid.UUID, notes, reason *string, at time.Time) (bool, error)
}

// Treasury abstracts deposit/withdrawal settlement.
type Treasury interface {
	SettleDeposit(ctx context.Context, tx pgx.Tx, userID, requestID uuid.UUID, amount int64) error
	SettleWithdrawal(ctx context.Context, tx pgx.Tx, userID, requestID uuid.UUID, amount int64) error
}

// InsertDecisionTxFunc enqueues a decision notification within the given
// transaction.
type InsertDecisionTxFunc func(ctx context.Context, tx pgx.Tx, args notify.DecisionJobArgs) error

type service struct {
	repo           RequestRepo
	treasury       Treasury
	insertDecision InsertDecisionTxFunc
}

func NewService(repo RequestRepo, treasury Treasury, insertDecision InsertDecisionTxFunc) *service {
	return &service{repo: repo, treasury: treasury, insertDecision: insertDecision}
}

var _ Service = (*service)(nil)

func (s *service) List(ctx context.Context, f repository.BalanceRequestFilter, page repository.PageParams) ([]*models.BalanceRequest, int, error) {
	return s.repo.List(ctx, f, page)
}

func (s *service) Approve(ctx context.Context, requestID, reviewerID uuid.UUID, notes *string) (*models.BalanceRequest, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	req, err := s.repo.GetByIDForUpdate(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	ok, err := s.repo.MarkReviewed(ctx, tx, requestID, models.BalanceRequestApproved, reviewerID, notes, nil, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: status=%s", ErrNotPending, req.Status)
	}

	var event string
	switch req.Type {
	case models.BalanceRequestDeposit:
		event = notify.EventDepositApproved
		err = s.treasury.SettleDeposit(ctx, tx, req.UserID, req.ID, req.AmountCents)
	case models.BalanceRequestWithdrawal:
		event = notify.EventWithdrawalApproved
		err = s.treasury.SettleWithdrawal(ctx, tx, req.UserID, req.ID, req.AmountCents)
	default:
		err = fmt.Errorf("unknown balance request type %q", req.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := s.insertDecision(ctx, tx, notify.DecisionJobArgs{
		Event:     event,
		UserID:    req.UserID,
		RequestID: &req.ID,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, requestID)
}

func (s *service) Reject(ctx context.Context, requestID, reviewerID uuid.UUID, reason string, notes *string) (*models.BalanceRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	req, err := s.repo.GetByIDForUpdate(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	ok, err := s.repo.MarkReviewed(ctx, tx, requestID, models.BalanceRequestRejected, reviewerID, notes, &reason, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: status=%s", ErrNotPending, req.Status)
	}

	event := notify.EventDepositRejected
	if req.Type == models.BalanceRequestWithdrawal {
		event = notify.EventWithdrawalRejected
	}
	if err := s.insertDecision(ctx, tx, notify.DecisionJobArgs{
		Event:     event,
		UserID:    req.UserID,
		RequestID: &req.ID,
		Reason:    &reason,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, requestID)
}
