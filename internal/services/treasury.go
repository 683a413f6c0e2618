package services

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/boostly/backend/internal/models"
)

// ErrInsufficientFunds is returned when an account balance cannot cover the
// requested debit.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Treasury performs every balance movement on the platform: task budget
// escrow, submission payouts, deposit/withdrawal settlement, and manual
// adjustments. Each movement writes matching ledger entries in the caller's
// transaction.
type Treasury struct {
	Users  TreasuryUserRepo
	Ledger TreasuryLedgerRepo
}

// TreasuryUserRepo is the minimal user repository interface for money moves.
type TreasuryUserRepo interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
	AddCents(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (newBalance int64, err error)
	DeductCents(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (newBalance int64, err error)
	MoveToHeld(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (newBalance int64, err error)
	ReleaseHeld(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) error
}

// TreasuryLedgerRepo is the minimal ledger interface for money moves.
type TreasuryLedgerRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error
}

func NewTreasury(users TreasuryUserRepo, ledger TreasuryLedgerRepo) *Treasury {
	return &Treasury{Users: users, Ledger: ledger}
}

// LockBudget moves the task budget from the giver's spendable balance into
// held funds and records an escrow_lock entry. Call within a transaction.
func (t *Treasury) LockBudget(ctx context.Context, tx pgx.Tx, giverID, taskID uuid.UUID, amount int64) error {
	giver, err := t.Users.GetByIDForUpdate(ctx, tx, giverID)
	if err != nil {
		return err
	}
	if giver.BalanceCents < amount {
		return ErrInsufficientFunds
	}
	newBalance, err := t.Users.MoveToHeld(ctx, tx, giverID, amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInsufficientFunds
		}
		return err
	}
	return t.Ledger.CreateTx(ctx, tx, &models.LedgerEntry{
		ID: uuid.New(), UserID: giverID, TaskID: &taskID,
		EntryType: models.LedgerEntryEscrowLock, AmountCents: -amount, BalanceAfter: int64Ptr(newBalance),
	})
}

// PayoutSubmission settles one approved submission: the per-unit amount
// leaves the giver's held funds, the doer earns the amount minus the platform
// fee, and the fee accrues to the platform account. Locks all affected rows
// in deterministic order to avoid deadlock.
func (t *Treasury) PayoutSubmission(ctx context.Context, tx pgx.Tx, taskID, giverID, doerID uuid.UUID, amount int64, feePercent int) error {
	fee := amount * int64(feePercent) / 100
	net := amount - fee

	ids := []uuid.UUID{giverID, doerID, models.PlatformAccountID}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	for _, id := range ids {
		if _, err := t.Users.GetByIDForUpdate(ctx, tx, id); err != nil {
			return err
		}
	}

	// Held funds leave the giver's escrow.
	if err := t.Users.ReleaseHeld(ctx, tx, giverID, amount); err != nil {
		return err
	}
	if err := t.Ledger.CreateTx(ctx, tx, &models.LedgerEntry{
		ID: uuid.New(), UserID: giverID, TaskID: &taskID,
		EntryType: models.LedgerEntryEscrowRelease, AmountCents: -amount,
	}); err != nil {
		return err
	}

	// Doer earns the net payout.
	newDoer, err := t.Users.AddCents(ctx, tx, doerID, net)
	if err != nil {
		return err
	}
	if err := t.Ledger.CreateTx(ctx, tx, &models.LedgerEntry{
		ID: uuid.New(), UserID: doerID, TaskID: &taskID,
		EntryType: models.LedgerEntryTaskPayout, AmountCents: net, BalanceAfter: int64Ptr(newDoer),
	}); err != nil {
		return err
	}

	// Platform keeps the fee.
	newPlatform, err := t.Users.AddCents(ctx, tx, models.PlatformAccountID, fee)
	if err != nil {
		return err
	}
	return t.Ledger.CreateTx(ctx, tx, &models.LedgerEntry{
		ID: uuid.New(), UserID: models.PlatformAccountID, TaskID: &taskID,
		EntryType: models.LedgerEntryPlatformFee, AmountCents: fee, BalanceAfter: int64Ptr(newPlatform),
	})
}

// RefundRemainder returns unspent held budget to the giver's spendable
// balance, e.g. when a task completes under budget.
func (t *Treasury) RefundRemainder(ctx context.Context, tx pgx.Tx, giverID, taskID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return nil
	}
	if _, err := t.Users.GetByIDForUpdate(ctx, tx, giverID); err != nil {
		return err
	}
	if err := t.Users.ReleaseHeld(ctx, tx, giverID, amount); err != nil {
		return err
	}
	newBalance, err := t.Users.AddCents(ctx, tx, giverID, amount)
	if err != nil {
		return err
	}
	return t.Ledger.CreateTx(ctx, tx, &models.LedgerEntry{
		ID: uuid.New(), UserID: giverID, TaskID: &taskID,
		EntryType: models.LedgerEntryRefund, AmountCents: amount, BalanceAfter: int64Ptr(newBalance),
	})
}

// SettleDeposit credits an approved deposit request.
func (t *Treasury) SettleDeposit(ctx context.Context, tx pgx.Tx, userID, requestID uuid.UUID, amount int64) error {
	if _, err := t.Users.GetByIDForUpdate(ctx, tx, userID); err != nil {
		return err
	}
	newBalance, err := t.Users.AddCents(ctx, tx, userID, amount)
	if err != nil {
		return err
	}
	return t.Ledger.CreateTx(ctx, tx, &models.LedgerEntry{
		ID: uuid.New(), UserID: userID, RequestID: &requestID,
		EntryType: models.LedgerEntryDeposit, AmountCents: amount, BalanceAfter: int64Ptr(newBalance),
	})
}

// SettleWithdrawal debits an approved withdrawal request.
func (t *Treasury) SettleWithdrawal(ctx context.Context, tx pgx.Tx, userID, requestID uuid.UUID, amount int64) error {
	u, err := t.Users.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		return err
	}
	if u.BalanceCents < amount {
		return ErrInsufficientFunds
	}
	newBalance, err := t.Users.DeductCents(ctx, tx, userID, amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInsufficientFunds
		}
		return err
	}
	return t.Ledger.CreateTx(ctx, tx, &models.LedgerEntry{
		ID: uuid.New(), UserID: userID, RequestID: &requestID,
		EntryType: models.LedgerEntryWithdrawal, AmountCents: -amount, BalanceAfter: int64Ptr(newBalance),
	})
}

// Adjust applies a signed manual balance adjustment with an adjustment entry.
func (t *Treasury) Adjust(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) error {
	u, err := t.Users.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		return err
	}
	var newBalance int64
	if amount >= 0 {
		newBalance, err = t.Users.AddCents(ctx, tx, userID, amount)
	} else {
		if u.BalanceCents < -amount {
			return ErrInsufficientFunds
		}
		newBalance, err = t.Users.DeductCents(ctx, tx, userID, -amount)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInsufficientFunds
		}
		return err
	}
	return t.Ledger.CreateTx(ctx, tx, &models.LedgerEntry{
		ID: uuid.New(), UserID: userID,
		EntryType: models.LedgerEntryAdjustment, AmountCents: amount, BalanceAfter: int64Ptr(newBalance),
	})
}

func int64Ptr(n int64) *int64 { return &n }
