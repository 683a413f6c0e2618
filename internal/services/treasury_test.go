package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/boostly/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory mocks for TreasuryUserRepo and TreasuryLedgerRepo.
// These let us test the real Treasury logic without a database.
// ---------------------------------------------------------------------------

type mockUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMockUsers(us ...*models.User) *mockUsers {
	m := &mockUsers{users: make(map[uuid.UUID]*models.User)}
	for _, u := range us {
		cp := *u
		m.users[u.ID] = &cp
	}
	return m
}

func (m *mockUsers) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s not found", id)
	}
	cp := *u
	return &cp, nil
}

func (m *mockUsers) AddCents(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, fmt.Errorf("user %s not found", id)
	}
	u.BalanceCents += amount
	return u.BalanceCents, nil
}

func (m *mockUsers) DeductCents(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, fmt.Errorf("user %s not found", id)
	}
	if u.BalanceCents < amount {
		return 0, pgx.ErrNoRows
	}
	u.BalanceCents -= amount
	return u.BalanceCents, nil
}

func (m *mockUsers) MoveToHeld(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, fmt.Errorf("user %s not found", id)
	}
	if u.BalanceCents < amount {
		return 0, pgx.ErrNoRows
	}
	u.BalanceCents -= amount
	u.HeldCents += amount
	return u.BalanceCents, nil
}

func (m *mockUsers) ReleaseHeld(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %s not found", id)
	}
	if u.HeldCents < amount {
		return pgx.ErrNoRows
	}
	u.HeldCents -= amount
	return nil
}

func (m *mockUsers) balance(id uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].BalanceCents
}

func (m *mockUsers) held(id uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].HeldCents
}

// ---

type mockLedger struct {
	mu      sync.Mutex
	entries []*models.LedgerEntry
}

func (m *mockLedger) CreateTx(_ context.Context, _ pgx.Tx, e *models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockLedger) byType(entryType string) []*models.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.LedgerEntry
	for _, e := range m.entries {
		if e.EntryType == entryType {
			out = append(out, e)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func user(id uuid.UUID, balance, held int64) *models.User {
	return &models.User{ID: id, BalanceCents: balance, HeldCents: held}
}

// ---------------------------------------------------------------------------
// 1. TestLockBudget
// ---------------------------------------------------------------------------

func TestLockBudget(t *testing.T) {
	giver := uuid.New()
	task := uuid.New()

	users := newMockUsers(user(giver, 1000, 0))
	ledger := &mockLedger{}
	tr := NewTreasury(users, ledger)

	ctx := context.Background()
	if err := tr.LockBudget(ctx, nil, giver, task, 300); err != nil {
		t.Fatalf("LockBudget: %v", err)
	}

	if got := users.balance(giver); got != 700 {
		t.Errorf("balance after lock: got %d, want 700", got)
	}
	if got := users.held(giver); got != 300 {
		t.Errorf("held after lock: got %d, want 300", got)
	}

	locks := ledger.byType(models.LedgerEntryEscrowLock)
	if len(locks) != 1 {
		t.Fatalf("escrow_lock entries: got %d, want 1", len(locks))
	}
	if locks[0].AmountCents != -300 {
		t.Errorf("lock amount: got %d, want -300", locks[0].AmountCents)
	}
	if locks[0].TaskID == nil || *locks[0].TaskID != task {
		t.Error("lock entry should reference the task")
	}

	// Insufficient-funds path leaves no extra entries.
	if err := tr.LockBudget(ctx, nil, giver, uuid.New(), 9999); err != ErrInsufficientFunds {
		t.Errorf("expected ErrInsufficientFunds, got: %v", err)
	}
	if n := len(ledger.byType(models.LedgerEntryEscrowLock)); n != 1 {
		t.Errorf("escrow_lock entries after failed lock: got %d, want 1", n)
	}
}

// ---------------------------------------------------------------------------
// 2. TestPayoutSubmission
// ---------------------------------------------------------------------------

func TestPayoutSubmission(t *testing.T) {
	giver := uuid.New()
	doer := uuid.New()
	platform := models.PlatformAccountID
	task := uuid.New()

	const perUnit = 200
	const feePercent = 10
	const expectedFee = 20
	const expectedNet = 180

	users := newMockUsers(
		user(giver, 0, 1000),
		user(doer, 50, 0),
		user(platform, 0, 0),
	)
	ledger := &mockLedger{}
	tr := NewTreasury(users, ledger)

	ctx := context.Background()
	if err := tr.PayoutSubmission(ctx, nil, task, giver, doer, perUnit, feePercent); err != nil {
		t.Fatalf("PayoutSubmission: %v", err)
	}

	// Held funds leave the giver's escrow.
	if got := users.held(giver); got != 800 {
		t.Errorf("giver held: got %d, want 800", got)
	}
	if got := users.balance(giver); got != 0 {
		t.Errorf("giver balance should be unchanged: got %d, want 0", got)
	}

	// Doer earns the net payout.
	if got := users.balance(doer); got != 50+expectedNet {
		t.Errorf("doer balance: got %d, want %d", got, 50+expectedNet)
	}
	payouts := ledger.byType(models.LedgerEntryTaskPayout)
	if len(payouts) != 1 || payouts[0].AmountCents != expectedNet {
		t.Fatalf("task_payout entry: got %+v, want one entry of %d", payouts, expectedNet)
	}
	if payouts[0].UserID != doer {
		t.Error("task_payout entry should belong to the doer")
	}

	// Platform keeps the fee.
	if got := users.balance(platform); got != expectedFee {
		t.Errorf("platform balance: got %d, want %d", got, expectedFee)
	}
	fees := ledger.byType(models.LedgerEntryPlatformFee)
	if len(fees) != 1 || fees[0].AmountCents != expectedFee {
		t.Fatalf("platform_fee entry: got %+v, want one entry of %d", fees, expectedFee)
	}
	if fees[0].UserID != platform {
		t.Errorf("platform_fee entry should go to PlatformAccountID (%s), got %s", platform, fees[0].UserID)
	}

	// Conservation: net + fee == released amount.
	releases := ledger.byType(models.LedgerEntryEscrowRelease)
	if len(releases) != 1 || releases[0].AmountCents != -perUnit {
		t.Fatalf("escrow_release entry: got %+v, want one entry of %d", releases, -perUnit)
	}
	if expectedNet+expectedFee != perUnit {
		t.Errorf("payout split must conserve the released amount")
	}
}

// ---------------------------------------------------------------------------
// 3. TestRefundRemainder
// ---------------------------------------------------------------------------

func TestRefundRemainder(t *testing.T) {
	giver := uuid.New()
	task := uuid.New()

	users := newMockUsers(user(giver, 100, 250))
	ledger := &mockLedger{}
	tr := NewTreasury(users, ledger)

	ctx := context.Background()
	if err := tr.RefundRemainder(ctx, nil, giver, task, 250); err != nil {
		t.Fatalf("RefundRemainder: %v", err)
	}

	if got := users.held(giver); got != 0 {
		t.Errorf("held after refund: got %d, want 0", got)
	}
	if got := users.balance(giver); got != 350 {
		t.Errorf("balance after refund: got %d, want 350", got)
	}
	refunds := ledger.byType(models.LedgerEntryRefund)
	if len(refunds) != 1 || refunds[0].AmountCents != 250 {
		t.Fatalf("refund entry: got %+v, want one entry of 250", refunds)
	}

	// A zero remainder is a no-op.
	if err := tr.RefundRemainder(ctx, nil, giver, task, 0); err != nil {
		t.Fatalf("RefundRemainder(0): %v", err)
	}
	if n := len(ledger.byType(models.LedgerEntryRefund)); n != 1 {
		t.Errorf("refund entries after no-op: got %d, want 1", n)
	}
}

// ---------------------------------------------------------------------------
// 4. TestSettleWithdrawal
// ---------------------------------------------------------------------------

func TestSettleWithdrawal(t *testing.T) {
	u := uuid.New()
	req := uuid.New()

	users := newMockUsers(user(u, 500, 0))
	ledger := &mockLedger{}
	tr := NewTreasury(users, ledger)

	ctx := context.Background()
	if err := tr.SettleWithdrawal(ctx, nil, u, req, 200); err != nil {
		t.Fatalf("SettleWithdrawal: %v", err)
	}
	if got := users.balance(u); got != 300 {
		t.Errorf("balance after withdrawal: got %d, want 300", got)
	}
	wds := ledger.byType(models.LedgerEntryWithdrawal)
	if len(wds) != 1 || wds[0].AmountCents != -200 {
		t.Fatalf("withdrawal entry: got %+v, want one entry of -200", wds)
	}
	if wds[0].RequestID == nil || *wds[0].RequestID != req {
		t.Error("withdrawal entry should reference the balance request")
	}

	// Overdraw is refused.
	if err := tr.SettleWithdrawal(ctx, nil, u, uuid.New(), 9999); err != ErrInsufficientFunds {
		t.Errorf("expected ErrInsufficientFunds, got: %v", err)
	}
}

// ---------------------------------------------------------------------------
// 5. TestAdjust
// ---------------------------------------------------------------------------

func TestAdjust(t *testing.T) {
	u := uuid.New()

	users := newMockUsers(user(u, 100, 0))
	ledger := &mockLedger{}
	tr := NewTreasury(users, ledger)

	ctx := context.Background()
	if err := tr.Adjust(ctx, nil, u, 50); err != nil {
		t.Fatalf("Adjust(+50): %v", err)
	}
	if err := tr.Adjust(ctx, nil, u, -30); err != nil {
		t.Fatalf("Adjust(-30): %v", err)
	}
	if got := users.balance(u); got != 120 {
		t.Errorf("balance after adjustments: got %d, want 120", got)
	}

	adjs := ledger.byType(models.LedgerEntryAdjustment)
	if len(adjs) != 2 {
		t.Fatalf("adjustment entries: got %d, want 2", len(adjs))
	}
	if adjs[0].AmountCents != 50 || adjs[1].AmountCents != -30 {
		t.Errorf("adjustment amounts: got %d, %d; want 50, -30", adjs[0].AmountCents, adjs[1].AmountCents)
	}

	// Debiting below zero is refused and writes no entry.
	if err := tr.Adjust(ctx, nil, u, -9999); err != ErrInsufficientFunds {
		t.Errorf("expected ErrInsufficientFunds, got: %v", err)
	}
	if n := len(ledger.byType(models.LedgerEntryAdjustment)); n != 2 {
		t.Errorf("adjustment entries after failed adjust: got %d, want 2", n)
	}
}
