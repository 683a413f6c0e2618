package balance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/boostly/backend/internal/models"
	"github.com/boostly/backend/internal/notify"
	"github.com/boostly/backend/internal/repository"
)

// --- noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called. ---

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

// --- RequestRepo mock ---

type mockRequestRepo struct {
	reqs map[uuid.UUID]*models.BalanceRequest
}

func newMockRequestRepo(rs ...*models.BalanceRequest) *mockRequestRepo {
	m := &mockRequestRepo{reqs: make(map[uuid.UUID]*models.BalanceRequest)}
	for _, r := range rs {
		m.reqs[r.ID] = r
	}
	return m
}

func (m *mockRequestRepo) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

func (m *mockRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*models.BalanceRequest, error) {
	r, ok := m.reqs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r, nil
}

func (m *mockRequestRepo) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*models.BalanceRequest, error) {
	return m.GetByID(ctx, id)
}

func (m *mockRequestRepo) List(context.Context, repository.BalanceRequestFilter, repository.PageParams) ([]*models.BalanceRequest, int, error) {
	return nil, 0, nil
}

func (m *mockRequestRepo) MarkReviewed(_ context.Context, _ pgx.Tx, id uuid.UUID, status string,
	reviewerID uuid.UUID, notes, reason *string, at time.Time) (bool, error) {
	r := m.reqs[id]
	if r.Status != models.BalanceRequestPending {
		return false, nil
	}
	r.Status = status
	r.AdminNotes = notes
	r.RejectionReason = reason
	r.ReviewedBy = &reviewerID
	r.ReviewedAt = &at
	return true, nil
}

// --- Treasury mock ---

type mockTreasury struct {
	deposits    []int64
	withdrawals []int64
	err         error
}

func (m *mockTreasury) SettleDeposit(_ context.Context, _ pgx.Tx, _, _ uuid.UUID, amount int64) error {
	if m.err != nil {
		return m.err
	}
	m.deposits = append(m.deposits, amount)
	return nil
}

func (m *mockTreasury) SettleWithdrawal(_ context.Context, _ pgx.Tx, _, _ uuid.UUID, amount int64) error {
	if m.err != nil {
		return m.err
	}
	m.withdrawals = append(m.withdrawals, amount)
	return nil
}

// --- decision recorder ---

type decisionLog struct {
	events []notify.DecisionJobArgs
}

func (d *decisionLog) insert(_ context.Context, _ pgx.Tx, args notify.DecisionJobArgs) error {
	d.events = append(d.events, args)
	return nil
}

func pendingDeposit(userID uuid.UUID, amount int64) *models.BalanceRequest {
	return &models.BalanceRequest{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        models.BalanceRequestDeposit,
		AmountCents: amount,
		Status:      models.BalanceRequestPending,
	}
}

// --- tests ---

func TestApproveDeposit(t *testing.T) {
	userID := uuid.New()
	req := pendingDeposit(userID, 5000)

	repo := newMockRequestRepo(req)
	tr := &mockTreasury{}
	dec := &decisionLog{}
	svc := NewService(repo, tr, dec.insert)

	got, err := svc.Approve(context.Background(), req.ID, uuid.New(), nil)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got.Status != models.BalanceRequestApproved {
		t.Errorf("status: got %s, want approved", got.Status)
	}
	if len(tr.deposits) != 1 || tr.deposits[0] != 5000 {
		t.Errorf("deposit settlements: got %v, want [5000]", tr.deposits)
	}
	if len(dec.events) != 1 || dec.events[0].Event != notify.EventDepositApproved {
		t.Fatalf("decision events: got %+v, want one deposit.approved", dec.events)
	}
}

func TestApproveWithdrawal(t *testing.T) {
	req := pendingDeposit(uuid.New(), 2000)
	req.Type = models.BalanceRequestWithdrawal

	repo := newMockRequestRepo(req)
	tr := &mockTreasury{}
	svc := NewService(repo, tr, (&decisionLog{}).insert)

	if _, err := svc.Approve(context.Background(), req.ID, uuid.New(), nil); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if len(tr.withdrawals) != 1 || tr.withdrawals[0] != 2000 {
		t.Errorf("withdrawal settlements: got %v, want [2000]", tr.withdrawals)
	}
	if len(tr.deposits) != 0 {
		t.Errorf("deposit settlements: got %v, want none", tr.deposits)
	}
}

func TestApproveAlreadyReviewed(t *testing.T) {
	req := pendingDeposit(uuid.New(), 1000)
	req.Status = models.BalanceRequestApproved

	svc := NewService(newMockRequestRepo(req), &mockTreasury{}, (&decisionLog{}).insert)
	if _, err := svc.Approve(context.Background(), req.ID, uuid.New(), nil); !errors.Is(err, ErrNotPending) {
		t.Errorf("expected ErrNotPending, got: %v", err)
	}
}

func TestApproveUnknownRequest(t *testing.T) {
	svc := NewService(newMockRequestRepo(), &mockTreasury{}, (&decisionLog{}).insert)
	if _, err := svc.Approve(context.Background(), uuid.New(), uuid.New(), nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	req := pendingDeposit(uuid.New(), 1000)
	tr := &mockTreasury{}
	dec := &decisionLog{}
	svc := NewService(newMockRequestRepo(req), tr, dec.insert)

	if _, err := svc.Reject(context.Background(), req.ID, uuid.New(), "  ", nil); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got: %v", err)
	}
	if req.Status != models.BalanceRequestPending {
		t.Error("request must stay pending after a refused rejection")
	}
	if len(dec.events) != 0 {
		t.Errorf("decision events: got %+v, want none", dec.events)
	}
}

func TestRejectMovesNoMoney(t *testing.T) {
	req := pendingDeposit(uuid.New(), 1000)
	tr := &mockTreasury{}
	dec := &decisionLog{}
	svc := NewService(newMockRequestRepo(req), tr, dec.insert)

	got, err := svc.Reject(context.Background(), req.ID, uuid.New(), "unverifiable payment reference", nil)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if got.Status != models.BalanceRequestRejected {
		t.Errorf("status: got %s, want rejected", got.Status)
	}
	if len(tr.deposits) != 0 || len(tr.withdrawals) != 0 {
		t.Error("rejection must not settle any money")
	}
	if len(dec.events) != 1 || dec.events[0].Event != notify.EventDepositRejected {
		t.Fatalf("decision events: got %+v, want one deposit.rejected", dec.events)
	}
	if dec.events[0].Reason == nil || *dec.events[0].Reason != "unverifiable payment reference" {
		t.Error("decision event should carry the reason")
	}
}
