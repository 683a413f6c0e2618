package models

import (
	"time"

	"github.com/google/uuid"
)

// Balance request types.
const (
	BalanceRequestDeposit    = "deposit"
	BalanceRequestWithdrawal = "withdrawal"
)

// Balance request statuses. pending -> approved|rejected, one-way.
const (
	BalanceRequestPending  = "pending"
	BalanceRequestApproved = "approved"
	BalanceRequestRejected = "rejected"
)

// BalanceRequest is a user-initiated deposit or withdrawal awaiting admin
// review. Money only moves when an admin approves it.
type BalanceRequest struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Type            string     `json:"type"`
	AmountCents     int64      `json:"amount_cents"`
	Method          string     `json:"method"`
	Reference       string     `json:"reference"`
	Status          string     `json:"status"`
	AdminNotes      *string    `json:"admin_notes,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	ReviewedBy      *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
