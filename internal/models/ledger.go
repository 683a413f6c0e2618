package models

import (
	"time"

	"github.com/google/uuid"
)

// Ledger entry_type values. Every balance mutation writes one of these in the
// same transaction that moves the money.
const (
	LedgerEntryDeposit       = "deposit"
	LedgerEntryWithdrawal    = "withdrawal"
	LedgerEntryEscrowLock    = "escrow_lock"
	LedgerEntryEscrowRelease = "escrow_release"
	LedgerEntryTaskPayout    = "task_payout"
	LedgerEntryPlatformFee   = "platform_fee"
	LedgerEntryRefund        = "refund"
	LedgerEntryAdjustment    = "adjustment"
)

// LedgerEntry is an append-only record of a single balance movement.
// AmountCents is signed: negative for debits, positive for credits.
type LedgerEntry struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	TaskID       *uuid.UUID `json:"task_id,omitempty"`
	RequestID    *uuid.UUID `json:"request_id,omitempty"`
	EntryType    string     `json:"entry_type"`
	AmountCents  int64      `json:"amount_cents"`
	BalanceAfter *int64     `json:"balance_after,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
