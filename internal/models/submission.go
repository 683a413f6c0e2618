package models

import (
	"time"

	"github.com/google/uuid"
)

// Submission review statuses. submitted -> approved|rejected, one-way.
const (
	SubmissionStatusSubmitted = "submitted"
	SubmissionStatusApproved  = "approved"
	SubmissionStatusRejected  = "rejected"
)

// Submission is a task doer's proof-of-completion record against a Task.
type Submission struct {
	ID              uuid.UUID  `json:"id"`
	TaskID          uuid.UUID  `json:"task_id"`
	DoerID          uuid.UUID  `json:"doer_id"`
	Status          string     `json:"status"`
	ProofText       string     `json:"proof_text"`
	ProofURLs       []string   `json:"proof_urls"`
	PayoutCents     int64      `json:"payout_cents"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	ReviewedBy      *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
