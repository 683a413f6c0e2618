package models

import (
	"time"

	"github.com/google/uuid"
)

// Task lifecycle statuses. A task enters "active" once an admin approves it,
// "submitted" while at least one submission awaits review, and "completed"
// when the remaining quantity reaches zero.
const (
	TaskStatusActive    = "active"
	TaskStatusPaused    = "paused"
	TaskStatusSubmitted = "submitted"
	TaskStatusCompleted = "completed"
	TaskStatusExpired   = "expired"
)

// Admin review statuses. pending -> approved|rejected, one-way.
const (
	AdminStatusPending  = "pending"
	AdminStatusApproved = "approved"
	AdminStatusRejected = "rejected"
)

// Supported social platforms.
const (
	PlatformInstagram = "instagram"
	PlatformYouTube   = "youtube"
	PlatformTikTok    = "tiktok"
	PlatformTwitter   = "twitter"
	PlatformFacebook  = "facebook"
)

// KnownPlatform reports whether p is one of the supported platform values.
func KnownPlatform(p string) bool {
	switch p {
	case PlatformInstagram, PlatformYouTube, PlatformTikTok, PlatformTwitter, PlatformFacebook:
		return true
	}
	return false
}

type Task struct {
	ID                uuid.UUID  `json:"id"`
	GiverID           uuid.UUID  `json:"giver_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	ServiceType       string     `json:"service_type"`
	Platform          string     `json:"platform"`
	TargetURL         string     `json:"target_url"`
	Quantity          int        `json:"quantity"`
	RemainingQuantity int        `json:"remaining_quantity"`
	Status            string     `json:"status"`
	AdminStatus       string     `json:"admin_status"`
	BudgetCents       int64      `json:"budget_cents"`
	PerUnitCents      int64      `json:"per_unit_cents"`
	AdminNotes        *string    `json:"admin_notes,omitempty"`
	RejectionReason   *string    `json:"rejection_reason,omitempty"`
	ReviewedBy        *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// PendingSubmission is populated on status=submitted listings so the
	// reviewer sees the proof alongside the owning task.
	PendingSubmission *Submission `json:"pending_submission,omitempty"`
}
