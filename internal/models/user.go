package models

import (
	"time"

	"github.com/google/uuid"
)

// PlatformAccountID is the system account that holds escrowed task budgets
// and accumulated platform fees.
var PlatformAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// User roles.
const (
	RoleAdmin     = "admin"
	RoleTaskGiver = "task_giver"
	RoleTaskDoer  = "task_doer"
)

// User account statuses.
const (
	UserStatusActive = "active"
	UserStatusBanned = "banned"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	PasswordHash string    `json:"-"`
	BalanceCents int64     `json:"balance_cents"`
	HeldCents    int64     `json:"held_cents"`
	IsSystem     bool      `json:"is_system"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
