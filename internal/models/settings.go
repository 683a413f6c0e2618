package models

import "time"

// Settings is the single platform configuration document. It is stored as one
// JSONB row and validated against schemas/settings.json before writes.
type Settings struct {
	PlatformFeePercent int   `json:"platform_fee_percent"`
	MinWithdrawalCents int64 `json:"min_withdrawal_cents"`
	AutoExpireDays     int   `json:"auto_expire_days"`
	MaintenanceMode    bool  `json:"maintenance_mode"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultSettings are applied when no settings row exists yet.
func DefaultSettings() Settings {
	return Settings{
		PlatformFeePercent: 10,
		MinWithdrawalCents: 1000,
		AutoExpireDays:     30,
		MaintenanceMode:    false,
	}
}
