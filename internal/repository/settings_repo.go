package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boostly/backend/internal/models"
)

// SettingsRepo stores the platform configuration as a single JSONB document.
type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

// Get returns the current settings, falling back to defaults when no row
// exists yet.
func (r *SettingsRepo) Get(ctx context.Context) (models.Settings, error) {
	var doc []byte
	var updatedAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT document, updated_at FROM platform_settings WHERE id = 1
	`).Scan(&doc, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, err
	}
	var s models.Settings
	if err := json.Unmarshal(doc, &s); err != nil {
		return models.Settings{}, err
	}
	s.UpdatedAt = updatedAt
	return s, nil
}

// Put replaces the settings document.
func (r *SettingsRepo) Put(ctx context.Context, s models.Settings) (models.Settings, error) {
	doc, err := json.Marshal(s)
	if err != nil {
		return models.Settings{}, err
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO platform_settings (id, document, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = now()
		RETURNING updated_at
	`, doc).Scan(&s.UpdatedAt)
	if err != nil {
		return models.Settings{}, err
	}
	return s, nil
}
