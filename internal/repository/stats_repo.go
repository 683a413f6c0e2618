package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PendingCounts is the review backlog snapshot shown on the summary report.
type PendingCounts struct {
	Tasks           int `json:"tasks"`
	Submissions     int `json:"submissions"`
	BalanceRequests int `json:"balance_requests"`
}

type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

func (r *StatsRepo) PendingCounts(ctx context.Context) (PendingCounts, error) {
	var c PendingCounts
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM tasks WHERE admin_status = 'pending'),
			(SELECT COUNT(*) FROM submissions WHERE status = 'submitted'),
			(SELECT COUNT(*) FROM balance_requests WHERE status = 'pending')
	`).Scan(&c.Tasks, &c.Submissions, &c.BalanceRequests)
	return c, err
}
