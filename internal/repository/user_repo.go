package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boostly/backend/internal/models"
)

const userColumns = `id, email, display_name, role, status, password_hash, balance_cents, held_cents, is_system, created_at, updated_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.Status, &u.PasswordHash,
		&u.BalanceCents, &u.HeldCents, &u.IsSystem, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, display_name, role, status, password_hash, balance_cents, held_cents, is_system)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, u.ID, u.Email, u.DisplayName, u.Role, u.Status, u.PasswordHash, u.BalanceCents, u.HeldCents, u.IsSystem).
		Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// UserFilter narrows List. Empty fields are not applied.
type UserFilter struct {
	Search string
	Role   string
	Status string
}

// List returns one page of non-system users plus the total match count.
func (r *UserRepo) List(ctx context.Context, f UserFilter, page PageParams) ([]*models.User, int, error) {
	where := []string{"is_system = FALSE"}
	args := []any{}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(email ILIKE $%d OR display_name ILIKE $%d)", n, n))
	}
	if f.Role != "" {
		args = append(args, f.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		userColumns, cond, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.Status, &u.PasswordHash,
			&u.BalanceCents, &u.HeldCents, &u.IsSystem, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, &u)
	}
	return list, total, rows.Err()
}

func (r *UserRepo) Update(ctx context.Context, u *models.User) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET email = $2, display_name = $3, role = $4, status = $5, updated_at = now()
		WHERE id = $1
	`, u.ID, u.Email, u.DisplayName, u.Role, u.Status)
	return err
}

// GetByIDForUpdate locks the user row. Call within a transaction.
func (r *UserRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error) {
	return scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

// AddCents credits amount to the user's balance and returns the new balance.
func (r *UserRepo) AddCents(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE users SET balance_cents = balance_cents + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance_cents
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// DeductCents atomically debits amount if the balance covers it. The caller
// maps pgx.ErrNoRows to an insufficient-funds error.
func (r *UserRepo) DeductCents(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE users SET balance_cents = balance_cents - $1, updated_at = now()
		WHERE id = $2 AND balance_cents >= $1
		RETURNING balance_cents
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// MoveToHeld shifts amount from balance_cents to held_cents (escrow lock).
func (r *UserRepo) MoveToHeld(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE users SET balance_cents = balance_cents - $1, held_cents = held_cents + $1, updated_at = now()
		WHERE id = $2 AND balance_cents >= $1
		RETURNING balance_cents
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// ReleaseHeld reduces held_cents (escrow paid out or refunded elsewhere).
func (r *UserRepo) ReleaseHeld(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET held_cents = held_cents - $1, updated_at = now() WHERE id = $2
	`, amount, id)
	return err
}
