package admin

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modulus-erp/modulus-erp/internal/platform/db"
	"github.com/modulus-erp/modulus-erp/internal/shared"
)

// Repository defines persistence operations for the admin module.
type Repository interface {
	ListUsers(ctx context.Context, limit, offset int) ([]UserSummary, error)
	CountUsers(ctx context.Context) (int, error)
	EmailByUserID(ctx context.Context, userID int64) (string, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListUsers pages through accounts, newest first.
func (r *PGRepository) ListUsers(ctx context.Context, limit, offset int) ([]UserSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, role, is_active, created_at FROM users ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []UserSummary
	for rows.Next() {
		var u UserSummary
		if err := rows.Scan(&u.ID, &u.Email, &u.Role, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers returns the total number of accounts.
func (r *PGRepository) CountUsers(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total)
	return total, err
}

// EmailByUserID resolves the current email of an active account.
func (r *PGRepository) EmailByUserID(ctx context.Context, userID int64) (string, error) {
	var email string
	err := r.pool.QueryRow(ctx,
		`SELECT email FROM users WHERE id = $1 AND is_active`, userID).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return email, nil
}

// UpdatePassword replaces the stored password hash and revokes the user's
// live sessions in the same transaction, forcing a fresh sign-in.
func (r *PGRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, userID, passwordHash)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		_, err = tx.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
		return err
	})
}

var _ Repository = (*PGRepository)(nil)
