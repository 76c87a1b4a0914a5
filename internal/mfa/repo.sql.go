package mfa

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modulus-erp/modulus-erp/internal/shared"
)

// Repository defines persistence operations for enrolled factors.
type Repository interface {
	ListFactors(ctx context.Context, userID int64) ([]Factor, error)
	FindFactor(ctx context.Context, id string) (*Factor, error)
	HasVerifiedFactor(ctx context.Context, userID int64) (bool, error)
	CreateFactor(ctx context.Context, factor *Factor) error
	MarkFactorVerified(ctx context.Context, id string) error
	DeleteFactor(ctx context.Context, id string, userID int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const factorColumns = `id, user_id, friendly_name, status, secret, created_at, updated_at`

// ListFactors returns a user's factors, newest first.
func (r *PGRepository) ListFactors(ctx context.Context, userID int64) ([]Factor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+factorColumns+` FROM mfa_factors WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var factors []Factor
	for rows.Next() {
		var f Factor
		if err := rows.Scan(&f.ID, &f.UserID, &f.FriendlyName, &f.Status, &f.Secret, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		factors = append(factors, f)
	}
	return factors, rows.Err()
}

// FindFactor fetches a factor by ID.
func (r *PGRepository) FindFactor(ctx context.Context, id string) (*Factor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+factorColumns+` FROM mfa_factors WHERE id = $1`, id)
	var f Factor
	err := row.Scan(&f.ID, &f.UserID, &f.FriendlyName, &f.Status, &f.Secret, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// HasVerifiedFactor reports whether the user has any verified factor.
func (r *PGRepository) HasVerifiedFactor(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM mfa_factors WHERE user_id = $1 AND status = $2)`,
		userID, FactorStatusVerified).Scan(&exists)
	return exists, err
}

// CreateFactor persists a freshly enrolled factor.
func (r *PGRepository) CreateFactor(ctx context.Context, factor *Factor) error {
	now := time.Now().UTC()
	factor.CreatedAt = now
	factor.UpdatedAt = now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO mfa_factors (id, user_id, friendly_name, status, secret, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		factor.ID, factor.UserID, factor.FriendlyName, factor.Status, factor.Secret, factor.CreatedAt, factor.UpdatedAt)
	return err
}

// MarkFactorVerified promotes a factor to verified status.
func (r *PGRepository) MarkFactorVerified(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE mfa_factors SET status = $2, updated_at = now() WHERE id = $1`, id, FactorStatusVerified)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteFactor removes a factor owned by the user.
func (r *PGRepository) DeleteFactor(ctx context.Context, id string, userID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM mfa_factors WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
