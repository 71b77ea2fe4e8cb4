package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/minsu-cho/plaza/internal/auth"
	"github.com/minsu-cho/plaza/internal/errs"
)

// AccountRepo implements auth.AccountRepo using PostgreSQL.
type AccountRepo struct{ db *DB }

var _ auth.AccountRepo = (*AccountRepo)(nil)

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

// Create inserts a new account row.
func (r *AccountRepo) Create(ctx context.Context, a *auth.Account) error {
	const q = `
INSERT INTO accounts (id, email, display_name, secret_hash, salt)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, a.ID, a.Email, a.DisplayName, a.SecretHash, a.Salt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByEmail selects an account by email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	const q = `
SELECT id, email, display_name, secret_hash, salt, created_at
FROM accounts WHERE email=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, email))
}

// GetByID selects an account by ID.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*auth.Account, error) {
	const q = `
SELECT id, email, display_name, secret_hash, salt, created_at
FROM accounts WHERE id=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, id))
}

// SetDisplayName updates the display name.
func (r *AccountRepo) SetDisplayName(ctx context.Context, id uuid.UUID, name string) error {
	const q = `UPDATE accounts SET display_name=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *AccountRepo) scanOne(row pgx.Row) (*auth.Account, error) {
	var a auth.Account
	err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.SecretHash, &a.Salt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	return &a, nil
}
