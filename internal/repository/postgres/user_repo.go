package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	pkgcrypto "github.com/and161185/trophycase/internal/crypto"
	"github.com/and161185/trophycase/internal/errs"
	"github.com/and161185/trophycase/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// CreateUser hashes the password and inserts a new user row.
func (r *UserRepo) CreateUser(ctx context.Context, username, password string, email *string) (int64, error) {
	hash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	const q = `
INSERT INTO users (username, password_hash, email)
VALUES ($1, $2, $3)
RETURNING id`
	var id int64
	if err := r.db.Pool.QueryRow(ctx, q, username, hash, email).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			if pg, _ := pgError(err); pg.ConstraintName == "users_email_key" {
				return 0, errs.ErrEmailTaken
			}
			return 0, errs.ErrUsernameTaken
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// GetUserByUsername selects a user, including the password hash, by username.
func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `
SELECT id, username, password_hash, email, created_at
FROM users WHERE username=$1`
	var u model.User
	err := r.db.Pool.QueryRow(ctx, q, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("select user by username: %w", err)
	}
	return &u, nil
}

// GetUserByID selects a user by ID. The password hash is never loaded.
func (r *UserRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `
SELECT id, username, email, created_at
FROM users WHERE id=$1`
	var u model.User
	err := r.db.Pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("select user by id: %w", err)
	}
	return &u, nil
}

// VerifyCredentials compares password against the stored hash.
// Unknown users cost the same as a wrong password and both report false.
func (r *UserRepo) VerifyCredentials(ctx context.Context, username, password string) (bool, error) {
	const q = `SELECT password_hash FROM users WHERE username=$1`
	var hash string
	if err := r.db.Pool.QueryRow(ctx, q, username).Scan(&hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pkgcrypto.BurnCompare(password), nil
		}
		return false, fmt.Errorf("select password hash: %w", err)
	}
	ok, err := pkgcrypto.VerifyPassword(password, hash)
	if err != nil {
		return false, fmt.Errorf("verify password for %q: %w", username, err)
	}
	return ok, nil
}
