package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	pkgcrypto "github.com/and161185/trophycase/internal/crypto"
	"github.com/and161185/trophycase/internal/errs"
	"github.com/and161185/trophycase/internal/model"
)

// UserRepo implements UserRepository on the embedded engine.
type UserRepo struct{ db *sqlx.DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// CreateUser hashes the password and inserts a new user row.
func (r *UserRepo) CreateUser(ctx context.Context, username, password string, email *string) (int64, error) {
	hash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, email) VALUES (?, ?, ?)`,
		username, hash, email)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "users.email") {
				return 0, errs.ErrEmailTaken
			}
			return 0, errs.ErrUsernameTaken
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return res.LastInsertId()
}

// GetUserByUsername selects a user, including the password hash, by username.
func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u,
		`SELECT id, username, password_hash, email, created_at FROM users WHERE username = ?`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("select user by username: %w", err)
	}
	return &u, nil
}

// GetUserByID selects a user by ID. The password hash is never loaded.
func (r *UserRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u,
		`SELECT id, username, email, created_at FROM users WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("select user by id: %w", err)
	}
	return &u, nil
}

// VerifyCredentials compares password against the stored hash.
// Unknown users cost the same as a wrong password and both report false.
func (r *UserRepo) VerifyCredentials(ctx context.Context, username, password string) (bool, error) {
	var hash string
	err := r.db.GetContext(ctx, &hash, `SELECT password_hash FROM users WHERE username = ?`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
