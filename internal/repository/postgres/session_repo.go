package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/trophycase/internal/errs"
	"github.com/and161185/trophycase/internal/model"
)

// SessionRepo implements SessionRepository using PostgreSQL.
type SessionRepo struct{ db *DB }

// NewSessionRepo constructs a session repository.
func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

// CreateSession inserts a session row.
func (r *SessionRepo) CreateSession(ctx context.Context, s model.Session) error {
	const q = `
INSERT INTO sessions (id, user_id, created_at, expires_at)
VALUES ($1, $2, $3, $4)`
	if _, err := r.db.Pool.Exec(ctx, q, s.ID, s.UserID, s.CreatedAt, s.ExpiresAt); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("user %d: %w", s.UserID, errs.ErrNotFound)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession loads a session that has not expired yet.
func (r *SessionRepo) GetSession(ctx context.Context, id string) (*model.Session, error) {
	const q = `SELECT id, user_id, created_at, expires_at FROM sessions WHERE id=$1`
	var s model.Session
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	if !s.ExpiresAt.After(time.Now()) {
		return nil, errs.ErrNotFound
	}
	return &s, nil
}

// DeleteSession removes a session by id.
func (r *SessionRepo) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every session whose expiry has passed.
func (r *SessionRepo) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
