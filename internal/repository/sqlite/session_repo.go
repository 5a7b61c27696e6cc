package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/and161185/trophycase/internal/errs"
	"github.com/and161185/trophycase/internal/model"
)

// SessionRepo implements SessionRepository on the embedded engine.
// Times are stored in UTC so that textual comparison matches time order.
type SessionRepo struct{ db *sqlx.DB }

// NewSessionRepo constructs a session repository.
func NewSessionRepo(db *sqlx.DB) *SessionRepo { return &SessionRepo{db: db} }

// CreateSession inserts a session row.
func (r *SessionRepo) CreateSession(ctx context.Context, s model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.UserID, s.CreatedAt.UTC(), s.ExpiresAt.UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("user %d: %w", s.UserID, errs.ErrNotFound)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession loads a session that has not expired yet.
func (r *SessionRepo) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var s model.Session
	err := r.db.GetContext(ctx, &s,
		`SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every session whose expiry has passed.
func (r *SessionRepo) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
