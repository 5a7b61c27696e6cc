package limiter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLite is the embedded-engine limiter. Timestamps are unix seconds.
type SQLite struct {
	db     sqlQuerier
	policy Policy
	now    func() time.Time
}

// NewSQLite constructs a limiter over the store's database handle.
func NewSQLite(db sqlQuerier, p Policy) *SQLite {
	return &SQLite{db: db, policy: p, now: time.Now}
}

func (l *SQLite) Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	var until int64
	err := l.db.QueryRowContext(ctx,
		`SELECT blocked_until FROM auth_limiter WHERE username = ? AND ip_hash = ?`,
		username, ipHash).Scan(&until)
	if errors.Is(err, sql.ErrNoRows) {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("limiter allow: %w", err)
	}
	isBlocked, retry := blocked(time.Unix(until, 0), l.now())
	return !isBlocked, retry, nil
}

func (l *SQLite) Success(ctx context.Context, username string, ipHash []byte) error {
	_, err := l.db.ExecContext(ctx, `
INSERT INTO auth_limiter (username, ip_hash, fail_count, blocked_until, updated_at)
VALUES (?, ?, 0, 0, ?)
ON CONFLICT (username, ip_hash)
DO UPDATE SET fail_count = 0, blocked_until = 0, updated_at = excluded.updated_at`,
		username, ipHash, l.now().Unix())
	if err != nil {
		return fmt.Errorf("limiter success: %w", err)
	}
	return nil
}

func (l *SQLite) Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	now := l.now()
	var fails int
	err := l.db.QueryRowContext(ctx, `
INSERT INTO auth_limiter (username, ip_hash, fail_count, blocked_until, updated_at)
VALUES (?, ?, 1, 0, ?)
ON CONFLICT (username, ip_hash) DO UPDATE
SET fail_count = CASE WHEN excluded.updated_at - auth_limiter.updated_at > ?
                      THEN 1 ELSE auth_limiter.fail_count + 1 END,
    updated_at = excluded.updated_at
RETURNING fail_count`,
		username, ipHash, now.Unix(), int64(l.policy.Window/time.Second)).Scan(&fails)
	if err != nil {
		return false, 0, fmt.Errorf("limiter failure: %w", err)
	}

	until, lock := l.policy.lockout(fails, now)
	if !lock {
		return false, 0, nil
	}
	_, err = l.db.ExecContext(ctx,
		`UPDATE auth_limiter SET blocked_until = ? WHERE username = ? AND ip_hash = ?`,
		until.Unix(), username, ipHash)
	if err != nil {
		return false, 0, fmt.Errorf("limiter block: %w", err)
	}
	return true, until.Sub(now), nil
}
