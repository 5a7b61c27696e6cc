package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQuerier is the part of a pool the limiter needs; pgxmock satisfies it too.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PG keeps limiter rows in the auth_limiter table.
type PG struct {
	q      pgxQuerier
	policy Policy
	now    func() time.Time
}

// NewPG constructs a PostgreSQL limiter sharing the store's pool.
func NewPG(q pgxQuerier, p Policy) *PG {
	return &PG{q: q, policy: p, now: time.Now}
}

func (l *PG) Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	var until time.Time
	err := l.q.QueryRow(ctx,
		`SELECT blocked_until FROM auth_limiter WHERE username=$1 AND ip_hash=$2`,
		username, ipHash).Scan(&until)
	if errors.Is(err, pgx.ErrNoRows) {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("limiter allow: %w", err)
	}
	isBlocked, retry := blocked(until, l.now())
	return !isBlocked, retry, nil
}

func (l *PG) Success(ctx context.Context, username string, ipHash []byte) error {
	const q = `
INSERT INTO auth_limiter (username, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 0, 'epoch', $3)
ON CONFLICT (username, ip_hash)
DO UPDATE SET fail_count=0, blocked_until='epoch', updated_at=EXCLUDED.updated_at`
	if _, err := l.q.Exec(ctx, q, username, ipHash, l.now()); err != nil {
		return fmt.Errorf("limiter success: %w", err)
	}
	return nil
}

// Failure bumps the counter in one statement, restarting it when the previous
// failure is older than the window, then applies the lockout rule.
func (l *PG) Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO auth_limiter (username, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 1, 'epoch', $3)
ON CONFLICT (username, ip_hash) DO UPDATE
SET fail_count = CASE WHEN EXCLUDED.updated_at - auth_limiter.updated_at > $4::interval
                      THEN 1 ELSE auth_limiter.fail_count + 1 END,
    updated_at = EXCLUDED.updated_at
RETURNING fail_count`
	now := l.now()
	var fails int
	if err := l.q.QueryRow(ctx, q, username, ipHash, now, l.policy.Window).Scan(&fails); err != nil {
		return false, 0, fmt.Errorf("limiter failure: %w", err)
	}

	until, lock := l.policy.lockout(fails, now)
	if !lock {
		return false, 0, nil
	}
	const upd = `UPDATE auth_limiter SET blocked_until=$3 WHERE username=$1 AND ip_hash=$2`
	if _, err := l.q.Exec(ctx, upd, username, ipHash, until); err != nil {
		return false, 0, fmt.Errorf("limiter block: %w", err)
	}
	return true, until.Sub(now), nil
}
