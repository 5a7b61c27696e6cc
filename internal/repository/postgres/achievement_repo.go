package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/trophycase/internal/errs"
	"github.com/and161185/trophycase/internal/model"
)

// AchievementRepo implements AchievementRepository using PostgreSQL.
type AchievementRepo struct{ db *DB }

// NewAchievementRepo constructs an achievement repository.
func NewAchievementRepo(db *DB) *AchievementRepo { return &AchievementRepo{db: db} }

// ListAchievements returns the catalog ordered by category, then id.
func (r *AchievementRepo) ListAchievements(ctx context.Context) ([]model.Achievement, error) {
	const q = `
SELECT id, name, description, icon_path, category
FROM achievements
ORDER BY category, id`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	out := make([]model.Achievement, 0, 8)
	for rows.Next() {
		var a model.Achievement
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.IconPath, &a.Category); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate achievements: %w", err)
	}
	return out, nil
}

// ListUserAchievements returns the catalog with the unlock flag for one user.
func (r *AchievementRepo) ListUserAchievements(ctx context.Context, userID int64) ([]model.AchievementStatus, error) {
	const q = `
SELECT a.id, a.name, a.description, a.icon_path, a.category, (ua.user_id IS NOT NULL) AS unlocked
FROM achievements a
LEFT JOIN user_achievements ua ON ua.achievement_id = a.id AND ua.user_id = $1
ORDER BY a.category, a.id`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list user achievements: %w", err)
	}
	defer rows.Close()

	out := make([]model.AchievementStatus, 0, 8)
	for rows.Next() {
		var s model.AchievementStatus
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.IconPath, &s.Category, &s.Unlocked); err != nil {
			return nil, fmt.Errorf("scan user achievement: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user achievements: %w", err)
	}
	return out, nil
}

// UnlockAchievement inserts the (user, achievement) pair in a single statement.
// Unknown names select no row and already unlocked pairs hit the primary key,
// so both report false; racing duplicates resolve the same way.
func (r *AchievementRepo) UnlockAchievement(ctx context.Context, userID int64, name string) (bool, error) {
	const q = `
INSERT INTO user_achievements (user_id, achievement_id)
SELECT $1, id FROM achievements WHERE name = $2
ON CONFLICT (user_id, achievement_id) DO NOTHING`
	tag, err := r.db.Pool.Exec(ctx, q, userID, name)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, fmt.Errorf("user %d: %w", userID, errs.ErrNotFound)
		}
		return false, fmt.Errorf("unlock achievement: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SeedAchievements inserts entries inside one transaction when the table is empty.
func (r *AchievementRepo) SeedAchievements(ctx context.Context, entries []model.Achievement) (n int, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	var count int64
	if err = tx.QueryRow(ctx, `SELECT count(*) FROM achievements`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count achievements: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	const ins = `
INSERT INTO achievements (name, description, icon_path, category)
VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO NOTHING`
	for _, a := range entries {
		tag, e := tx.Exec(ctx, ins, a.Name, a.Description, a.IconPath, a.Category)
		if e != nil {
			err = fmt.Errorf("seed %q: %w", a.Name, e)
			return 0, err
		}
		n += int(tag.RowsAffected())
	}
	return n, nil
}
