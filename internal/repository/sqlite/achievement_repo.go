package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/and161185/trophycase/internal/errs"
	"github.com/and161185/trophycase/internal/model"
)

// AchievementRepo implements AchievementRepository on the embedded engine.
type AchievementRepo struct{ db *sqlx.DB }

// NewAchievementRepo constructs an achievement repository.
func NewAchievementRepo(db *sqlx.DB) *AchievementRepo { return &AchievementRepo{db: db} }

// ListAchievements returns the catalog ordered by category, then id.
func (r *AchievementRepo) ListAchievements(ctx context.Context) ([]model.Achievement, error) {
	out := make([]model.Achievement, 0, 8)
	err := r.db.SelectContext(ctx, &out, `
SELECT id, name, description, icon_path, category
FROM achievements
ORDER BY category, id`)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return out, nil
}

// ListUserAchievements returns the catalog with the unlock flag for one user.
func (r *AchievementRepo) ListUserAchievements(ctx context.Context, userID int64) ([]model.AchievementStatus, error) {
	out := make([]model.AchievementStatus, 0, 8)
	err := r.db.SelectContext(ctx, &out, `
SELECT a.id, a.name, a.description, a.icon_path, a.category, (ua.user_id IS NOT NULL) AS unlocked
FROM achievements a
LEFT JOIN user_achievements ua ON ua.achievement_id = a.id AND ua.user_id = ?
ORDER BY a.category, a.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user achievements: %w", err)
	}
	return out, nil
}

// UnlockAchievement inserts the (user, achievement) pair in a single statement.
// Unknown names select no row and already unlocked pairs hit the primary key,
// so both report false.
func (r *AchievementRepo) UnlockAchievement(ctx context.Context, userID int64, name string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO user_achievements (user_id, achievement_id)
SELECT ?, id FROM achievements WHERE name = ?
ON CONFLICT (user_id, achievement_id) DO NOTHING`, userID, name)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, fmt.Errorf("user %d: %w", userID, errs.ErrNotFound)
		}
		return false, fmt.Errorf("unlock achievement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unlock achievement: %w", err)
	}
	return n == 1, nil
}

// SeedAchievements inserts entries inside one transaction when the table is empty.
func (r *AchievementRepo) SeedAchievements(ctx context.Context, entries []model.Achievement) (n int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	var count int64
	if err = tx.GetContext(ctx, &count, `SELECT count(*) FROM achievements`); err != nil {
		return 0, fmt.Errorf("count achievements: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	for _, a := range entries {
		res, e := tx.ExecContext(ctx, `
INSERT INTO achievements (name, description, icon_path, category)
VALUES (?, ?, ?, ?)
ON CONFLICT (name) DO NOTHING`, a.Name, a.Description, a.IconPath, a.Category)
		if e != nil {
			err = fmt.Errorf("seed %q: %w", a.Name, e)
			return 0, err
		}
		affected, _ := res.RowsAffected()
		n += int(affected)
	}
	return n, nil
}
