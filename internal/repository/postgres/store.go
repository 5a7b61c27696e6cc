package postgres

import (
	"context"
	"fmt"

	"github.com/and161185/trophycase/internal/model"
)

// Store bundles all PostgreSQL repositories behind repository.Store.
type Store struct {
	*UserRepo
	*AchievementRepo
	*SessionRepo
	db *DB
}

// NewStore wires every repository onto the same pool.
func NewStore(db *DB) *Store {
	return &Store{
		UserRepo:        NewUserRepo(db),
		AchievementRepo: NewAchievementRepo(db),
		SessionRepo:     NewSessionRepo(db),
		db:              db,
	}
}

// Status returns row counts for diagnostics.
func (s *Store) Status(ctx context.Context) (model.DBStatus, error) {
	const q = `
SELECT (SELECT count(*) FROM users),
       (SELECT count(*) FROM achievements),
       (SELECT count(*) FROM user_achievements)`
	var st model.DBStatus
	if err := s.db.Pool.QueryRow(ctx, q).Scan(&st.Users, &st.Achievements, &st.UserAchievements); err != nil {
		return model.DBStatus{}, fmt.Errorf("db status: %w", err)
	}
	return st, nil
}

// Close releases the pool.
func (s *Store) Close() { s.db.Close() }
