package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/and161185/trophycase/internal/model"
)

// Store bundles all embedded-engine repositories behind repository.Store.
type Store struct {
	*UserRepo
	*AchievementRepo
	*SessionRepo
	db *sqlx.DB
}

// NewStore wires every repository onto the same handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		UserRepo:        NewUserRepo(db),
		AchievementRepo: NewAchievementRepo(db),
		SessionRepo:     NewSessionRepo(db),
		db:              db,
	}
}

// Status returns row counts for diagnostics.
func (s *Store) Status(ctx context.Context) (model.DBStatus, error) {
	var st model.DBStatus
	err := s.db.GetContext(ctx, &st, `
SELECT (SELECT count(*) FROM users)             AS users,
       (SELECT count(*) FROM achievements)      AS achievements,
       (SELECT count(*) FROM user_achievements) AS user_achievements`)
	if err != nil {
		return model.DBStatus{}, fmt.Errorf("db status: %w", err)
	}
	return st, nil
}

// Close closes the database handle.
func (s *Store) Close() { _ = s.db.Close() }
