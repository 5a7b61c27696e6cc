package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/trophycase/internal/catalog"
	"github.com/and161185/trophycase/internal/errs"
)

func TestAchievementRepo_ListAchievements(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAchievementRepo(db)

	mock.ExpectQuery(`SELECT id, name, description, icon_path, category FROM achievements ORDER BY category, id`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "icon_path", "category"}).
			AddRow(int64(3), "Explorer", "d", "/i.svg", "Exploration").
			AddRow(int64(1), catalog.Registration, "d", "/r.svg", "Getting Started"))

	list, err := r.ListAchievements(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Explorer", list[0].Name)
	require.Equal(t, catalog.Registration, list[1].Name)
}

func TestAchievementRepo_ListUserAchievements(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAchievementRepo(db)

	mock.ExpectQuery(`LEFT JOIN user_achievements ua ON ua.achievement_id = a.id AND ua.user_id = \$1 ORDER BY a.category, a.id`).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "icon_path", "category", "unlocked"}).
			AddRow(int64(3), "Explorer", "d", "/i.svg", "Exploration", false).
			AddRow(int64(1), catalog.Registration, "d", "/r.svg", "Getting Started", true))

	list, err := r.ListUserAchievements(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.False(t, list[0].Unlocked)
	require.True(t, list[1].Unlocked)

	mock.ExpectQuery(`LEFT JOIN user_achievements`).
		WithArgs(int64(5)).
		WillReturnError(errors.New("db down"))
	_, err = r.ListUserAchievements(context.Background(), 5)
	require.Error(t, err)
}

func TestAchievementRepo_UnlockAchievement(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAchievementRepo(db)
	ctx := context.Background()
	const q = `INSERT INTO user_achievements \(user_id, achievement_id\) SELECT \$1, id FROM achievements WHERE name = \$2 ON CONFLICT \(user_id, achievement_id\) DO NOTHING`

	mock.ExpectExec(q).WithArgs(int64(1), catalog.Registration).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	ok, err := r.UnlockAchievement(ctx, 1, catalog.Registration)
	require.NoError(t, err)
	require.True(t, ok)

	// already unlocked: conflict swallowed by the statement itself
	mock.ExpectExec(q).WithArgs(int64(1), catalog.Registration).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	ok, err = r.UnlockAchievement(ctx, 1, catalog.Registration)
	require.NoError(t, err)
	require.False(t, ok)

	// unknown achievement selects nothing
	mock.ExpectExec(q).WithArgs(int64(1), "Nonexistent Name").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	ok, err = r.UnlockAchievement(ctx, 1, "Nonexistent Name")
	require.NoError(t, err)
	require.False(t, ok)

	mock.ExpectExec(q).WithArgs(int64(99), catalog.Registration).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	_, err = r.UnlockAchievement(ctx, 99, catalog.Registration)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAchievementRepo_SeedAchievements_EmptyTable(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAchievementRepo(db)
	entries := catalog.Achievements()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM achievements`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	for _, a := range entries {
		mock.ExpectExec(`INSERT INTO achievements \(name, description, icon_path, category\)`).
			WithArgs(a.Name, a.Description, a.IconPath, a.Category).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	n, err := r.SeedAchievements(context.Background(), entries)
	require.NoError(t, err)
	require.Equal(t, len(entries), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAchievementRepo_SeedAchievements_NonEmptyIsNoop(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAchievementRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM achievements`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(8)))
	mock.ExpectCommit()

	n, err := r.SeedAchievements(context.Background(), catalog.Achievements())
	require.NoError(t, err)
	require.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAchievementRepo_SeedAchievements_RollbackOnError(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAchievementRepo(db)
	entries := catalog.Achievements()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM achievements`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectExec(`INSERT INTO achievements`).
		WithArgs(entries[0].Name, entries[0].Description, entries[0].IconPath, entries[0].Category).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := r.SeedAchievements(context.Background(), entries)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
