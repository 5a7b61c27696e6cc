package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	pkgcrypto "github.com/and161185/trophycase/internal/crypto"
	"github.com/and161185/trophycase/internal/errs"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func TestUserRepo_CreateUser_OK_NullEmail(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)

	mock.ExpectQuery(`INSERT INTO users \(username, password_hash, email\) VALUES \(\$1, \$2, \$3\) RETURNING id`).
		WithArgs("alice", pgxmock.AnyArg(), (*string)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := r.CreateUser(context.Background(), "alice", "secret1", nil)
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreateUser_UniqueViolations(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	email := "a@b.co"

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", pgxmock.AnyArg(), &email).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})
	_, err := r.CreateUser(ctx, "alice", "secret1", &email)
	require.ErrorIs(t, err, errs.ErrUsernameTaken)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("bob", pgxmock.AnyArg(), &email).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	_, err = r.CreateUser(ctx, "bob", "secret1", &email)
	require.ErrorIs(t, err, errs.ErrEmailTaken)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("carol", pgxmock.AnyArg(), &email).
		WillReturnError(errors.New("conn reset"))
	_, err = r.CreateUser(ctx, "carol", "secret1", &email)
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestUserRepo_GetUserByUsername(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	email := "alice@example.com"
	now := time.Now()

	mock.ExpectQuery(`SELECT id, username, password_hash, email, created_at FROM users WHERE username=\$1`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "password_hash", "email", "created_at"}).
			AddRow(int64(1), "alice", "$argon2id$x", &email, now))
	u, err := r.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(1), u.ID)
	require.Equal(t, "alice", u.Username)

	mock.ExpectQuery(`FROM users WHERE username=\$1`).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, errs.ErrNotFound)

	mock.ExpectQuery(`FROM users WHERE username=\$1`).
		WithArgs("alice").
		WillReturnError(errors.New("db down"))
	_, err = r.GetUserByUsername(ctx, "alice")
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_GetUserByID_NoHash(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	email := "alice@example.com"

	mock.ExpectQuery(`SELECT id, username, email, created_at FROM users WHERE id=\$1`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email", "created_at"}).
			AddRow(int64(1), "alice", &email, time.Now()))
	u, err := r.GetUserByID(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, u.PasswordHash)

	mock.ExpectQuery(`FROM users WHERE id=\$1`).
		WithArgs(int64(2)).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetUserByID(ctx, 2)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_VerifyCredentials(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	hash, err := pkgcrypto.HashPassword("secret1")
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT password_hash FROM users WHERE username=\$1`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"password_hash"}).AddRow(hash))
	ok, err := r.VerifyCredentials(ctx, "alice", "secret1")
	require.NoError(t, err)
	require.True(t, ok)

	mock.ExpectQuery(`SELECT password_hash FROM users WHERE username=\$1`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"password_hash"}).AddRow(hash))
	ok, err = r.VerifyCredentials(ctx, "alice", "wrong")
	require.NoError(t, err)
	require.False(t, ok)

	mock.ExpectQuery(`SELECT password_hash FROM users WHERE username=\$1`).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)
	ok, err = r.VerifyCredentials(ctx, "nobody", "anything")
	require.NoError(t, err)
	require.False(t, ok)

	mock.ExpectQuery(`SELECT password_hash FROM users WHERE username=\$1`).
		WithArgs("alice").
		WillReturnError(errors.New("db down"))
	_, err = r.VerifyCredentials(ctx, "alice", "secret1")
	require.Error(t, err)
}
