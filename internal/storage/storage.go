// Package storage selects and prepares the persistence backend at startup.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/trophycase/internal/catalog"
	"github.com/and161185/trophycase/internal/config"
	"github.com/and161185/trophycase/internal/limiter"
	"github.com/and161185/trophycase/internal/migrate"
	"github.com/and161185/trophycase/internal/repository"
	"github.com/and161185/trophycase/internal/repository/postgres"
	"github.com/and161185/trophycase/internal/repository/sqlite"
)

// Settings chooses the backend and tunes the login limiter.
type Settings struct {
	Driver string // config.DriverPostgres or config.DriverSQLite
	DSN    string

	LoginWindow   time.Duration
	LoginMaxFails int
	LoginBlockFor time.Duration
}

// SettingsFromConfig extracts storage settings from the server config.
func SettingsFromConfig(c *config.Config) Settings {
	return Settings{
		Driver:        c.DBDriver,
		DSN:           c.DatabaseURL,
		LoginWindow:   c.LoginWindow,
		LoginMaxFails: c.LoginMaxFails,
		LoginBlockFor: c.LoginBlockFor,
	}
}

func (s Settings) loginPolicy() limiter.Policy {
	return limiter.Policy{Window: s.LoginWindow, MaxFails: s.LoginMaxFails, BlockFor: s.LoginBlockFor}
}

// Backend is a migrated and seeded store with a limiter on the same database.
type Backend struct {
	Store   repository.Store
	Limiter limiter.Limiter
}

// Close releases the database.
func (b *Backend) Close() { b.Store.Close() }

// Open connects to the configured database, applies migrations and seeds the
// achievement catalog when it is empty.
func Open(ctx context.Context, s Settings, log *zap.Logger) (*Backend, error) {
	var (
		b   *Backend
		err error
	)
	switch s.Driver {
	case config.DriverPostgres:
		b, err = openPostgres(ctx, s)
	case config.DriverSQLite:
		b, err = openSQLite(ctx, s)
	default:
		return nil, fmt.Errorf("unsupported driver %q", s.Driver)
	}
	if err != nil {
		return nil, err
	}

	n, err := b.Store.SeedAchievements(ctx, catalog.Achievements())
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("seed achievements: %w", err)
	}
	log.Info("storage ready", zap.String("driver", s.Driver), zap.Int("seeded", n))
	return b, nil
}

func openPostgres(ctx context.Context, s Settings) (*Backend, error) {
	if err := migrate.Postgres(ctx, s.DSN); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	db, err := postgres.New(ctx, s.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Backend{
		Store:   postgres.NewStore(db),
		Limiter: limiter.NewPG(db.Pool, s.loginPolicy()),
	}, nil
}

func openSQLite(ctx context.Context, s Settings) (*Backend, error) {
	db, err := sqlite.Open(ctx, s.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := migrate.SQLite(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &Backend{
		Store:   sqlite.NewStore(db),
		Limiter: limiter.NewSQLite(db, s.loginPolicy()),
	}, nil
}
