// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/trophycase/internal/model"
)

// UserRepository provides access to user accounts and credentials.
type UserRepository interface {
	// CreateUser hashes password and inserts a new user. A nil email is stored as NULL.
	CreateUser(ctx context.Context, username, password string, email *string) (int64, error)
	// GetUserByUsername loads a user including the password hash.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// GetUserByID loads a user without the password hash.
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	// VerifyCredentials reports whether password matches the stored hash of username.
	VerifyCredentials(ctx context.Context, username, password string) (bool, error)
}

// AchievementRepository provides the achievement catalog and per-user unlocks.
type AchievementRepository interface {
	// ListAchievements returns the catalog ordered by (category, id).
	ListAchievements(ctx context.Context) ([]model.Achievement, error)
	// ListUserAchievements returns the catalog with the unlock flag for userID.
	ListUserAchievements(ctx context.Context, userID int64) ([]model.AchievementStatus, error)
	// UnlockAchievement records the unlock atomically; true only for a newly inserted row.
	UnlockAchievement(ctx context.Context, userID int64, name string) (bool, error)
	// SeedAchievements inserts entries only when the catalog table is empty.
	SeedAchievements(ctx context.Context, entries []model.Achievement) (int, error)
}

// SessionRepository stores server-side login sessions.
type SessionRepository interface {
	// CreateSession inserts a new session.
	CreateSession(ctx context.Context, s model.Session) error
	// GetSession loads a live session; expired or missing sessions are ErrNotFound.
	GetSession(ctx context.Context, id string) (*model.Session, error)
	// DeleteSession removes a session; deleting a missing one is not an error.
	DeleteSession(ctx context.Context, id string) error
	// DeleteExpiredSessions removes all sessions past their expiry.
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// StatusRepository reports table sizes for diagnostics.
type StatusRepository interface {
	Status(ctx context.Context) (model.DBStatus, error)
}

// Store is the full persistence layer implemented by each backend.
type Store interface {
	UserRepository
	AchievementRepository
	SessionRepository
	StatusRepository
	Close()
}
