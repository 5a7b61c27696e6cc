// Package model defines domain entities used by services and repositories.
package model

import "time"

// User represents an account. PasswordHash is only populated by lookups that need it.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`      // unique, case-sensitive
	PasswordHash string    `db:"password_hash"` // encoded argon2id hash
	Email        *string   `db:"email"`         // nil when the user registered without one
	CreatedAt    time.Time `db:"created_at"`
}

// Achievement is a catalog entry. Name is the lookup key used by unlock.
type Achievement struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	IconPath    string `db:"icon_path"`
	Category    string `db:"category"`
}

// AchievementStatus is an achievement as seen by a particular viewer.
type AchievementStatus struct {
	Achievement
	Unlocked bool `db:"unlocked"`
}

// Session is a server-side login session keyed by an opaque id.
type Session struct {
	ID        string    `db:"id"`
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// DBStatus holds row counts for diagnostics.
type DBStatus struct {
	Users            int64 `db:"users"`
	Achievements     int64 `db:"achievements"`
	UserAchievements int64 `db:"user_achievements"`
}
