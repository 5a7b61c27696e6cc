// Package limiter throttles login attempts per (username, client address).
package limiter

import (
	"context"
	"crypto/sha256"
	"time"
)

// Limiter is consulted by the login flow around the credential check.
type Limiter interface {
	// Allow reports whether the pair may attempt a login, and for how long
	// it stays blocked when it may not.
	Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error)
	// Success clears the failure counter and any block.
	Success(ctx context.Context, username string, ipHash []byte) error
	// Failure counts a rejected attempt and reports whether it started a block.
	Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error)
}

// Policy is the lockout rule shared by every backend: MaxFails failures with
// no gap longer than Window block the pair for BlockFor.
type Policy struct {
	Window   time.Duration
	MaxFails int
	BlockFor time.Duration
}

// blocked reports whether a block lasting until `until` still holds at now.
func blocked(until, now time.Time) (bool, time.Duration) {
	if until.After(now) {
		return true, until.Sub(now)
	}
	return false, 0
}

// lockout returns the block deadline once count failures reach the threshold.
func (p Policy) lockout(count int, now time.Time) (time.Time, bool) {
	if p.MaxFails <= 0 || count < p.MaxFails {
		return time.Time{}, false
	}
	return now.Add(p.BlockFor), true
}

// HashIP keeps raw client addresses out of storage.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}
