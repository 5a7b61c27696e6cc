// Package service contains application services for authentication, sessions and achievements.
package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/and161185/trophycase/internal/catalog"
	"github.com/and161185/trophycase/internal/errs"
	"github.com/and161185/trophycase/internal/limiter"
	"github.com/and161185/trophycase/internal/model"
	"github.com/and161185/trophycase/internal/repository"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthService defines registration, login and logout.
type AuthService interface {
	// Register validates input, creates the user and grants the registration achievement.
	Register(ctx context.Context, username, password, email string) (userID int64, err error)
	// Login applies rate-limiting and authenticates the user.
	Login(ctx context.Context, username, password, ip string) (model.User, error)
	// Logout invalidates the session behind token.
	Logout(ctx context.Context, token string) error
	// CurrentUser returns the viewer's account.
	CurrentUser(ctx context.Context, viewer Viewer) (model.User, error)
}

type AuthServiceImpl struct {
	users        repository.UserRepository
	achievements AchievementService
	sessions     SessionService
	lim          limiter.Limiter
	log          *zap.Logger
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	users repository.UserRepository,
	achievements AchievementService,
	sessions SessionService,
	lim limiter.Limiter,
	log *zap.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, achievements: achievements, sessions: sessions, lim: lim, log: log}
}

// Register checks username, password and email in that order; the first failure wins.
// A blank email is stored as no email at all.
func (s *AuthServiceImpl) Register(ctx context.Context, username, password, email string) (int64, error) {
	if utf8.RuneCountInString(username) < minUsernameLen {
		return 0, errs.ErrUsernameTooShort
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return 0, errs.ErrPasswordTooShort
	}
	var emailPtr *string
	if e := strings.TrimSpace(email); e != "" {
		if !emailRe.MatchString(e) {
			return 0, errs.ErrInvalidEmail
		}
		emailPtr = &e
	}

	id, err := s.users.CreateUser(ctx, username, password, emailPtr)
	if err != nil {
		return 0, err
	}

	if _, err := s.achievements.Unlock(ctx, Viewer{UserID: id}, catalog.Registration); err != nil {
		s.log.Warn("registration achievement not granted",
			zap.Int64("user_id", id),
			zap.Error(err),
		)
	}
	return id, nil
}

// Login authenticates with rate limiting by (username, ip). Unknown users and
// wrong passwords produce the same ErrInvalidCredentials.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password, ip string) (model.User, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return model.User{}, err
	}
	if !allowed {
		return model.User{}, errs.ErrRateLimited
	}

	ok, err := s.users.VerifyCredentials(ctx, username, password)
	if err != nil {
		return model.User{}, err
	}
	if !ok {
		// Record failure; if threshold reached, report rate-limited.
		if blocked, _, ferr := s.lim.Failure(ctx, username, ipHash); ferr == nil && blocked {
			return model.User{}, errs.ErrRateLimited
		} else if ferr != nil {
			s.log.Warn("limiter failure not recorded", zap.Error(ferr))
		}
		return model.User{}, errs.ErrInvalidCredentials
	}

	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.User{}, errs.ErrInvalidCredentials
		}
		return model.User{}, err
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, username, ipHash)

	u.PasswordHash = ""
	return *u, nil
}

// Logout revokes the session; failures surface to the caller.
func (s *AuthServiceImpl) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// CurrentUser loads the viewer's account without the password hash.
func (s *AuthServiceImpl) CurrentUser(ctx context.Context, viewer Viewer) (model.User, error) {
	if !viewer.Authenticated() {
		return model.User{}, errs.ErrUnauthenticated
	}
	u, err := s.users.GetUserByID(ctx, viewer.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.User{}, errs.ErrUnauthenticated
		}
		return model.User{}, err
	}
	return *u, nil
}
