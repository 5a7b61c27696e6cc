package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/segmentio/ksuid"

	"github.com/and161185/trophycase/internal/errs"
	"github.com/and161185/trophycase/internal/model"
	"github.com/and161185/trophycase/internal/repository"
)

// SessionService issues and validates server-side sessions.
type SessionService interface {
	// Issue creates a session for userID and returns the signed cookie value.
	Issue(ctx context.Context, userID int64) (token string, expiresAt time.Time, err error)
	// Resolve maps a cookie value to a user id.
	Resolve(ctx context.Context, token string) (int64, error)
	// Revoke invalidates the session behind token.
	Revoke(ctx context.Context, token string) error
	// Sweep deletes expired sessions.
	Sweep(ctx context.Context) (int64, error)
}

type SessionServiceImpl struct {
	repo    repository.SessionRepository
	signKey []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewSessionService constructs SessionService with an HS256 signing key.
func NewSessionService(repo repository.SessionRepository, signKey []byte, ttl time.Duration) *SessionServiceImpl {
	return &SessionServiceImpl{repo: repo, signKey: signKey, ttl: ttl, now: time.Now}
}

// Issue stores a new session row and returns a JWT whose jti is the session id.
func (s *SessionServiceImpl) Issue(ctx context.Context, userID int64) (string, time.Time, error) {
	now := s.now().UTC().Truncate(time.Second)
	sess := model.Session{
		ID:        ksuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return "", time.Time{}, err
	}

	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, sess.ExpiresAt, nil
}

// Resolve verifies the cookie signature and that the session row is still live.
func (s *SessionServiceImpl) Resolve(ctx context.Context, token string) (int64, error) {
	claims, err := s.parse(token, true)
	if err != nil {
		return 0, errs.ErrUnauthenticated
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, errs.ErrUnauthenticated
	}

	sess, err := s.repo.GetSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return 0, errs.ErrUnauthenticated
		}
		return 0, err
	}
	if sess.UserID != userID {
		return 0, errs.ErrUnauthenticated
	}
	return userID, nil
}

// Revoke deletes the session row. Tokens that were never ours are ignored;
// a storage failure is returned to the caller.
func (s *SessionServiceImpl) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token, false)
	if err != nil || claims.ID == "" {
		return nil
	}
	if err := s.repo.DeleteSession(ctx, claims.ID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Sweep removes expired sessions.
func (s *SessionServiceImpl) Sweep(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx)
}

// parse checks the HS256 signature; validate additionally enforces exp.
func (s *SessionServiceImpl) parse(token string, validate bool) (*jwt.RegisteredClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if validate {
		opts = append(opts, jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.signKey, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, errors.New("invalid session token")
	}
	return &claims, nil
}
