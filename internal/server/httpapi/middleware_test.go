package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/trophycase/internal/errs"
	"github.com/and161185/trophycase/internal/model"
	"github.com/and161185/trophycase/internal/service"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u
}

type stubSessions struct {
	uid int64
	err error
}

func (s stubSessions) Issue(context.Context, int64) (string, time.Time, error) {
	return "", time.Time{}, s.err
}
func (s stubSessions) Resolve(context.Context, string) (int64, error) { return s.uid, s.err }
func (s stubSessions) Revoke(context.Context, string) error           { return s.err }
func (s stubSessions) Sweep(context.Context) (int64, error)           { return 0, s.err }

type failingAchievements struct{ err error }

func (f failingAchievements) ListForViewer(context.Context, service.Viewer) ([]model.AchievementStatus, error) {
	return nil, f.err
}
func (f failingAchievements) Unlock(context.Context, service.Viewer, string) (bool, error) {
	return false, f.err
}
func (f failingAchievements) Status(context.Context) (model.DBStatus, error) {
	return model.DBStatus{}, f.err
}

func TestRequestID_GeneratesAndReuses(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromCtx(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("generated id mismatch: ctx=%q header=%q", seen, rec.Header().Get(HeaderRequestID))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc-123" {
		t.Fatalf("incoming id not reused: %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, strings.Repeat("x", maxRequestIDLen+1))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if len(seen) > maxRequestIDLen {
		t.Fatalf("oversized incoming id must be replaced")
	}
}

func TestRecover_CatchesPanic(t *testing.T) {
	t.Parallel()

	h := Recover(zaptest.NewLogger(t))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("oh no")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "oh no") {
		t.Fatalf("panic reason leaked: %s", rec.Body.String())
	}
}

func TestRecover_ResponseAlreadyStarted(t *testing.T) {
	t.Parallel()

	h := Recover(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("partial"))
		panic("mid-stream")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status=%d, want the one already sent", rec.Code)
	}
	if rec.Body.String() != "partial" {
		t.Fatalf("error body appended to a started response: %q", rec.Body.String())
	}
}

type panickingAchievements struct{ failingAchievements }

func (panickingAchievements) Status(context.Context) (model.DBStatus, error) {
	panic("status exploded")
}

func TestRoutes_PanicIsAccessLogged(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	srv := New(nil, panickingAchievements{}, stubSessions{err: errs.ErrUnauthenticated}, zap.New(core), Options{})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/db-status", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", rec.Code)
	}
	if n := logs.FilterMessage("panic").Len(); n != 1 {
		t.Fatalf("panic entries=%d, want 1", n)
	}
	access := logs.FilterMessage("http").All()
	if len(access) != 1 {
		t.Fatalf("access entries=%d, want 1", len(access))
	}
	if got := access[0].ContextMap()["status"]; got != int64(http.StatusInternalServerError) {
		t.Fatalf("access log status=%v, want 500", got)
	}
}

func TestLogging_Passthrough(t *testing.T) {
	t.Parallel()

	h := Logging(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot || rec.Body.String() != "short and stout" {
		t.Fatalf("response altered: %d %q", rec.Code, rec.Body.String())
	}
}

func TestSessions_Middleware(t *testing.T) {
	t.Parallel()

	run := func(s service.SessionService, cookie string) (service.Viewer, int) {
		var got service.Viewer
		called := false
		h := Sessions(s, zaptest.NewLogger(t))(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			called = true
			got = ViewerFromCtx(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if !called {
			return got, rec.Code
		}
		return got, http.StatusOK
	}

	if v, code := run(stubSessions{uid: 7}, "tok"); code != http.StatusOK || v.UserID != 7 {
		t.Fatalf("valid cookie: viewer=%+v code=%d", v, code)
	}
	if v, code := run(stubSessions{uid: 7}, ""); code != http.StatusOK || v.Authenticated() {
		t.Fatalf("no cookie must be anonymous: viewer=%+v code=%d", v, code)
	}
	if v, code := run(stubSessions{err: errs.ErrUnauthenticated}, "tok"); code != http.StatusOK || v.Authenticated() {
		t.Fatalf("rejected cookie must be anonymous: viewer=%+v code=%d", v, code)
	}
	if _, code := run(stubSessions{err: errors.New("db down")}, "tok"); code != http.StatusInternalServerError {
		t.Fatalf("storage failure: code=%d, want 500", code)
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{errs.ErrPasswordTooShort, http.StatusBadRequest, "password must be at least 6 characters"},
		{fmt.Errorf("%w: achievement name is required", errs.ErrValidation), http.StatusBadRequest, "achievement name is required"},
		{errs.ErrUsernameTaken, http.StatusConflict, "username already exists"},
		{errs.ErrEmailTaken, http.StatusConflict, "email already exists"},
		{errs.ErrInvalidCredentials, http.StatusUnauthorized, "invalid username or password"},
		{errs.ErrUnauthenticated, http.StatusUnauthorized, msgNotAuthenticated},
		{fmt.Errorf("get user: %w", errs.ErrNotFound), http.StatusNotFound, msgNotFound},
		{errs.ErrRateLimited, http.StatusTooManyRequests, msgRateLimited},
		{errors.New(`pq: relation "users" does not exist`), http.StatusInternalServerError, msgInternal},
	}
	for _, tc := range cases {
		status, msg := statusFor(tc.err)
		if status != tc.status || msg != tc.msg {
			t.Fatalf("%v: got (%d, %q), want (%d, %q)", tc.err, status, msg, tc.status, tc.msg)
		}
	}
}

func TestServer_StorageFailureIsGeneric(t *testing.T) {
	t.Parallel()

	srv := New(nil, failingAchievements{err: errors.New("disk I/O error: secret path /var/db")},
		stubSessions{err: errs.ErrUnauthenticated}, zaptest.NewLogger(t), Options{})
	h := srv.Routes()

	for _, path := range []string{"/api/achievements", "/api/db-status"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s: status=%d, want 500", path, rec.Code)
		}
		var body errorBody
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if body.Error != msgInternal {
			t.Fatalf("%s: driver text leaked: %q", path, body.Error)
		}
	}
}

func TestServer_CORS(t *testing.T) {
	t.Parallel()

	srv := New(nil, failingAchievements{}, stubSessions{err: errs.ErrUnauthenticated}, zaptest.NewLogger(t),
		Options{CORSOrigins: []string{"http://app.test"}})
	req := httptest.NewRequest(http.MethodOptions, "/api/achievements", nil)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://app.test" {
		t.Fatalf("allow-origin=%q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("credentials must be allowed")
	}
}
