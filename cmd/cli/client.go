package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/and161185/trophycase/internal/server/httpapi"
)

type userOut struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type meOut struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    *string `json:"email"`
}

type achievementOut struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IconPath    string `json:"iconPath"`
	Category    string `json:"category"`
	Unlocked    bool   `json:"unlocked"`
}

type statusOut struct {
	Users            int64 `json:"users"`
	Achievements     int64 `json:"achievements"`
	UserAchievements int64 `json:"userAchievements"`
}

// apiError is a non-2xx reply from the server.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string { return fmt.Sprintf("%d: %s", e.Status, e.Message) }

// client talks JSON to the API and carries the session cookie by hand,
// so it can be persisted between invocations.
type client struct {
	base   string
	cookie string
	http   *http.Client
}

func newClient(base, cookie string) *client {
	return &client{
		base:   strings.TrimRight(base, "/"),
		cookie: cookie,
		http:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *client) do(ctx context.Context, method, path string, in, out any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.cookie != "" {
		req.AddCookie(&http.Cookie{Name: httpapi.CookieName, Value: c.cookie})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&eb) != nil || eb.Error == "" {
			eb.Error = http.StatusText(resp.StatusCode)
		}
		return resp, &apiError{Status: resp.StatusCode, Message: eb.Error}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

// takeSession picks the session cookie out of a login or register reply.
func (c *client) takeSession(resp *http.Response) (time.Time, error) {
	for _, ck := range resp.Cookies() {
		if ck.Name == httpapi.CookieName && ck.Value != "" {
			c.cookie = ck.Value
			return ck.Expires, nil
		}
	}
	return time.Time{}, fmt.Errorf("server did not set %s cookie", httpapi.CookieName)
}

func (c *client) Register(ctx context.Context, username, password, email string) (userOut, time.Time, error) {
	in := map[string]string{"username": username, "password": password}
	if email != "" {
		in["email"] = email
	}
	var out userOut
	resp, err := c.do(ctx, http.MethodPost, "/api/register", in, &out)
	if err != nil {
		return userOut{}, time.Time{}, err
	}
	exp, err := c.takeSession(resp)
	return out, exp, err
}

func (c *client) Login(ctx context.Context, username, password string) (userOut, time.Time, error) {
	var out userOut
	resp, err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{"username": username, "password": password}, &out)
	if err != nil {
		return userOut{}, time.Time{}, err
	}
	exp, err := c.takeSession(resp)
	return out, exp, err
}

func (c *client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
	c.cookie = ""
	return err
}

func (c *client) Me(ctx context.Context) (meOut, error) {
	var out meOut
	_, err := c.do(ctx, http.MethodGet, "/api/user", nil, &out)
	return out, err
}

func (c *client) Achievements(ctx context.Context) ([]achievementOut, error) {
	var out []achievementOut
	_, err := c.do(ctx, http.MethodGet, "/api/achievements", nil, &out)
	return out, err
}

func (c *client) Unlock(ctx context.Context, name string) (bool, error) {
	var out struct {
		Unlocked bool `json:"unlocked"`
	}
	_, err := c.do(ctx, http.MethodPost, "/api/achievements/unlock", map[string]string{"achievementName": name}, &out)
	return out.Unlocked, err
}

func (c *client) Status(ctx context.Context) (statusOut, error) {
	var out statusOut
	_, err := c.do(ctx, http.MethodGet, "/api/db-status", nil, &out)
	return out, err
}
