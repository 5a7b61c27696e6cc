// Package config loads server settings from defaults, the environment
// (optionally seeded from a .env file) and command-line flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported values of DBDriver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrMissingSessionKey is returned when no signing key was configured.
var ErrMissingSessionKey = errors.New("session key is required (SESSION_KEY or -session-key)")

// Config holds runtime settings for the trophycase server.
type Config struct {
	Addr        string
	DBDriver    string
	DatabaseURL string

	SessionKey   string
	SessionTTL   time.Duration
	CookieSecure bool
	CORSOrigins  []string

	LogLevel string
	LogDev   bool
	LogFile  string

	LoginWindow   time.Duration
	LoginMaxFails int
	LoginBlockFor time.Duration
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.DBDriver = DriverSQLite
	c.DatabaseURL = "trophycase.db"
	c.SessionTTL = 7 * 24 * time.Hour
	c.LogLevel = "info"
	c.LoginWindow = 15 * time.Minute
	c.LoginMaxFails = 5
	c.LoginBlockFor = 15 * time.Minute
}

// Load builds a Config from defaults, a best-effort .env file, the process
// environment and finally args (without the program name).
func Load(args []string) (*Config, error) {
	// missing .env is fine; real environment variables win over it
	_ = godotenv.Load()
	return load(args, os.Getenv, io.Discard)
}

func load(args []string, getenv func(string) string, usage io.Writer) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.parseFlags(args, usage); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if c.SessionKey == "" {
		return ErrMissingSessionKey
	}
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want %s or %s)", c.DBDriver, DriverPostgres, DriverSQLite)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.LoginMaxFails <= 0 {
		return errors.New("LOGIN_MAX_FAILS must be positive")
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("ADDR", &c.Addr)
	str("DB_DRIVER", &c.DBDriver)
	str("DATABASE_URL", &c.DatabaseURL)
	str("SESSION_KEY", &c.SessionKey)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FILE", &c.LogFile)
	if v := getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}

	for key, dst := range map[string]*time.Duration{
		"SESSION_TTL":     &c.SessionTTL,
		"LOGIN_WINDOW":    &c.LoginWindow,
		"LOGIN_BLOCK_FOR": &c.LoginBlockFor,
	} {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	for key, dst := range map[string]*bool{
		"COOKIE_SECURE": &c.CookieSecure,
		"LOG_DEV":       &c.LogDev,
	} {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}
	if v := getenv("LOGIN_MAX_FAILS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LOGIN_MAX_FAILS: %w", err)
		}
		c.LoginMaxFails = n
	}
	return nil
}

func (c *Config) parseFlags(args []string, usage io.Writer) error {
	fs := flag.NewFlagSet("trophycase", flag.ContinueOnError)
	fs.SetOutput(usage)

	fs.StringVar(&c.Addr, "addr", c.Addr, "listen address")
	fs.StringVar(&c.DBDriver, "db-driver", c.DBDriver, "database backend: postgres or sqlite")
	fs.StringVar(&c.DatabaseURL, "database-url", c.DatabaseURL, "PostgreSQL DSN or SQLite file path")
	fs.StringVar(&c.SessionKey, "session-key", c.SessionKey, "HS256 session signing key (required)")
	fs.DurationVar(&c.SessionTTL, "session-ttl", c.SessionTTL, "session lifetime")
	fs.BoolVar(&c.CookieSecure, "cookie-secure", c.CookieSecure, "mark the session cookie Secure")
	cors := fs.String("cors-origins", strings.Join(c.CORSOrigins, ","), "comma-separated allowed CORS origins")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug|info|warn|error")
	fs.BoolVar(&c.LogDev, "log-dev", c.LogDev, "human-readable development logging")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "also write logs to this file, rotated daily")
	fs.DurationVar(&c.LoginWindow, "login-window", c.LoginWindow, "window for counting failed logins")
	fs.IntVar(&c.LoginMaxFails, "login-max-fails", c.LoginMaxFails, "failed logins before a temporary block")
	fs.DurationVar(&c.LoginBlockFor, "login-block-for", c.LoginBlockFor, "duration of a login block")

	if err := fs.Parse(args); err != nil {
		return err
	}
	c.CORSOrigins = splitList(*cors)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
