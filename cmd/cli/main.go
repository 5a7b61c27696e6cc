// Command tc is a CLI client for the trophycase API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ---- session store ----

type sessionFile struct {
	Cookie    string    `json:"cookie"`
	ExpiresAt time.Time `json:"expires_at"`
}

var errNoSession = errors.New("no valid session (login required)")

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "trophycase")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "trophycase")
}

func sessionPath() string { return filepath.Join(cfgDir(), "session.json") }

func saveSession(cookie string, exp time.Time) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(sessionPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(sessionFile{Cookie: cookie, ExpiresAt: exp})
}

// loadSession returns the stored cookie, or "" when there is none worth sending.
func loadSession() (string, error) {
	b, err := os.ReadFile(sessionPath())
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var sf sessionFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return "", err
	}
	if sf.Cookie == "" || (!sf.ExpiresAt.IsZero() && time.Now().After(sf.ExpiresAt)) {
		return "", nil
	}
	return sf.Cookie, nil
}

func clearSession() error {
	err := os.Remove(sessionPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ---- utils ----

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

const usageText = `tc CLI
Usage:
  tc [-addr URL] <cmd> [args]

Commands:
  version
  register     -u <username> -p <password> [-e <email>]   (saves session)
  login        -u <username> -p <password>                (saves session)
  logout
  me
  achievements
  unlock       <achievement name>
  status
`

func defaultAddr() string {
	if v := os.Getenv("TC_ADDR"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run dispatches subcommands and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	gfs := flag.NewFlagSet("tc", flag.ContinueOnError)
	gfs.SetOutput(stderr)
	addr := gfs.String("addr", defaultAddr(), "server base URL (env TC_ADDR)")
	gfs.Usage = func() { fmt.Fprint(stderr, usageText) }
	if err := gfs.Parse(args); err != nil {
		return 2
	}
	if gfs.NArg() < 1 {
		gfs.Usage()
		return 2
	}
	cmd, rest := gfs.Arg(0), gfs.Args()[1:]

	cookie, err := loadSession()
	if err != nil {
		return fail(stderr, err)
	}
	cli := newClient(*addr, cookie)

	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "tc %s (%s)\n", version, buildDate)

	case "register", "login":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		fs.SetOutput(stderr)
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		var e *string
		if cmd == "register" {
			e = fs.String("e", "", "email (optional)")
		}
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		if *u == "" || *p == "" {
			fmt.Fprintln(stderr, "need -u and -p")
			return 1
		}

		var (
			out userOut
			exp time.Time
		)
		if cmd == "register" {
			out, exp, err = cli.Register(ctx, *u, *p, *e)
		} else {
			out, exp, err = cli.Login(ctx, *u, *p)
		}
		if err != nil {
			return fail(stderr, err)
		}
		if err := saveSession(cli.cookie, exp); err != nil {
			return fail(stderr, err)
		}
		printJSON(stdout, out)

	case "logout":
		if err := cli.Logout(ctx); err != nil {
			return fail(stderr, err)
		}
		if err := clearSession(); err != nil {
			return fail(stderr, err)
		}
		fmt.Fprintln(stdout, "ok")

	case "me":
		if cookie == "" {
			return fail(stderr, errNoSession)
		}
		me, err := cli.Me(ctx)
		if err != nil {
			return fail(stderr, err)
		}
		printJSON(stdout, me)

	case "achievements":
		list, err := cli.Achievements(ctx)
		if err != nil {
			return fail(stderr, err)
		}
		for _, a := range list {
			mark := " "
			if a.Unlocked {
				mark = "x"
			}
			fmt.Fprintf(stdout, "[%s] %-16s %-20s %s\n", mark, a.Category, a.Name, a.Description)
		}

	case "unlock":
		name := strings.TrimSpace(strings.Join(rest, " "))
		if name == "" {
			fmt.Fprintln(stderr, "need an achievement name")
			return 1
		}
		if cookie == "" {
			return fail(stderr, errNoSession)
		}
		ok, err := cli.Unlock(ctx, name)
		if err != nil {
			return fail(stderr, err)
		}
		if ok {
			fmt.Fprintf(stdout, "unlocked %q\n", name)
		} else {
			fmt.Fprintf(stdout, "%q was already unlocked or does not exist\n", name)
		}

	case "status":
		st, err := cli.Status(ctx)
		if err != nil {
			return fail(stderr, err)
		}
		printJSON(stdout, st)

	default:
		gfs.Usage()
		return 2
	}
	return 0
}

func fail(w io.Writer, err error) int {
	var ae *apiError
	if errors.As(err, &ae) {
		fmt.Fprintf(w, "api error: status=%d msg=%s\n", ae.Status, ae.Message)
		return 1
	}
	fmt.Fprintln(w, err)
	return 1
}
