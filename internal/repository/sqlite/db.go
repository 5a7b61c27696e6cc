// Package sqlite contains embedded-database implementations of repository
// interfaces, backed by modernc.org/sqlite through sqlx.
package sqlite

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

var defaultPragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
}

// Open opens the database file behind dsn with foreign keys enabled.
// The embedded engine serializes writers, so the pool holds one connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName, withPragmas(dsn))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// withPragmas appends connection pragmas that are not already present in dsn.
func withPragmas(dsn string) string {
	var add []string
	for _, p := range defaultPragmas {
		name := p[:strings.Index(p, "(")]
		if !strings.Contains(dsn, name) {
			add = append(add, p)
		}
	}
	if len(add) == 0 {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(add, "&")
}

func constraintError(err error, kind string) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), kind)
}

// isUniqueViolation reports whether the error is a unique constraint violation.
func isUniqueViolation(err error) bool { return constraintError(err, "UNIQUE") }

// isForeignKeyViolation reports whether the error references a missing parent row.
func isForeignKeyViolation(err error) bool { return constraintError(err, "FOREIGN KEY") }
