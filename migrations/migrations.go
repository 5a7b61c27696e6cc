// Package migrations embeds the SQL schema for each supported dialect.
package migrations

import "embed"

// Postgres holds migrations for the networked backend.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite holds migrations for the embedded backend.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
