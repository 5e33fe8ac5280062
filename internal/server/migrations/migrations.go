// Package migrations embeds the goose SQL migrations for the metadata store,
// one directory per SQL dialect.
package migrations

import "embed"

// Directories inside Migrations.
const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS
