package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/examvault/internal/dbx"
	"github.com/dmitrijs2005/examvault/internal/server/repositories/files"
)

// RepositoryManager vends SQL-backed repositories for one dialect and owns
// the schema migrations of that dialect.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Files(db dbx.DBTX) files.Repository
}
