package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/examvault/internal/dbx"
	"github.com/dmitrijs2005/examvault/internal/server/migrations"
	"github.com/dmitrijs2005/examvault/internal/server/repositories/files"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends repositories for an embedded SQLite file.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return files.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, "sqlite3", migrations.SQLiteDir)
}

func NewSQLiteRepositoryManager() RepositoryManager {
	return &SQLiteRepositoryManager{}
}

// OpenSQLite opens the SQLite database at path with a single connection,
// since SQLite allows one writer at a time.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{`PRAGMA journal_mode = WAL`, `PRAGMA busy_timeout = 5000`} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}
