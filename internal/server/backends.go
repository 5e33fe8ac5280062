package server

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/examvault/internal/filex"
	"github.com/dmitrijs2005/examvault/internal/server/blobs"
	"github.com/dmitrijs2005/examvault/internal/server/config"
	"github.com/dmitrijs2005/examvault/internal/server/repositories/files"
	"github.com/dmitrijs2005/examvault/internal/server/repositories/repomanager"
)

type closeFunc func() error

func noClose() error { return nil }

// openMetadata returns the files repository selected by cfg together with a
// function releasing its resources. SQL backends are migrated before use.
func openMetadata(ctx context.Context, cfg *config.Config) (files.Repository, closeFunc, error) {
	switch cfg.MetadataBackend {
	case config.MetadataPostgres:
		db, err := sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return migrateSQL(ctx, db, repomanager.NewPostgresRepositoryManager())

	case config.MetadataSQLite:
		if _, err := filex.EnsureDir(filepath.Dir(cfg.DatabaseDSN)); err != nil {
			return nil, nil, err
		}
		db, err := repomanager.OpenSQLite(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return migrateSQL(ctx, db, repomanager.NewSQLiteRepositoryManager())

	case config.MetadataBolt:
		if _, err := filex.EnsureDir(filepath.Dir(cfg.DatabaseDSN)); err != nil {
			return nil, nil, err
		}
		repo, err := files.OpenBoltRepository(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open bolt: %w", err)
		}
		return repo, repo.Close, nil

	case config.MetadataMemory:
		return files.NewMemoryRepository(), noClose, nil
	}
	return nil, nil, fmt.Errorf("unknown metadata backend %q", cfg.MetadataBackend)
}

func migrateSQL(ctx context.Context, db *sql.DB, rm repomanager.RepositoryManager) (files.Repository, closeFunc, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return rm.Files(db), db.Close, nil
}

// openBlobs returns the ciphertext store selected by cfg.
func openBlobs(ctx context.Context, cfg *config.Config) (blobs.Store, error) {
	switch cfg.BlobBackend {
	case config.BlobS3:
		return blobs.NewS3Store(ctx, blobs.S3Config{
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			BaseEndpoint: cfg.S3BaseEndpoint,
			Prefix:       cfg.S3Prefix,
		})
	case config.BlobFilesystem:
		return blobs.NewFileStore(cfg.BlobDir)
	case config.BlobMemory:
		return blobs.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
}
