package blobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/examvault/internal/filex"
)

// FileStore keeps blobs on the local filesystem at {baseDir}/{key[:2]}/{key}.
// The first two characters of the key shard the directory tree. Writes go
// through a temp file and rename, so a crash never leaves a torn blob.
type FileStore struct {
	baseDir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the base directory if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, errors.New("blobs: empty base directory")
	}
	abs, err := filex.EnsureDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("blobs: %w", err)
	}
	return &FileStore{baseDir: abs}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.baseDir, key[:2], key)
}

func (s *FileStore) Put(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := filex.EnsureDir(filepath.Join(s.baseDir, key[:2])); err != nil {
		return fmt.Errorf("blobs: %w", err)
	}
	if err := filex.WriteFileAtomic(s.path(key), data, 0o600); err != nil {
		return fmt.Errorf("blobs: put %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("blobs: open %s: %w", key, err)
	}
	return f, nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("blobs: delete %s: %w", key, err)
	}
	return nil
}
