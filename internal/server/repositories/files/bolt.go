package files

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dmitrijs2005/examvault/internal/common"
	"github.com/dmitrijs2005/examvault/internal/server/models"
	"go.etcd.io/bbolt"
)

var bucketFiles = []byte("files")

var errDuplicateID = errors.New("file id already exists")

// BoltRepository keeps records gob-encoded in a single bbolt bucket keyed
// by file id. bbolt serialises writers, so every state change is one
// Update transaction.
type BoltRepository struct {
	db *bbolt.DB
}

var _ Repository = (*BoltRepository)(nil)

// OpenBoltRepository opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltRepository(dbPath string) (*BoltRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("files: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("files: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketFiles)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("files: create bucket: %w", err)
	}

	return &BoltRepository{db: db}, nil
}

// Close closes the underlying database.
func (r *BoltRepository) Close() error { return r.db.Close() }

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func getRecord(b *bbolt.Bucket, id string) (*models.FileRecord, error) {
	data := b.Get([]byte(id))
	if data == nil {
		return nil, common.ErrNotFound
	}
	var rec models.FileRecord
	if err := decodeGob(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	return &rec, nil
}

func putRecord(b *bbolt.Bucket, rec *models.FileRecord) error {
	data, err := encodeGob(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	return b.Put([]byte(rec.ID), data)
}

func (r *BoltRepository) Create(ctx context.Context, rec *models.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketFiles)
		if b.Get([]byte(rec.ID)) != nil {
			return fmt.Errorf("insert file: %w", errDuplicateID)
		}
		c := rec.Clone()
		c.UploadTime = c.UploadTime.UTC()
		c.Status = models.StatusPending
		return putRecord(b, c)
	})
}

// transition moves id from status from to status to and returns the
// updated record.
func (r *BoltRepository) transition(ctx context.Context, id, from, to string) (*models.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *models.FileRecord
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketFiles)
		rec, err := getRecord(b, id)
		if err != nil {
			return err
		}
		if rec.Status != from {
			return common.ErrNotFound
		}
		rec.Status = to
		if err := putRecord(b, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	return out, err
}

func (r *BoltRepository) MarkUploaded(ctx context.Context, id string) error {
	_, err := r.transition(ctx, id, models.StatusPending, models.StatusCompleted)
	return err
}

func (r *BoltRepository) MarkDeleting(ctx context.Context, id string) (*models.FileRecord, error) {
	return r.transition(ctx, id, models.StatusCompleted, models.StatusDeleting)
}

func (r *BoltRepository) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *models.FileRecord
	err := r.db.View(func(tx *bbolt.Tx) error {
		rec, err := getRecord(tx.Bucket(bucketFiles), id)
		if err != nil {
			return err
		}
		if !rec.Visible() {
			return common.ErrNotFound
		}
		out = rec
		return nil
	})
	return out, err
}

func (r *BoltRepository) List(ctx context.Context) ([]*models.FileRecord, error) {
	result, err := r.scan(ctx, func(rec *models.FileRecord) bool { return rec.Visible() })
	if err != nil {
		return nil, err
	}
	sortNewestFirst(result)
	return result, nil
}

func (r *BoltRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketFiles)
		if b.Get([]byte(id)) == nil {
			return common.ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

func (r *BoltRepository) ListStale(ctx context.Context, cutoff time.Time) ([]*models.FileRecord, error) {
	result, err := r.scan(ctx, func(rec *models.FileRecord) bool {
		return rec.Status != models.StatusCompleted && rec.UploadTime.Before(cutoff)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UploadTime.Before(result[j].UploadTime) })
	return result, nil
}

func (r *BoltRepository) ClaimStale(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketFiles)
		rec, err := getRecord(b, id)
		if err != nil {
			return err
		}
		if rec.Status == models.StatusCompleted {
			return common.ErrNotFound
		}
		rec.Status = models.StatusDeleting
		return putRecord(b, rec)
	})
}

func (r *BoltRepository) scan(ctx context.Context, keep func(*models.FileRecord) bool) ([]*models.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := []*models.FileRecord{}
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFiles).ForEach(func(k, v []byte) error {
			var rec models.FileRecord
			if err := decodeGob(v, &rec); err != nil {
				return fmt.Errorf("decode record %s: %w", k, err)
			}
			if keep(&rec) {
				result = append(result, &rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func sortNewestFirst(recs []*models.FileRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].UploadTime.Equal(recs[j].UploadTime) {
			return recs[i].UploadTime.After(recs[j].UploadTime)
		}
		return recs[i].ID < recs[j].ID
	})
}
