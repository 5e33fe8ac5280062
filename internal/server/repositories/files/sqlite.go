package files

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/examvault/internal/dbx"
	"github.com/dmitrijs2005/examvault/internal/server/models"
)

// SQLiteRepository implements Repository on an embedded SQLite database
// (modernc.org/sqlite). upload_time is stored as Unix nanoseconds.
//
// SQLite allows a single writer; the caller should open the database with
// one connection so transactions never see SQLITE_BUSY.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

var _ Repository = (*SQLiteRepository)(nil)

func (r *SQLiteRepository) Create(ctx context.Context, rec *models.FileRecord) error {
	query := `INSERT INTO files (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.OriginalFilename, rec.Subject, rec.ExamDate, rec.UploadTime.UnixNano(), rec.FileSize, rec.ContentType,
		rec.Salt, rec.Nonce, rec.KDF.Algorithm, int64(rec.KDF.Iterations), int64(rec.KDF.MemoryKiB),
		int64(rec.KDF.Parallelism), int64(rec.KDF.KeyLen), rec.Cipher, models.StatusPending)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkUploaded(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE files SET status=? WHERE id=? AND status=?`,
		models.StatusCompleted, id, models.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark uploaded: %w", err)
	}
	return expectOne(res, "mark uploaded")
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM files WHERE id=? AND status=?`

	var ns int64
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id, models.StatusCompleted), &ns)
	if err != nil {
		return nil, fmt.Errorf("failed to select file: %w", notFound(err))
	}
	rec.UploadTime = time.Unix(0, ns).UTC()
	return rec, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.FileRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM files WHERE status=? ORDER BY upload_time DESC, id`
	return r.selectMany(ctx, query, models.StatusCompleted)
}

func (r *SQLiteRepository) MarkDeleting(ctx context.Context, id string) (*models.FileRecord, error) {
	var rec *models.FileRecord

	err := dbx.InTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		query := `SELECT ` + recordColumns + ` FROM files WHERE id=? AND status=?`

		var ns int64
		got, err := scanRecord(tx.QueryRowContext(ctx, query, id, models.StatusCompleted), &ns)
		if err != nil {
			return notFound(err)
		}
		got.UploadTime = time.Unix(0, ns).UTC()

		res, err := tx.ExecContext(ctx, `UPDATE files SET status=? WHERE id=? AND status=?`,
			models.StatusDeleting, id, models.StatusCompleted)
		if err != nil {
			return err
		}
		if err := expectOne(res, "mark deleting"); err != nil {
			return err
		}
		got.Status = models.StatusDeleting
		rec = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark deleting: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return expectOne(res, "delete")
}

func (r *SQLiteRepository) ListStale(ctx context.Context, cutoff time.Time) ([]*models.FileRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM files WHERE status<>? AND upload_time<? ORDER BY upload_time`
	return r.selectMany(ctx, query, models.StatusCompleted, cutoff.UnixNano())
}

func (r *SQLiteRepository) ClaimStale(ctx context.Context, id string) error {
	query := `UPDATE files SET status=? WHERE id=? AND status<>?`
	res, err := r.db.ExecContext(ctx, query, models.StatusDeleting, id, models.StatusCompleted)
	if err != nil {
		return fmt.Errorf("failed to claim stale file: %w", err)
	}
	return expectOne(res, "claim stale")
}

func (r *SQLiteRepository) selectMany(ctx context.Context, query string, args ...any) ([]*models.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	result := []*models.FileRecord{}
	for rows.Next() {
		var ns int64
		rec, err := scanRecord(rows, &ns)
		if err != nil {
			return nil, err
		}
		rec.UploadTime = time.Unix(0, ns).UTC()
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
