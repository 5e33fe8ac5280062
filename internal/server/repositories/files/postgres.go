package files

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/examvault/internal/dbx"
	"github.com/dmitrijs2005/examvault/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx)
// opened with the pgx stdlib driver.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var _ Repository = (*PostgresRepository)(nil)

func (r *PostgresRepository) Create(ctx context.Context, rec *models.FileRecord) error {
	query := `INSERT INTO files (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.OriginalFilename, rec.Subject, rec.ExamDate, rec.UploadTime.UTC(), rec.FileSize, rec.ContentType,
		rec.Salt, rec.Nonce, rec.KDF.Algorithm, int64(rec.KDF.Iterations), int64(rec.KDF.MemoryKiB),
		int64(rec.KDF.Parallelism), int64(rec.KDF.KeyLen), rec.Cipher, models.StatusPending)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

// MarkUploaded sets status to completed. Only a pending row qualifies.
func (r *PostgresRepository) MarkUploaded(ctx context.Context, id string) error {
	query := `UPDATE files SET status=$1 WHERE id=$2 AND status=$3`
	res, err := r.db.ExecContext(ctx, query, models.StatusCompleted, id, models.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark uploaded: %w", err)
	}
	return expectOne(res, "mark uploaded")
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM files WHERE id=$1 AND status=$2`

	var ut time.Time
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id, models.StatusCompleted), &ut)
	if err != nil {
		return nil, fmt.Errorf("failed to select file: %w", notFound(err))
	}
	rec.UploadTime = ut.UTC()
	return rec, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.FileRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM files WHERE status=$1 ORDER BY upload_time DESC, id`
	return r.selectMany(ctx, query, models.StatusCompleted)
}

// MarkDeleting locks the completed row and flips it to deleting in one
// transaction, so concurrent deleters cannot both claim it.
func (r *PostgresRepository) MarkDeleting(ctx context.Context, id string) (*models.FileRecord, error) {
	var rec *models.FileRecord

	err := dbx.InTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		query := `SELECT ` + recordColumns + ` FROM files WHERE id=$1 AND status=$2 FOR UPDATE`

		var ut time.Time
		got, err := scanRecord(tx.QueryRowContext(ctx, query, id, models.StatusCompleted), &ut)
		if err != nil {
			return notFound(err)
		}
		got.UploadTime = ut.UTC()

		res, err := tx.ExecContext(ctx, `UPDATE files SET status=$1 WHERE id=$2`, models.StatusDeleting, id)
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

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return expectOne(res, "delete")
}

func (r *PostgresRepository) ListStale(ctx context.Context, cutoff time.Time) ([]*models.FileRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM files WHERE status<>$1 AND upload_time<$2 ORDER BY upload_time`
	return r.selectMany(ctx, query, models.StatusCompleted, cutoff.UTC())
}

func (r *PostgresRepository) ClaimStale(ctx context.Context, id string) error {
	query := `UPDATE files SET status=$1 WHERE id=$2 AND status<>$3`
	res, err := r.db.ExecContext(ctx, query, models.StatusDeleting, id, models.StatusCompleted)
	if err != nil {
		return fmt.Errorf("failed to claim stale file: %w", err)
	}
	return expectOne(res, "claim stale")
}

func (r *PostgresRepository) selectMany(ctx context.Context, query string, args ...any) ([]*models.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	result := []*models.FileRecord{}
	for rows.Next() {
		var ut time.Time
		rec, err := scanRecord(rows, &ut)
		if err != nil {
			return nil, err
		}
		rec.UploadTime = ut.UTC()
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
