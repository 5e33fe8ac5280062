package files

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/examvault/internal/common"
	"github.com/dmitrijs2005/examvault/internal/server/models"
)

const recordColumns = `id, original_filename, subject, exam_date, upload_time, file_size, content_type,
	salt, nonce, kdf_algorithm, kdf_iterations, kdf_memory_kib, kdf_parallelism, kdf_key_len, cipher, status`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row in recordColumns order. uploadTime receives the
// upload_time column, whose Go type depends on the dialect.
func scanRecord(s rowScanner, uploadTime any) (*models.FileRecord, error) {
	var (
		rec                         models.FileRecord
		iterations, memory, par, kl int64
	)
	err := s.Scan(&rec.ID, &rec.OriginalFilename, &rec.Subject, &rec.ExamDate, uploadTime, &rec.FileSize,
		&rec.ContentType, &rec.Salt, &rec.Nonce, &rec.KDF.Algorithm, &iterations, &memory, &par, &kl,
		&rec.Cipher, &rec.Status)
	if err != nil {
		return nil, err
	}
	rec.KDF.Iterations = uint32(iterations)
	rec.KDF.MemoryKiB = uint32(memory)
	rec.KDF.Parallelism = uint8(par)
	rec.KDF.KeyLen = uint32(kl)
	return &rec, nil
}

// expectOne converts an Exec result into nil, common.ErrNotFound or an error.
func expectOne(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrNotFound
	default:
		return fmt.Errorf("%s: unexpected rows affected: %d", op, n)
	}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	return err
}
