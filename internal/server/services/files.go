// Package services contains the server-side business logic: the lifecycle of
// stored exam papers and the access protocol guarding them.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/examvault/internal/common"
	"github.com/dmitrijs2005/examvault/internal/cryptox"
	"github.com/dmitrijs2005/examvault/internal/logging"
	"github.com/dmitrijs2005/examvault/internal/server/blobs"
	"github.com/dmitrijs2005/examvault/internal/server/config"
	"github.com/dmitrijs2005/examvault/internal/server/keylock"
	"github.com/dmitrijs2005/examvault/internal/server/models"
	"github.com/dmitrijs2005/examvault/internal/server/repositories/files"
	"github.com/google/uuid"
)

// cleanupTimeout bounds rollback work that runs after the request context
// is gone.
const cleanupTimeout = 30 * time.Second

// FileService owns the invariant that a visible file id has exactly one
// record and one blob:
//   - Upload: validate, encrypt, store pending record, store blob, publish
//   - List: completed records, newest first
//   - Verify / Download: delegated to the AccessController
//   - Delete: hide record, remove blob, remove record, under the per-id lock
type FileService struct {
	repo   files.Repository
	blobs  blobs.Store
	locks  *keylock.Arena
	access *AccessController
	log    logging.Logger

	kdf   cryptox.KDFParams
	now   func() time.Time
	newID func() string
}

// NewFileService wires a FileService from its stores and the server config.
func NewFileService(repo files.Repository, store blobs.Store, cfg *config.Config, log logging.Logger) *FileService {
	locks := keylock.New()
	return &FileService{
		repo:   repo,
		blobs:  store,
		locks:  locks,
		access: NewAccessController(repo, store, locks, cfg.ConcealMissing, log),
		log:    log,
		kdf:    cryptox.DefaultKDFParams(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Upload stores a new encrypted document and returns its record.
// On any failure after the record is created, both record and blob are
// removed again so nothing half-written becomes visible.
func (s *FileService) Upload(ctx context.Context, req UploadRequest) (*models.FileRecord, error) {
	now := s.now().UTC()

	v, err := validateUpload(req, now)
	if err != nil {
		return nil, err
	}

	id := s.newID()
	salt := cryptox.NewSalt()
	nonce := cryptox.NewNonce()

	key, err := cryptox.DeriveKey(req.Secret, salt, s.kdf)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w: %w", common.ErrStorage, err)
	}
	ciphertext, err := cryptox.Seal(key, nonce, req.Content, []byte(id))
	common.WipeByteArray(key)
	if err != nil {
		return nil, fmt.Errorf("seal: %w: %w", common.ErrStorage, err)
	}

	rec := &models.FileRecord{
		ID:               id,
		OriginalFilename: v.filename,
		Subject:          v.subject,
		ExamDate:         v.examDate,
		UploadTime:       now,
		FileSize:         int64(len(req.Content)),
		ContentType:      v.contentType,
		Salt:             salt,
		Nonce:            nonce,
		KDF:              s.kdf,
		Cipher:           cryptox.CipherAES256GCM,
		Status:           models.StatusPending,
	}

	if err := ctx.Err(); err != nil {
		return nil, classify(ctx, "upload", err)
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, classify(ctx, "create record", err)
	}

	if err := s.blobs.Put(ctx, id, ciphertext); err != nil {
		s.discard(ctx, id)
		return nil, classify(ctx, "store blob", err)
	}

	if err := s.repo.MarkUploaded(ctx, id); err != nil {
		s.discard(ctx, id)
		if errors.Is(err, common.ErrNotFound) {
			// claimed by the janitor as abandoned
			return nil, fmt.Errorf("publish record: %w: record withdrawn", common.ErrStorage)
		}
		return nil, classify(ctx, "publish record", err)
	}
	rec.Status = models.StatusCompleted

	s.log.Info(ctx, "file uploaded", "file_id", id, "subject", rec.Subject, "size", rec.FileSize)
	return rec, nil
}

// discard removes a half-written upload. It runs detached from ctx so a
// cancelled request still cleans up; leftovers are caught by SweepStale.
func (s *FileService) discard(ctx context.Context, id string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.blobs.Delete(cctx, id); err != nil {
		s.log.Warn(ctx, "discard blob failed", "file_id", id, "err", err)
	}
	if err := s.repo.Delete(cctx, id); err != nil {
		s.log.Warn(ctx, "discard record failed", "file_id", id, "err", err)
	}
}

// List returns completed records, most recent upload first.
func (s *FileService) List(ctx context.Context) ([]*models.FileRecord, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, classify(ctx, "list records", err)
	}
	return recs, nil
}

func (s *FileService) Verify(ctx context.Context, id string, secret []byte) (*models.FileRecord, error) {
	return s.access.Verify(ctx, id, secret)
}

func (s *FileService) Download(ctx context.Context, id string, secret []byte) (*models.FileRecord, []byte, error) {
	return s.access.Download(ctx, id, secret)
}

// Delete removes a file. The exclusive per-id lock is held for the whole
// removal, so readers see either the complete file or common.ErrNotFound.
// Once the record is hidden the removal finishes even if ctx is cancelled.
func (s *FileService) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.repo.MarkDeleting(ctx, id); err != nil {
		return classify(ctx, "mark deleting", err)
	}

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.blobs.Delete(dctx, id); err != nil {
		s.log.Error(ctx, "delete blob failed", "file_id", id, "err", err)
		return classify(dctx, "delete blob", err)
	}
	if err := s.repo.Delete(dctx, id); err != nil {
		s.log.Error(ctx, "delete record failed", "file_id", id, "err", err)
		return classify(dctx, "delete record", err)
	}

	s.log.Info(ctx, "file deleted", "file_id", id)
	return nil
}
