package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/examvault/internal/common"
	"github.com/dmitrijs2005/examvault/internal/cryptox"
	"github.com/dmitrijs2005/examvault/internal/logging"
	"github.com/dmitrijs2005/examvault/internal/server/blobs"
	"github.com/dmitrijs2005/examvault/internal/server/keylock"
	"github.com/dmitrijs2005/examvault/internal/server/models"
	"github.com/dmitrijs2005/examvault/internal/server/repositories/files"
)

// maxCiphertextSize bounds what is read back from the blob store.
const maxCiphertextSize = common.MaxUploadSize + 16

// AccessController answers verify and download requests. Every request runs
// the full key derivation and a full authenticated decryption; a wrong secret
// is reported only as common.ErrAccessDenied.
//
// With concealMissing set, an unknown id also costs one key derivation and
// yields ErrAccessDenied, so probing does not confirm which ids exist.
type AccessController struct {
	repo           files.Repository
	blobs          blobs.Store
	locks          *keylock.Arena
	concealMissing bool
	log            logging.Logger
}

func NewAccessController(repo files.Repository, store blobs.Store, locks *keylock.Arena, concealMissing bool, log logging.Logger) *AccessController {
	return &AccessController{
		repo:           repo,
		blobs:          store,
		locks:          locks,
		concealMissing: concealMissing,
		log:            log,
	}
}

// Verify reports whether secret opens the file. No plaintext leaves this call.
func (a *AccessController) Verify(ctx context.Context, id string, secret []byte) (*models.FileRecord, error) {
	rec, plaintext, err := a.open(ctx, id, secret)
	if err != nil {
		return nil, err
	}
	common.WipeByteArray(plaintext)
	return rec, nil
}

// Download returns the decrypted document. The caller owns the plaintext.
func (a *AccessController) Download(ctx context.Context, id string, secret []byte) (*models.FileRecord, []byte, error) {
	return a.open(ctx, id, secret)
}

// load fetches the record and opens its blob under the per-id read lock.
// Reading the blob happens after the lock is released.
func (a *AccessController) load(ctx context.Context, id string) (*models.FileRecord, io.ReadCloser, error) {
	unlock := a.locks.RLock(id)
	defer unlock()

	rec, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, classify(ctx, "load record", err)
	}

	rc, err := a.blobs.Open(ctx, id)
	if err != nil {
		if errors.Is(err, blobs.ErrNotFound) {
			a.log.Error(ctx, "completed record without blob", "file_id", id)
			return nil, nil, fmt.Errorf("open blob: %w", common.ErrStorage)
		}
		return nil, nil, classify(ctx, "open blob", err)
	}
	return rec, rc, nil
}

func (a *AccessController) open(ctx context.Context, id string, secret []byte) (*models.FileRecord, []byte, error) {
	rec, rc, err := a.load(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) && a.concealMissing {
			a.decoy(secret)
			return nil, nil, common.ErrAccessDenied
		}
		return nil, nil, err
	}

	ciphertext, err := readBlob(rc)
	if err != nil {
		return nil, nil, classify(ctx, "read blob", err)
	}

	key, err := cryptox.DeriveKey(secret, rec.Salt, rec.KDF)
	if err != nil {
		a.log.Error(ctx, "stored kdf parameters unusable", "file_id", id, "err", err)
		return nil, nil, fmt.Errorf("derive key: %w: %w", common.ErrStorage, err)
	}
	defer common.WipeByteArray(key)

	plaintext, err := cryptox.Open(key, rec.Nonce, ciphertext, []byte(rec.ID))
	if err != nil {
		if errors.Is(err, cryptox.ErrAuthFailure) {
			a.log.Info(ctx, "access denied", "file_id", id)
			return nil, nil, common.ErrAccessDenied
		}
		return nil, nil, fmt.Errorf("open ciphertext: %w: %w", common.ErrStorage, err)
	}

	if err := ctx.Err(); err != nil {
		common.WipeByteArray(plaintext)
		return nil, nil, classify(ctx, "decrypt", err)
	}
	return rec, plaintext, nil
}

func readBlob(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxCiphertextSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxCiphertextSize {
		return nil, fmt.Errorf("blob exceeds %d bytes", maxCiphertextSize)
	}
	return data, nil
}

// decoy spends the same derivation work a real lookup would.
func (a *AccessController) decoy(secret []byte) {
	key, err := cryptox.DeriveKey(secret, cryptox.NewSalt(), cryptox.DefaultKDFParams())
	if err == nil {
		common.WipeByteArray(key)
	}
}
