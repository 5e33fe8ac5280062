// Package models defines server-side data models persisted in the metadata store.
package models

import (
	"time"

	"github.com/dmitrijs2005/examvault/internal/cryptox"
)

// Upload status values. Only StatusCompleted records are visible to readers.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusDeleting  = "deleting"
)

// FileRecord describes one stored exam paper. The ciphertext itself lives in
// the blob store under ID; the secret and derived key are never stored.
type FileRecord struct {
	// ID is a UUIDv4 assigned at upload and also the blob key.
	ID string
	// OriginalFilename is the sanitised display name, extension included.
	OriginalFilename string
	Subject          string
	// ExamDate is kept as YYYY-MM-DD.
	ExamDate   string
	UploadTime time.Time
	// FileSize is the plaintext size in bytes.
	FileSize    int64
	ContentType string

	Salt   []byte
	Nonce  []byte
	KDF    cryptox.KDFParams
	Cipher string

	// Status tracks the upload/delete lifecycle, see Status* constants.
	Status string
}

// Visible reports whether readers may see the record.
func (r *FileRecord) Visible() bool {
	return r != nil && r.Status == StatusCompleted
}

// Clone returns a deep copy so in-process stores never share byte slices
// with callers.
func (r *FileRecord) Clone() *FileRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Salt = append([]byte(nil), r.Salt...)
	c.Nonce = append([]byte(nil), r.Nonce...)
	return &c
}
