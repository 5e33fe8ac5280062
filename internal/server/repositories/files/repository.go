// Package files implements the metadata store for uploaded exam papers.
//
// Every backend keeps the same lifecycle: a record is created "pending",
// becomes "completed" once its ciphertext is stored, and is flipped to
// "deleting" before its blob is removed. Readers only ever see completed
// records; lookups of anything else report common.ErrNotFound.
package files

import (
	"context"
	"time"

	"github.com/dmitrijs2005/examvault/internal/server/models"
)

type Repository interface {
	// Create inserts rec as a pending record.
	Create(ctx context.Context, rec *models.FileRecord) error
	// MarkUploaded moves a pending record to completed.
	MarkUploaded(ctx context.Context, id string) error
	// GetByID returns a completed record.
	GetByID(ctx context.Context, id string) (*models.FileRecord, error)
	// List returns completed records, newest upload first.
	List(ctx context.Context) ([]*models.FileRecord, error)
	// MarkDeleting hides a completed record from readers and returns it.
	MarkDeleting(ctx context.Context, id string) (*models.FileRecord, error)
	// Delete removes a record in any status.
	Delete(ctx context.Context, id string) error
	// ListStale returns pending or deleting records uploaded before cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]*models.FileRecord, error)
	// ClaimStale moves a pending or deleting record to deleting. A record
	// that was published in the meantime, or is gone, yields
	// common.ErrNotFound and is left untouched.
	ClaimStale(ctx context.Context, id string) error
}
