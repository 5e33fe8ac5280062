package files

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/examvault/internal/common"
	"github.com/dmitrijs2005/examvault/internal/server/models"
)

// MemoryRepository keeps records in process memory. Records are copied on
// the way in and out. Used by tests and the "memory" backend.
type MemoryRepository struct {
	mu   sync.RWMutex
	recs map[string]*models.FileRecord
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{recs: make(map[string]*models.FileRecord)}
}

func (r *MemoryRepository) Create(ctx context.Context, rec *models.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.recs[rec.ID]; ok {
		return fmt.Errorf("insert file: %w", errDuplicateID)
	}
	c := rec.Clone()
	c.UploadTime = c.UploadTime.UTC()
	c.Status = models.StatusPending
	r.recs[c.ID] = c
	return nil
}

func (r *MemoryRepository) transition(ctx context.Context, id, from, to string) (*models.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.recs[id]
	if !ok || rec.Status != from {
		return nil, common.ErrNotFound
	}
	rec.Status = to
	return rec.Clone(), nil
}

func (r *MemoryRepository) MarkUploaded(ctx context.Context, id string) error {
	_, err := r.transition(ctx, id, models.StatusPending, models.StatusCompleted)
	return err
}

func (r *MemoryRepository) MarkDeleting(ctx context.Context, id string) (*models.FileRecord, error) {
	return r.transition(ctx, id, models.StatusCompleted, models.StatusDeleting)
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.recs[id]
	if !ok || !rec.Visible() {
		return nil, common.ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*models.FileRecord, error) {
	result, err := r.filter(ctx, func(rec *models.FileRecord) bool { return rec.Visible() })
	if err != nil {
		return nil, err
	}
	sortNewestFirst(result)
	return result, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.recs[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.recs, id)
	return nil
}

func (r *MemoryRepository) ListStale(ctx context.Context, cutoff time.Time) ([]*models.FileRecord, error) {
	result, err := r.filter(ctx, func(rec *models.FileRecord) bool {
		return rec.Status != models.StatusCompleted && rec.UploadTime.Before(cutoff)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UploadTime.Before(result[j].UploadTime) })
	return result, nil
}

func (r *MemoryRepository) ClaimStale(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.recs[id]
	if !ok || rec.Status == models.StatusCompleted {
		return common.ErrNotFound
	}
	rec.Status = models.StatusDeleting
	return nil
}

func (r *MemoryRepository) filter(ctx context.Context, keep func(*models.FileRecord) bool) ([]*models.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*models.FileRecord{}
	for _, rec := range r.recs {
		if keep(rec) {
			result = append(result, rec.Clone())
		}
	}
	return result, nil
}
