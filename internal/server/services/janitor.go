package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/examvault/internal/common"
)

// SweepStale removes records left pending or deleting since before cutoff,
// together with their blobs. Such records come from a crash in the middle of
// an upload or a delete; they are invisible to readers already. It returns
// how many records were removed.
func (s *FileService) SweepStale(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.repo.ListStale(ctx, cutoff)
	if err != nil {
		return 0, classify(ctx, "list stale", err)
	}

	removed := 0
	for _, rec := range stale {
		if err := ctx.Err(); err != nil {
			return removed, classify(ctx, "sweep", err)
		}
		ok, err := s.sweepOne(ctx, rec.ID)
		if err != nil {
			s.log.Warn(ctx, "sweep failed", "file_id", rec.ID, "status", rec.Status, "err", err)
			continue
		}
		if ok {
			removed++
		}
	}

	if removed > 0 {
		s.log.Info(ctx, "stale files swept", "count", removed)
	}
	return removed, nil
}

// sweepOne re-checks the record before touching the blob: an upload that
// was published after ListStale ran is skipped. A claimed pending record can
// no longer be published, so Upload rolls back on its own.
func (s *FileService) sweepOne(ctx context.Context, id string) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.repo.ClaimStale(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := s.blobs.Delete(ctx, id); err != nil {
		return false, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RunJanitor calls SweepStale every interval with a cutoff of maxAge ago,
// until ctx is done.
func (s *FileService) RunJanitor(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepStale(ctx, s.now().Add(-maxAge)); err != nil && !errors.Is(err, common.ErrCancelled) {
				s.log.Error(ctx, "janitor sweep failed", "err", err)
			}
		}
	}
}
