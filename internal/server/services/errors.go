package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/examvault/internal/common"
)

// classify wraps err from a store call into the service taxonomy.
// Not-found passes through; context errors become ErrCancelled; the rest is
// ErrStorage with the cause kept for server-side logs.
func classify(ctx context.Context, op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrNotFound):
		return common.ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		return fmt.Errorf("%s: %w", op, common.ErrCancelled)
	default:
		return fmt.Errorf("%s: %w: %w", op, common.ErrStorage, err)
	}
}
