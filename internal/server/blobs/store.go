// Package blobs stores ciphertext payloads keyed by file id. Backends hold
// opaque bytes only; nothing here ever sees a key or plaintext.
package blobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
)

// ErrNotFound is returned by Open for an unknown key.
var ErrNotFound = errors.New("blob not found")

// ErrInvalidKey rejects keys that could escape the store namespace.
var ErrInvalidKey = errors.New("invalid blob key")

type Store interface {
	// Put stores data under key, replacing any previous blob.
	Put(ctx context.Context, key string, data []byte) error
	// Open returns a reader for the blob or ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob. A missing blob is not an error.
	Delete(ctx context.Context, key string) error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{2,127}$`)

func validateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
