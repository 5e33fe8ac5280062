// Package cryptox holds the password based key derivation and the
// authenticated cipher used to protect uploaded documents.
package cryptox

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/examvault/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// Supported KDF algorithm identifiers as stored next to every file record.
const (
	KDFPBKDF2SHA256 = "pbkdf2-sha256"
	KDFArgon2id     = "argon2id"
)

// ErrInvalidKDFParams is returned for unusable derivation parameters.
var ErrInvalidKDFParams = errors.New("invalid kdf parameters")

// KDFParams records how a file key was derived, so that the policy for new
// uploads can change without breaking files stored under an older one.
//
// For pbkdf2-sha256 only Iterations is used. For argon2id Iterations is the
// time cost, MemoryKiB the memory cost and Parallelism the lane count.
type KDFParams struct {
	Algorithm   string `json:"algorithm"`
	Iterations  uint32 `json:"iterations"`
	MemoryKiB   uint32 `json:"memory_kib,omitempty"`
	Parallelism uint8  `json:"parallelism,omitempty"`
	KeyLen      uint32 `json:"key_len"`
}

// DefaultKDFParams returns the policy applied to new uploads:
// PBKDF2-HMAC-SHA256 with 100,000 iterations producing an AES-256 key.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Algorithm:  KDFPBKDF2SHA256,
		Iterations: common.KDFIterations,
		KeyLen:     common.KeySize,
	}
}

// Validate rejects parameter sets that DeriveKey cannot honour.
func (p KDFParams) Validate() error {
	if p.KeyLen != common.KeySize {
		return fmt.Errorf("%w: key length must be %d, got %d", ErrInvalidKDFParams, common.KeySize, p.KeyLen)
	}
	if p.Iterations == 0 {
		return fmt.Errorf("%w: iterations must be positive", ErrInvalidKDFParams)
	}
	switch p.Algorithm {
	case KDFPBKDF2SHA256:
		return nil
	case KDFArgon2id:
		if p.MemoryKiB == 0 || p.Parallelism == 0 {
			return fmt.Errorf("%w: argon2id needs memory and parallelism", ErrInvalidKDFParams)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown algorithm %q", ErrInvalidKDFParams, p.Algorithm)
	}
}

// DeriveKey turns secret and salt into a KeyLen-byte key. Identical inputs
// always give the identical key. The caller owns the result and should wipe it.
func DeriveKey(secret, salt []byte, p KDFParams) ([]byte, error) {
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", ErrInvalidKDFParams)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	switch p.Algorithm {
	case KDFArgon2id:
		return argon2.IDKey(secret, salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLen), nil
	default:
		return pbkdf2.Key(secret, salt, int(p.Iterations), int(p.KeyLen), sha256.New), nil
	}
}

// NewSalt returns a fresh random KDF salt.
func NewSalt() []byte {
	return common.GenerateRandByteArray(common.SaltSize)
}
