package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/examvault/internal/common"
)

// CipherAES256GCM identifies the only cipher used for stored documents.
const CipherAES256GCM = "aes-256-gcm"

// ErrAuthFailure is returned by Open when the tag does not verify: wrong key,
// wrong nonce, wrong associated data or tampered ciphertext. No plaintext is
// released in that case.
var ErrAuthFailure = errors.New("message authentication failed")

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != common.KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", common.KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with AES-256-GCM. aad is authenticated but not
// encrypted; the file service passes the file id so a ciphertext cannot be
// replayed under a different record.
func Seal(key, nonce, plaintext, aad []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", aead.NonceSize(), len(nonce))
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open authenticates and decrypts ciphertext produced by Seal. The tag is
// always checked over the whole ciphertext before anything is returned.
func Open(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", aead.NonceSize(), len(nonce))
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrAuthFailure
	}
	return plaintext, nil
}

// NewNonce returns a fresh random GCM nonce.
func NewNonce() []byte {
	return common.GenerateRandByteArray(common.NonceSize)
}
