package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// SealBox encrypts small secrets at rest (device credentials persisted by the
// SDK) using XChaCha20-Poly1305. The key is derived from an arbitrary-length
// passphrase via SHA-256; this is not a password KDF, callers holding
// low-entropy passphrases should stretch them first.
type SealBox struct {
	key [32]byte
}

var ErrSealedTooShort = errors.New("cryptox: sealed data too short")

// NewSealBox derives a sealing key from the given secret.
func NewSealBox(secret []byte) *SealBox {
	return &SealBox{key: sha256.Sum256(secret)}
}

// Seal encrypts plaintext. The random nonce is prepended to the ciphertext so
// the output is self-contained.
func (b *SealBox) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(b.key[:])
	if err != nil {
		return nil, fmt.Errorf("cryptox: init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cryptox: nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal. Tampered or truncated input fails.
func (b *SealBox) Open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(b.key[:])
	if err != nil {
		return nil, fmt.Errorf("cryptox: init cipher: %w", err)
	}

	if len(sealed) < aead.NonceSize() {
		return nil, ErrSealedTooShort
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cryptox: open: %w", err)
	}

	return plaintext, nil
}
