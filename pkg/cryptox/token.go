package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (43 chars base64url).
	TokenSize256 = 32
)

// GenerateToken creates a cryptographically secure random token of the
// specified byte length, returned as a base64url-encoded string (URL-safe,
// no padding).
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token.
// This is used to store hashed tokens and pairing codes in the database,
// allowing lookup without storing the original value.
//
// The fingerprint is returned as a base64url-encoded string (43 chars).
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// PairingCodeLength is the number of characters in a pairing code. Eight
// characters of the 30-char alphabet give roughly 39 bits of entropy; the
// per-IP rate limit on the exchange endpoint is the primary guessing
// defense, not code length.
const PairingCodeLength = 8

// pairingAlphabet excludes 0/O, 1/I/L and U/V-style lookalikes so a code
// read off one screen and typed into another survives the trip.
const pairingAlphabet = "23456789ABCDEFGHJKMNPQRSTVWXYZ"

// GeneratePairingCode returns a short, human-typeable, single-use code.
// Each character is drawn uniformly from the unambiguous alphabet using
// crypto/rand.
func GeneratePairingCode() (string, error) {
	max := big.NewInt(int64(len(pairingAlphabet)))
	buf := make([]byte, PairingCodeLength)

	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate pairing code: %w", err)
		}
		buf[i] = pairingAlphabet[n.Int64()]
	}

	return string(buf), nil
}
