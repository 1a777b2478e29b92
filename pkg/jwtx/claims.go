package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultDeviceTokenTTL is the default lifetime for device bearer tokens.
// Devices refresh well before this; re-pairing is the recovery path when
// they miss the window.
const DefaultDeviceTokenTTL = time.Hour

// Claims are the device-token claims. The subject is the user identity as
// handed to us by the identity provider (an opaque string we never
// interpret), and "did" binds the token to the paired device.
type Claims struct {
	jwt.RegisteredClaims

	// DeviceID the token was issued to. Immutable across refreshes.
	DeviceID string `json:"did,omitempty"`
}

// NewDeviceClaims builds minimally-correct claims for a device token.
// jti must be the store-side token record ID so revocation checks can
// find the row without fingerprinting the whole token.
func NewDeviceClaims(
	userID, deviceID, jti string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		DeviceID: deviceID,
	}
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf).
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}
