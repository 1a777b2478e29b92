package domain

import "time"

// PairingRegistration represents one pairing attempt by a device. The code
// itself is never stored, only its fingerprint.
type PairingRegistration struct {
	ID         string
	DeviceID   string
	DeviceName string
	CodeHash   string

	// Linked is set once an authenticated user approves the code.
	Linked bool
	UserID string

	ExpiresAt  time.Time
	ConsumedAt *time.Time

	// IssuedToken holds the signed token handed out at exchange so a
	// duplicate exchange shortly after can replay the same grant.
	IssuedToken     string
	IssuedExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the pairing code's lifetime has lapsed.
func (r PairingRegistration) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Consumed reports whether the code has already been exchanged for a token.
func (r PairingRegistration) Consumed() bool {
	return r.ConsumedAt != nil
}
