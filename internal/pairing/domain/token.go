package domain

import "time"

// TokenGrant is what the exchange and refresh endpoints return the signed
// device token and how long it lives.
type TokenGrant struct {
	DeviceToken string        `json:"device_token"`
	TokenType   string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn   time.Duration `json:"expires_in"`           // seconds until expiry
}

// DeviceToken models the stored device token record in the DB. The record
// ID doubles as the token's jti claim so revocation checks are a primary
// key lookup.
type DeviceToken struct {
	ID         string
	UserID     string
	DeviceID   string
	DeviceName string // carried over from the registration at issuance
	TokenHash  string // deterministic fingerprint (base64url SHA-256)
	ExpiresAt  time.Time
	Revoked    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Active reports whether the token record is still usable.
func (t DeviceToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// DeviceStatus is the authenticated device view returned by the device
// info endpoint.
type DeviceStatus struct {
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name,omitempty"`
	UserID     string    `json:"user_id"`
	PairedAt   time.Time `json:"paired_at"`
	ExpiresAt  time.Time `json:"token_expires_at"`
}
