package pairsdk

import "time"

// RegisterRequest starts a pairing attempt. DeviceID is empty on a
// device's first pairing; a re-pairing device sends the ID it was minted
// so its token history stays attached to one identity.
type RegisterRequest struct {
	DeviceID   string `json:"device_id,omitempty"`
	DeviceName string `json:"device_name" validate:"required,max=120"`
}

// RegisterResponse hands the device its pairing code and polling contract.
type RegisterResponse struct {
	RegistrationID string `json:"registration_id"`
	DeviceID       string `json:"device_id"`
	PairingCode    string `json:"pairing_code"`

	// ExpiresAt is when the code stops being exchangeable.
	ExpiresAt time.Time `json:"expires_at"`

	// PollIntervalSeconds is the suggested exchange polling cadence.
	PollIntervalSeconds int `json:"poll_interval_seconds"`
}

// LinkRequest carries the code a user typed into the approving surface.
// The user's own credential rides in the Authorization header.
type LinkRequest struct {
	Code string `json:"code" validate:"required,min=8,max=16"`
}

// LinkResponse describes what was just approved.
type LinkResponse struct {
	RegistrationID string `json:"registration_id"`
	DeviceID       string `json:"device_id"`
	DeviceName     string `json:"device_name,omitempty"`
	UserID         string `json:"user_id"`
}

// ExchangeRequest redeems an approved code for a device token.
type ExchangeRequest struct {
	DeviceID string `json:"device_id" validate:"required"`
	Code     string `json:"code" validate:"required,min=8,max=16"`
}

// TokenResponse is returned by the exchange and refresh endpoints.
type TokenResponse struct {
	DeviceToken string `json:"device_token"`
	TokenType   string `json:"token_type"` // always "Bearer"
	ExpiresIn   int    `json:"expires_in"` // seconds until expiry
}

// DeviceResponse is the authenticated device view.
type DeviceResponse struct {
	DeviceID       string    `json:"device_id"`
	DeviceName     string    `json:"device_name,omitempty"`
	UserID         string    `json:"user_id"`
	PairedAt       time.Time `json:"paired_at"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
}

// ErrorResponse is the wire form of PairingError.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`

	// Signer indicates the token signing capability status
	Signer string `json:"signer"`
}
