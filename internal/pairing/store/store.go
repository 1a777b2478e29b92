package store

import (
	"context"
	"errors"
	"time"

	"github.com/slidetab/slidetab/internal/pairing/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// now) implement this. Sub-repositories keep concerns tidy and testable,
// and having them as explicit methods stops people from accidentally
// nesting transactions.
type Store interface {
	Registrations() Registrations
	DeviceTokens() DeviceTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., code
	// consumption plus token issuance). The caller MUST call Commit() or
	// Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Registrations interface {
	// CreateRegistration stores a freshly minted pairing registration.
	CreateRegistration(ctx context.Context, reg domain.PairingRegistration) error

	// GetRegistrationByCodeHash fetches a registration by the code's
	// fingerprint. Expired rows are still returned so callers can tell
	// "expired" apart from "never existed".
	GetRegistrationByCodeHash(ctx context.Context, hash string) (domain.PairingRegistration, error)

	// GetRegistrationByID fetches a registration by its record ID.
	GetRegistrationByID(ctx context.Context, id string) (domain.PairingRegistration, error)

	// LinkRegistration binds an approving user to a registration.
	LinkRegistration(ctx context.Context, id, userID string) error

	// ConsumeRegistration marks a registration as exchanged and records
	// the issued token for duplicate-exchange replay.
	ConsumeRegistration(ctx context.Context, id, issuedToken string, issuedExpiresAt time.Time) error

	// DeleteExpiredRegistrations removes registrations whose codes can no
	// longer be exchanged (housekeeping).
	DeleteExpiredRegistrations(ctx context.Context) error
}

type DeviceTokens interface {
	// CreateDeviceToken stores a new device token record.
	CreateDeviceToken(ctx context.Context, t domain.DeviceToken) error

	// GetDeviceTokenByID returns the record behind a token's jti claim.
	GetDeviceTokenByID(ctx context.Context, id string) (domain.DeviceToken, error)

	// GetDeviceTokenByHash returns the record by the raw token's fingerprint.
	GetDeviceTokenByHash(ctx context.Context, hash string) (domain.DeviceToken, error)

	// RevokeDeviceToken flips revoked=1 for a single token.
	RevokeDeviceToken(ctx context.Context, id string) error

	// RevokeAllDeviceTokens bulk-revokes every live token for a device
	// (unlink, or re-pair of an already-paired device).
	RevokeAllDeviceTokens(ctx context.Context, deviceID string) error

	// DeleteExpiredDeviceTokens is housekeeping for long-dead records.
	DeleteExpiredDeviceTokens(ctx context.Context) error
}
