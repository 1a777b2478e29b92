package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/slidetab/slidetab/internal/pairing/domain"
	"github.com/slidetab/slidetab/internal/pairing/store"
)

type registrationsRepo struct {
	q querier
}

const regColumns = `id, device_id, device_name, code_hash, linked, user_id,
	expires_at, consumed_at, issued_token, issued_expires_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (domain.PairingRegistration, error) {
	var (
		reg             domain.PairingRegistration
		consumedAt      sql.NullTime
		issuedExpiresAt sql.NullTime
	)

	err := row.Scan(
		&reg.ID,
		&reg.DeviceID,
		&reg.DeviceName,
		&reg.CodeHash,
		&reg.Linked,
		&reg.UserID,
		&reg.ExpiresAt,
		&consumedAt,
		&reg.IssuedToken,
		&issuedExpiresAt,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
	if err != nil {
		return domain.PairingRegistration{}, err
	}

	reg.ConsumedAt = mapNullTimePtr(consumedAt)
	reg.IssuedExpiresAt = mapNullTimePtr(issuedExpiresAt)
	return reg, nil
}

func (r *registrationsRepo) CreateRegistration(ctx context.Context, reg domain.PairingRegistration) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO pairing_registrations (`+regColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.ID,
		reg.DeviceID,
		reg.DeviceName,
		reg.CodeHash,
		reg.Linked,
		reg.UserID,
		reg.ExpiresAt,
		mapOptionalTime(reg.ConsumedAt),
		reg.IssuedToken,
		mapOptionalTime(reg.IssuedExpiresAt),
		reg.CreatedAt,
		reg.UpdatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *registrationsRepo) GetRegistrationByCodeHash(ctx context.Context, hash string) (domain.PairingRegistration, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+regColumns+`
		FROM pairing_registrations
		WHERE code_hash = ?`, hash)

	reg, err := scanRegistration(row)
	if err != nil {
		return domain.PairingRegistration{}, mapNotFound(err)
	}
	return reg, nil
}

func (r *registrationsRepo) GetRegistrationByID(ctx context.Context, id string) (domain.PairingRegistration, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+regColumns+`
		FROM pairing_registrations
		WHERE id = ?`, id)

	reg, err := scanRegistration(row)
	if err != nil {
		return domain.PairingRegistration{}, mapNotFound(err)
	}
	return reg, nil
}

func (r *registrationsRepo) LinkRegistration(ctx context.Context, id, userID string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE pairing_registrations
		SET linked = 1, user_id = ?, updated_at = ?
		WHERE id = ?`,
		userID, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *registrationsRepo) ConsumeRegistration(ctx context.Context, id, issuedToken string, issuedExpiresAt time.Time) error {
	now := time.Now().UTC()

	// The consumed_at guard makes consumption first-wins even outside a
	// transaction.
	res, err := r.q.ExecContext(ctx, `
		UPDATE pairing_registrations
		SET consumed_at = ?, issued_token = ?, issued_expires_at = ?, updated_at = ?
		WHERE id = ? AND consumed_at IS NULL`,
		now, issuedToken, issuedExpiresAt, now, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *registrationsRepo) DeleteExpiredRegistrations(ctx context.Context) error {
	// Keep a minute of slack past expiry so consumed rows stay replayable
	// for the duplicate-exchange grace period.
	cutoff := time.Now().UTC().Add(-time.Minute)

	_, err := r.q.ExecContext(ctx, `
		DELETE FROM pairing_registrations
		WHERE expires_at < ?`, cutoff)
	return err
}
