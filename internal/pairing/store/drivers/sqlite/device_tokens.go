package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/slidetab/slidetab/internal/pairing/domain"
	"github.com/slidetab/slidetab/internal/pairing/store"
)

type deviceTokensRepo struct {
	q querier
}

const tokenColumns = `id, user_id, device_id, device_name, token_hash, expires_at, revoked, created_at, updated_at`

func scanDeviceToken(row rowScanner) (domain.DeviceToken, error) {
	var t domain.DeviceToken
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.DeviceID,
		&t.DeviceName,
		&t.TokenHash,
		&t.ExpiresAt,
		&t.Revoked,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return domain.DeviceToken{}, err
	}
	return t, nil
}

func (r *deviceTokensRepo) CreateDeviceToken(ctx context.Context, t domain.DeviceToken) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO device_tokens (`+tokenColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.UserID,
		t.DeviceID,
		t.DeviceName,
		t.TokenHash,
		t.ExpiresAt,
		t.Revoked,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *deviceTokensRepo) GetDeviceTokenByID(ctx context.Context, id string) (domain.DeviceToken, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+tokenColumns+`
		FROM device_tokens
		WHERE id = ?`, id)

	t, err := scanDeviceToken(row)
	if err != nil {
		return domain.DeviceToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *deviceTokensRepo) GetDeviceTokenByHash(ctx context.Context, hash string) (domain.DeviceToken, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+tokenColumns+`
		FROM device_tokens
		WHERE token_hash = ?`, hash)

	t, err := scanDeviceToken(row)
	if err != nil {
		return domain.DeviceToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *deviceTokensRepo) RevokeDeviceToken(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE device_tokens
		SET revoked = 1, updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(), id)
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

func (r *deviceTokensRepo) RevokeAllDeviceTokens(ctx context.Context, deviceID string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE device_tokens
		SET revoked = 1, updated_at = ?
		WHERE device_id = ? AND revoked = 0`,
		time.Now().UTC(), deviceID)
	return err
}

func (r *deviceTokensRepo) DeleteExpiredDeviceTokens(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM device_tokens
		WHERE expires_at < ?`, time.Now().UTC())
	return err
}
