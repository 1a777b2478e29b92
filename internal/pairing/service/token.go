package service

import (
	"context"
	"errors"
	"time"

	"github.com/slidetab/slidetab/internal/pairing/domain"
	"github.com/slidetab/slidetab/internal/pairing/store"
	"github.com/slidetab/slidetab/pkg/cryptox"
	"github.com/slidetab/slidetab/pkg/httpx"
	"github.com/slidetab/slidetab/pkg/idx"
	"github.com/slidetab/slidetab/pkg/jwtx"
	"github.com/slidetab/slidetab/pkg/slogx"
)

var (
	ErrInvalidToken = errors.New("invalid_token")

	// ErrTokenRevoked aliases the httpx sentinel so the authn middleware
	// reports revocation under its own wire code instead of a generic
	// verification failure.
	ErrTokenRevoked = httpx.ErrTokenRevoked
)

// TokenService mints, validates, refreshes and revokes device tokens.
// Every issued token has a server-side record keyed by its jti claim, so
// revocation takes effect on the very next call with no propagation delay.
type TokenService struct {
	KeyManager *jwtx.KeyManager
	Store      store.Store
	Issuer     string
	TokenTTL   time.Duration
}

func nowUTC() time.Time { return time.Now().UTC() }

func (s *TokenService) ttl() time.Duration {
	if s.TokenTTL <= 0 {
		return jwtx.DefaultDeviceTokenTTL
	}
	return s.TokenTTL
}

// Issue mints a signed device token for (userID, deviceID) and records it
// via st. Pass a store.Tx when issuance must be atomic with other writes.
// deviceName is display-only and rides on the record for the device view.
func (s *TokenService) Issue(ctx context.Context, st store.Store, userID, deviceID, deviceName string) (domain.TokenGrant, error) {
	now := nowUTC()
	ttl := s.ttl()
	id := idx.New().String()

	claims := jwtx.NewDeviceClaims(userID, deviceID, id, ttl, s.Issuer, now)
	signed, err := s.KeyManager.GetSigner().Sign(claims)
	if err != nil {
		return domain.TokenGrant{}, err
	}

	record := domain.DeviceToken{
		ID:         id,
		UserID:     userID,
		DeviceID:   deviceID,
		DeviceName: deviceName,
		TokenHash:  cryptox.FingerprintToken(signed),
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := st.DeviceTokens().CreateDeviceToken(ctx, record); err != nil {
		return domain.TokenGrant{}, err
	}

	return domain.TokenGrant{
		DeviceToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   ttl,
	}, nil
}

// ValidateToken implements httpx.TokenValidator. Signature and expiry are
// checked offline; the store lookup adds the revocation check.
func (s *TokenService) ValidateToken(ctx context.Context, raw string) (httpx.TokenInfo, error) {
	claims, err := s.KeyManager.Verifier.Verify(raw)
	if err != nil {
		return httpx.TokenInfo{}, err
	}

	rec, err := s.Store.DeviceTokens().GetDeviceTokenByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return httpx.TokenInfo{}, ErrInvalidToken
		}
		return httpx.TokenInfo{}, err
	}

	if rec.Revoked {
		return httpx.TokenInfo{}, ErrTokenRevoked
	}
	if rec.DeviceID != claims.DeviceID || rec.UserID != claims.Subject {
		return httpx.TokenInfo{}, ErrInvalidToken
	}

	return httpx.TokenInfo{
		UserID:   claims.Subject,
		DeviceID: claims.DeviceID,
		TokenID:  claims.ID,
	}, nil
}

// Refresh rotates the token behind tokenID: the old record is revoked and
// a fresh token issued in the same transaction, so a crash between the two
// steps never leaves a device with zero valid tokens.
func (s *TokenService) Refresh(ctx context.Context, deviceID, tokenID string) (domain.TokenGrant, error) {
	l := slogx.FromContext(ctx)

	var grant domain.TokenGrant
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		rec, err := tx.DeviceTokens().GetDeviceTokenByID(ctx, tokenID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		if rec.Revoked {
			return ErrTokenRevoked
		}
		if rec.DeviceID != deviceID {
			return ErrInvalidToken
		}
		if !nowUTC().Before(rec.ExpiresAt) {
			return ErrInvalidToken
		}

		grant, err = s.Issue(ctx, tx, rec.UserID, rec.DeviceID, rec.DeviceName)
		if err != nil {
			return err
		}

		return tx.DeviceTokens().RevokeDeviceToken(ctx, rec.ID)
	})
	if err != nil {
		return domain.TokenGrant{}, err
	}

	l.Info("device token refreshed", "device_id", deviceID)
	return grant, nil
}

// Revoke invalidates a single token record.
func (s *TokenService) Revoke(ctx context.Context, tokenID string) error {
	err := s.Store.DeviceTokens().RevokeDeviceToken(ctx, tokenID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidToken
	}
	return err
}

// Unlink revokes every live token a device holds. The device is back to
// square one and must run the pairing ceremony again.
func (s *TokenService) Unlink(ctx context.Context, deviceID string) error {
	l := slogx.FromContext(ctx)

	if err := s.Store.DeviceTokens().RevokeAllDeviceTokens(ctx, deviceID); err != nil {
		return err
	}

	l.Info("device unlinked", "device_id", deviceID)
	return nil
}

// Status returns the authenticated device view for tokenID.
func (s *TokenService) Status(ctx context.Context, tokenID string) (domain.DeviceStatus, error) {
	rec, err := s.Store.DeviceTokens().GetDeviceTokenByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.DeviceStatus{}, ErrInvalidToken
		}
		return domain.DeviceStatus{}, err
	}

	return domain.DeviceStatus{
		DeviceID:   rec.DeviceID,
		DeviceName: rec.DeviceName,
		UserID:     rec.UserID,
		PairedAt:   rec.CreatedAt,
		ExpiresAt:  rec.ExpiresAt,
	}, nil
}
