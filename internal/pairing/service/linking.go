package service

import (
	"context"
	"errors"
	"strings"

	"github.com/slidetab/slidetab/internal/pairing/domain"
	"github.com/slidetab/slidetab/internal/pairing/identity"
	"github.com/slidetab/slidetab/internal/pairing/store"
	"github.com/slidetab/slidetab/pkg/cryptox"
	"github.com/slidetab/slidetab/pkg/slogx"
)

var (
	ErrUnknownCode   = errors.New("invalid_code")
	ErrCodeExpired   = errors.New("code_expired")
	ErrCodeConsumed  = errors.New("code_consumed")
	ErrAlreadyLinked = errors.New("already_linked")
)

// LinkingService binds an authenticated user's approval to a pairing
// registration. The approving credential is always one the identity
// provider issued; this service never mints user identities.
type LinkingService struct {
	Store    store.Store
	Identity identity.Resolver
}

// LinkResult describes the registration a user just approved, so the
// approving surface can show what was linked.
type LinkResult struct {
	RegistrationID string
	DeviceID       string
	DeviceName     string
	UserID         string
}

// Link approves the registration behind code on behalf of the user that
// bearer resolves to. Linking the same code twice with the same user is
// idempotent; a second user is rejected so a code shoulder-surfed after
// approval cannot be rebound.
func (s *LinkingService) Link(ctx context.Context, bearer, code string) (LinkResult, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Identity.Resolve(ctx, strings.TrimSpace(bearer))
	if err != nil {
		return LinkResult{}, err
	}

	code = normalizeCode(code)
	if code == "" {
		return LinkResult{}, ErrUnknownCode
	}
	codeHash := cryptox.FingerprintToken(code)

	var result LinkResult
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		reg, err := tx.Registrations().GetRegistrationByCodeHash(ctx, codeHash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnknownCode
			}
			return err
		}

		if reg.Consumed() {
			return ErrCodeConsumed
		}
		if reg.Expired(nowUTC()) {
			return ErrCodeExpired
		}

		if reg.Linked {
			if reg.UserID == user.ID {
				result = linkResult(reg)
				return nil // idempotent re-approval
			}
			return ErrAlreadyLinked
		}

		if err := tx.Registrations().LinkRegistration(ctx, reg.ID, user.ID); err != nil {
			return err
		}

		reg.UserID = user.ID
		result = linkResult(reg)
		return nil
	})
	if err != nil {
		return LinkResult{}, err
	}

	l.Info("pairing registration linked",
		"registration_id", result.RegistrationID,
		"device_id", result.DeviceID,
		"user_id", result.UserID,
	)
	return result, nil
}

func linkResult(reg domain.PairingRegistration) LinkResult {
	return LinkResult{
		RegistrationID: reg.ID,
		DeviceID:       reg.DeviceID,
		DeviceName:     reg.DeviceName,
		UserID:         reg.UserID,
	}
}

// normalizeCode upper-cases and strips whitespace and separators so a code
// typed as "abcd-efgh" matches the minted "ABCDEFGH".
func normalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return code
}
