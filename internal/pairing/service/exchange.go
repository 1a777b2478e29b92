package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/slidetab/slidetab/internal/pairing/domain"
	"github.com/slidetab/slidetab/internal/pairing/store"
	"github.com/slidetab/slidetab/pkg/cryptox"
	"github.com/slidetab/slidetab/pkg/slogx"
)

var (
	// ErrNotReady means the code exists and is still valid but nobody has
	// approved it yet. Callers keep polling.
	ErrNotReady = errors.New("not_ready")

	// ErrNotLinked means the code cannot be exchanged by this device:
	// it never existed, belongs to another device, or was already spent.
	ErrNotLinked = errors.New("not_linked")
)

// DefaultExchangeGrace is how long after consumption a duplicate exchange
// for the same (device, code) pair replays the original grant. Sized to
// roughly two poll intervals so a response lost in transit can be retried
// without restarting the pairing ceremony.
const DefaultExchangeGrace = 10 * time.Second

// ExchangeService turns an approved pairing code into a device token.
// Consumption and issuance happen in one transaction so a code can never
// yield two distinct tokens.
type ExchangeService struct {
	Store       store.Store
	Tokens      *TokenService
	GraceWindow time.Duration
}

// Exchange redeems code for deviceID. The error taxonomy is deliberately
// coarse towards strangers: anything a polling device shouldn't learn
// about (foreign codes, spent codes) collapses into ErrNotLinked.
func (s *ExchangeService) Exchange(ctx context.Context, deviceID, code string) (domain.TokenGrant, error) {
	l := slogx.FromContext(ctx)
	now := nowUTC()

	grace := s.GraceWindow
	if grace <= 0 {
		grace = DefaultExchangeGrace
	}

	deviceID = strings.TrimSpace(deviceID)
	code = normalizeCode(code)
	if deviceID == "" || code == "" {
		return domain.TokenGrant{}, ErrNotLinked
	}
	codeHash := cryptox.FingerprintToken(code)

	var grant domain.TokenGrant
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		reg, err := tx.Registrations().GetRegistrationByCodeHash(ctx, codeHash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotLinked
			}
			return err
		}

		if reg.DeviceID != deviceID {
			return ErrNotLinked
		}

		// A consumed code replays its original grant briefly, covering a
		// device that sent a second poll before the first response
		// arrived. Checked before expiry: the replay window may outlive
		// the code itself.
		if reg.Consumed() {
			if now.Sub(*reg.ConsumedAt) <= grace && reg.IssuedToken != "" && reg.IssuedExpiresAt != nil {
				grant = domain.TokenGrant{
					DeviceToken: reg.IssuedToken,
					TokenType:   "Bearer",
					ExpiresIn:   reg.IssuedExpiresAt.Sub(now),
				}
				return nil
			}
			return ErrNotLinked
		}

		if reg.Expired(now) {
			return ErrCodeExpired
		}
		if !reg.Linked {
			return ErrNotReady
		}

		// A re-pairing device invalidates whatever tokens it held before.
		if err := tx.DeviceTokens().RevokeAllDeviceTokens(ctx, reg.DeviceID); err != nil {
			return err
		}

		grant, err = s.Tokens.Issue(ctx, tx, reg.UserID, reg.DeviceID, reg.DeviceName)
		if err != nil {
			return err
		}

		return tx.Registrations().ConsumeRegistration(ctx, reg.ID, grant.DeviceToken, now.Add(grant.ExpiresIn))
	})
	if err != nil {
		return domain.TokenGrant{}, err
	}

	l.Info("pairing code exchanged", "device_id", deviceID)
	return grant, nil
}
