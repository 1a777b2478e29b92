package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/slidetab/slidetab/internal/pairing/domain"
	"github.com/slidetab/slidetab/internal/pairing/store"
	"github.com/slidetab/slidetab/pkg/cryptox"
	"github.com/slidetab/slidetab/pkg/idx"
	"github.com/slidetab/slidetab/pkg/slogx"
)

// codeRetries bounds how often we re-roll on a fingerprint collision with
// a live registration. Collisions are vanishingly rare; hitting the bound
// means something is broken, not unlucky.
const codeRetries = 5

var ErrCodeSpace = errors.New("code_space_exhausted")

// DefaultCodeTTL is how long a pairing code stays exchangeable. Long
// enough to read a code off one screen and approve it on another, short
// enough that an abandoned code is not worth harvesting.
const DefaultCodeTTL = 5 * time.Minute

// DefaultPollInterval is the exchange polling cadence suggested to devices.
const DefaultPollInterval = 5 * time.Second

// RegistrarService mints pairing registrations: a fresh single-use code
// bound to the requesting device.
type RegistrarService struct {
	Store        store.Store
	CodeTTL      time.Duration
	PollInterval time.Duration
}

// RegistrationGrant is what a device gets back from registration.
type RegistrationGrant struct {
	RegistrationID string
	DeviceID       string
	Code           string
	ExpiresAt      time.Time
	PollInterval   time.Duration
}

// Register creates a new pairing registration. A device re-registering
// (e.g. after its code expired unapproved) passes its existing deviceID so
// the eventual token lands on the same device identity; first-time devices
// pass "" and get a minted one.
func (s *RegistrarService) Register(ctx context.Context, deviceID, deviceName string) (RegistrationGrant, error) {
	l := slogx.FromContext(ctx)
	now := time.Now().UTC()

	codeTTL := s.CodeTTL
	if codeTTL <= 0 {
		codeTTL = DefaultCodeTTL
	}
	pollInterval := s.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		deviceID = idx.New().String()
	}

	reg := domain.PairingRegistration{
		ID:         idx.New().String(),
		DeviceID:   deviceID,
		DeviceName: strings.TrimSpace(deviceName),
		ExpiresAt:  now.Add(codeTTL),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Re-roll the code on a collision with an outstanding registration.
	for attempt := 0; attempt < codeRetries; attempt++ {
		code, err := cryptox.GeneratePairingCode()
		if err != nil {
			return RegistrationGrant{}, err
		}
		reg.CodeHash = cryptox.FingerprintToken(code)

		err = s.Store.Registrations().CreateRegistration(ctx, reg)
		if errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return RegistrationGrant{}, err
		}

		l.Info("pairing registration created",
			"registration_id", reg.ID,
			"device_id", reg.DeviceID,
			"expires_at", reg.ExpiresAt,
		)

		return RegistrationGrant{
			RegistrationID: reg.ID,
			DeviceID:       reg.DeviceID,
			Code:           code,
			ExpiresAt:      reg.ExpiresAt,
			PollInterval:   pollInterval,
		}, nil
	}

	return RegistrationGrant{}, ErrCodeSpace
}
