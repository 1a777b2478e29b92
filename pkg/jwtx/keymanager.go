package jwtx

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/slidetab/slidetab/pkg/cryptox"
)

// KeyManager holds the ephemeral signing keys for one service instance.
// Keys live only in memory: every restart mints fresh keys and invalidates
// outstanding tokens. That is acceptable for hour-scale device tokens,
// since clients fall back to re-pairing when refresh fails.
type KeyManager struct {
	Verifier Verifier
	KeySet   *KeySet

	mu      sync.RWMutex
	signers []Signer
}

// KeyManagerOptions configures ephemeral key generation.
type KeyManagerOptions struct {
	// Issuer is the issuer claim (iss) that will be stamped into and
	// validated on tokens. Required.
	Issuer string

	// NumKeys is how many signing keys to generate. Multiple keys spread
	// signing load and make kid guessing pointless. Defaults to 3,
	// capped at 10.
	NumKeys int
}

// NewEphemeralKeyManager generates NumKeys Ed25519 keypairs and wires them
// into a KeySet plus a Verifier.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	numKeys := opts.NumKeys
	if numKeys <= 0 {
		numKeys = 3
	}
	if numKeys > 10 {
		numKeys = 10
	}

	keyset := NewKeySet()
	signers := make([]Signer, 0, numKeys)

	for i := 0; i < numKeys; i++ {
		kid, err := generateKeyID()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate key ID: %w", err)
		}

		pemBytes, err := GenerateEd25519Key()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate key %d: %w", i+1, err)
		}

		signer, err := NewSignerEdDSA(kid, pemBytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to load key %d: %w", i+1, err)
		}

		if err := keyset.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: failed to add key %d to keyset: %w", i+1, err)
		}
		signers = append(signers, signer)
	}

	return &KeyManager{
		Verifier: NewVerifierEdDSA(keyset, opts.Issuer),
		KeySet:   keyset,
		signers:  signers,
	}, nil
}

// GetSigner returns a randomly selected signer from the available keys.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if len(km.signers) == 0 {
		return nil
	}
	if len(km.signers) == 1 {
		return km.signers[0]
	}
	return km.signers[rand.IntN(len(km.signers))]
}

// NumSigners returns the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// IsReady returns true if the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	return km.KeySet.IsReady()
}

// generateKeyID creates a random key identifier using cryptographic entropy.
func generateKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("slidetab-%s", token), nil
}
