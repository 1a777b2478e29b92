package pairsdk

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairingErrorMatchesByCode(t *testing.T) {
	// A wire-parsed error carries its own description but the same code.
	wireErr := &PairingError{
		StatusCode:  425,
		Code:        ErrorCodeNotReady,
		Description: "some other phrasing",
	}

	require.ErrorIs(t, wireErr, ErrNotReady)
	require.NotErrorIs(t, wireErr, ErrNotLinked)

	// Wrapping survives errors.Is.
	wrapped := fmt.Errorf("exchange failed: %w", wireErr)
	require.ErrorIs(t, wrapped, ErrNotReady)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsNotReady(ErrNotReady))
	assert.False(t, IsNotReady(ErrNotLinked))

	assert.True(t, IsRateLimited(ErrRateLimited))
	assert.False(t, IsRateLimited(ErrNotReady))

	for _, err := range []*PairingError{ErrNotLinked, ErrCodeExpired, ErrCodeConsumed, ErrInvalidCode, ErrAlreadyLinked, ErrTokenRevoked} {
		assert.True(t, IsTerminal(err), "%s should be terminal", err.Code)
	}
	for _, err := range []*PairingError{ErrNotReady, ErrRateLimited, ErrServerError} {
		assert.False(t, IsTerminal(err), "%s should not be terminal", err.Code)
	}
	assert.False(t, IsTerminal(errors.New("plain error")))
}
