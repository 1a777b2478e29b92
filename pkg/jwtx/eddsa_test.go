package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/slidetab/slidetab/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *jwtx.KeyManager {
	t.Helper()

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:  "test-issuer",
		NumKeys: 1,
	})
	require.NoError(t, err)
	return km
}

func TestSignAndVerifyDeviceToken(t *testing.T) {
	t.Parallel()

	km := newTestManager(t)
	now := time.Now()

	claims := jwtx.NewDeviceClaims("user-1", "device-1", "jti-1", time.Hour, "test-issuer", now)
	token, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	got, err := km.Verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "device-1", got.DeviceID)
	require.Equal(t, "jti-1", got.ID)
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	km := newTestManager(t)

	claims := jwtx.NewDeviceClaims("user-1", "device-1", "jti-1", -time.Minute, "test-issuer", time.Now())
	token, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	_, err = km.Verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerifyRejectsTampering(t *testing.T) {
	t.Parallel()

	km := newTestManager(t)

	claims := jwtx.NewDeviceClaims("user-1", "device-1", "jti-1", time.Hour, "test-issuer", time.Now())
	token, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	// Flip a character in the signature segment.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = km.Verifier.Verify(tampered)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	t.Parallel()

	km := newTestManager(t)
	other := newTestManager(t)

	claims := jwtx.NewDeviceClaims("user-1", "device-1", "jti-1", time.Hour, "test-issuer", time.Now())
	token, err := other.GetSigner().Sign(claims)
	require.NoError(t, err)

	// The kid isn't in our KeySet.
	_, err = km.Verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrUnknownKID)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	km := newTestManager(t)

	claims := jwtx.NewDeviceClaims("user-1", "device-1", "jti-1", time.Hour, "another-issuer", time.Now())
	token, err := km.GetSigner().Sign(claims)
	require.NoError(t, err)

	_, err = km.Verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	km := newTestManager(t)

	_, err := km.Verifier.Verify("not-a-jwt")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}

func TestKeyManagerDefaults(t *testing.T) {
	t.Parallel()

	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Issuer: "x"})
	require.NoError(t, err)
	require.Equal(t, 3, km.NumSigners())
	require.True(t, km.IsReady())

	_, err = jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{})
	require.Error(t, err, "issuer is required")
}
