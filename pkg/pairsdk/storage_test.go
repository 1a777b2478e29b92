package pairsdk

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Load()
	require.ErrorIs(t, err, ErrNoCredentials)

	creds := Credentials{DeviceID: "dev-1", DeviceToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.Save(creds))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, creds, got)

	require.NoError(t, s.Clear())
	_, err = s.Load()
	require.ErrorIs(t, err, ErrNoCredentials)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds", "device.bin")
	s := NewFileStore(path, []byte("test-secret"))

	_, err := s.Load()
	require.ErrorIs(t, err, ErrNoCredentials)

	creds := Credentials{
		DeviceID:    "dev-1",
		DeviceToken: "a-device-token",
		UserID:      "user-alice",
		ExpiresAt:   time.Now().Add(time.Hour).UTC(),
	}
	require.NoError(t, s.Save(creds))

	// The token must not be recoverable from the raw file.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "a-device-token")

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, creds.DeviceToken, got.DeviceToken)
	assert.Equal(t, creds.UserID, got.UserID)
	assert.True(t, got.ExpiresAt.Equal(creds.ExpiresAt))

	require.NoError(t, s.Clear())
	_, err = s.Load()
	require.ErrorIs(t, err, ErrNoCredentials)

	// Clearing twice is fine.
	require.NoError(t, s.Clear())
}

func TestFileStoreWrongSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.bin")

	require.NoError(t, NewFileStore(path, []byte("right")).Save(Credentials{DeviceToken: "tok"}))

	_, err := NewFileStore(path, []byte("wrong")).Load()
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoCredentials, "a corrupt file is a failure, not an empty store")
}

func TestCredentialsValid(t *testing.T) {
	now := time.Now()

	assert.False(t, Credentials{}.Valid(now))
	assert.False(t, Credentials{DeviceToken: "tok", ExpiresAt: now.Add(-time.Second)}.Valid(now))
	assert.True(t, Credentials{DeviceToken: "tok", ExpiresAt: now.Add(time.Minute)}.Valid(now))
}
