package cryptox_test

import (
	"strings"
	"testing"

	"github.com/slidetab/slidetab/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	t.Run("produces unique URL-safe tokens", func(t *testing.T) {
		a, err := cryptox.GenerateToken(cryptox.TokenSize256)
		require.NoError(t, err)
		b, err := cryptox.GenerateToken(cryptox.TokenSize256)
		require.NoError(t, err)

		require.NotEqual(t, a, b)
		require.NotContains(t, a, "+")
		require.NotContains(t, a, "/")
		require.NotContains(t, a, "=")
	})

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		_, err := cryptox.GenerateToken(0)
		require.Error(t, err)
		_, err = cryptox.GenerateToken(-1)
		require.Error(t, err)
	})
}

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	fp1 := cryptox.FingerprintToken("some-token")
	fp2 := cryptox.FingerprintToken("some-token")
	fp3 := cryptox.FingerprintToken("other-token")

	require.Equal(t, fp1, fp2, "fingerprints must be deterministic for lookup")
	require.NotEqual(t, fp1, fp3)
	require.Len(t, fp1, 43) // base64url SHA-256, no padding
}

func TestGeneratePairingCode(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for range 100 {
		code, err := cryptox.GeneratePairingCode()
		require.NoError(t, err)
		require.Len(t, code, cryptox.PairingCodeLength)

		// No ambiguous characters a human could mistype.
		for _, c := range "0O1ILU" {
			require.False(t, strings.ContainsRune(code, c), "code %q contains ambiguous %q", code, c)
		}

		seen[code] = struct{}{}
	}
	require.Len(t, seen, 100, "codes must not repeat")
}
