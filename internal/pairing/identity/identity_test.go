package identity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slidetab/slidetab/internal/pairing/identity"
	"github.com/stretchr/testify/require"
)

func TestHTTPResolverResolve(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-credential" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"user-42","name":"Alice"}`))
	}))
	defer srv.Close()

	r := identity.NewHTTPResolver(srv.URL)

	t.Run("resolves a valid credential", func(t *testing.T) {
		user, err := r.Resolve(context.Background(), "good-credential")
		require.NoError(t, err)
		require.Equal(t, "user-42", user.ID)
		require.Equal(t, "Alice", user.DisplayName)
	})

	t.Run("rejects a bad credential", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "bad-credential")
		require.ErrorIs(t, err, identity.ErrUnauthenticated)
	})

	t.Run("rejects an empty credential without a round trip", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "")
		require.ErrorIs(t, err, identity.ErrUnauthenticated)
	})
}

func TestHTTPResolverRejectsMissingSub(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"ghost"}`))
	}))
	defer srv.Close()

	r := identity.NewHTTPResolver(srv.URL)
	_, err := r.Resolve(context.Background(), "token")
	require.Error(t, err)
	require.NotErrorIs(t, err, identity.ErrUnauthenticated)
}
