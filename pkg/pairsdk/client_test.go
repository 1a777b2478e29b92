package pairsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientLink(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/pairing/link", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer user-credential", r.Header.Get("Authorization"))

		var req LinkRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "ABCD2345", req.Code)

		_ = json.NewEncoder(w).Encode(LinkResponse{DeviceID: "dev-1", UserID: "user-alice"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	link, err := NewClient(srv.URL).Link(context.Background(), "user-credential", "ABCD2345")
	require.NoError(t, err)
	require.Equal(t, "user-alice", link.UserID)
}

// Bearer rejections carry only a WWW-Authenticate header; the client
// must still surface a typed error.
func TestClientParsesBodylessRejection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/tokens/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).Refresh(context.Background(), "stale-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestClientSurfacesRateLimit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/pairing/register", func(w http.ResponseWriter, r *http.Request) {
		ErrRateLimited.WriteError(w)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).Register(context.Background(), "", "Hall Display")
	require.True(t, IsRateLimited(err))
}
