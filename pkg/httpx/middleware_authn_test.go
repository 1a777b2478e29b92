package httpx_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slidetab/slidetab/pkg/httpx"
	"github.com/slidetab/slidetab/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	info httpx.TokenInfo
	err  error
}

func (s stubValidator) ValidateToken(_ context.Context, _ string) (httpx.TokenInfo, error) {
	return s.info, s.err
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestAuthnMiddleware(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-User", httpx.UserIDFromCtx(r.Context()))
		w.Header().Set("X-Device", httpx.DeviceIDFromCtx(r.Context()))
		w.Header().Set("X-Token", httpx.TokenIDFromCtx(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	t.Run("rejects missing header", func(t *testing.T) {
		h := httpx.AuthnMiddleware(stubValidator{})(echo)

		req := httptest.NewRequest(http.MethodGet, "/v1/device", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "missing bearer token")
		require.Equal(t, "missing_token", decodeErrorCode(t, rec))
	})

	t.Run("rejects non-bearer scheme", func(t *testing.T) {
		h := httpx.AuthnMiddleware(stubValidator{})(echo)

		req := httptest.NewRequest(http.MethodGet, "/v1/device", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "missing_token", decodeErrorCode(t, rec))
	})

	// Each rejection reason gets its own wire code: a client silently
	// refreshes an expired token but must re-pair after revocation.
	t.Run("distinct reason codes", func(t *testing.T) {
		cases := []struct {
			name string
			err  error
			code string
		}{
			{"expired", jwtx.ErrExpired, "expired"},
			{"bad signature", jwtx.ErrInvalidSig, "bad_signature"},
			{"unknown kid", jwtx.ErrUnknownKID, "bad_signature"},
			{"malformed", jwtx.ErrMalformed, "malformed"},
			{"revoked", httpx.ErrTokenRevoked, "token_revoked"},
			{"unclassified", errors.New("store offline"), "invalid_token"},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				h := httpx.AuthnMiddleware(stubValidator{err: tc.err})(echo)

				req := httptest.NewRequest(http.MethodGet, "/v1/device", nil)
				req.Header.Set("Authorization", "Bearer some-token")
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)

				require.Equal(t, http.StatusUnauthorized, rec.Code)
				require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
				require.Equal(t, tc.code, decodeErrorCode(t, rec))
			})
		}
	})

	t.Run("injects identity into context", func(t *testing.T) {
		h := httpx.AuthnMiddleware(stubValidator{
			info: httpx.TokenInfo{UserID: "user-1", DeviceID: "dev-1", TokenID: "jti-1"},
		})(echo)

		req := httptest.NewRequest(http.MethodGet, "/v1/device", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "user-1", rec.Header().Get("X-User"))
		require.Equal(t, "dev-1", rec.Header().Get("X-Device"))
		require.Equal(t, "jti-1", rec.Header().Get("X-Token"))
	})
}
