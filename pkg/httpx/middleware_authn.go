package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/slidetab/slidetab/pkg/jwtx"
	"github.com/slidetab/slidetab/pkg/slogx"
)

// TokenInfo is the identity a validated bearer token carries.
type TokenInfo struct {
	UserID   string
	DeviceID string
	TokenID  string
}

// ErrTokenRevoked is returned by TokenValidator implementations for a
// token whose signature and expiry check out but which was revoked
// server-side. The middleware reports it under its own wire code so
// clients know that refreshing cannot help and only re-pairing recovers.
var ErrTokenRevoked = errors.New("token revoked")

// TokenValidator checks a bearer token end to end. Implementations verify
// the signature and expiry and then consult server-side state so a revoked
// token fails even before its expiry. Returned errors should match the
// jwtx sentinels or ErrTokenRevoked; anything else is reported as a
// generic invalid token.
type TokenValidator interface {
	ValidateToken(ctx context.Context, raw string) (TokenInfo, error)
}

// AuthnMiddleware guards an endpoint with bearer-token authentication.
// On success the token identity is injected into the request context.
// Each rejection carries a distinct reason code so clients can tell a
// token worth refreshing from one that is gone for good.
func AuthnMiddleware(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing_token", "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			info, err := v.ValidateToken(ctx, raw)
			if err != nil {
				switch {
				case errors.Is(err, jwtx.ErrExpired):
					writeBearerError(w, "expired", "the device token has expired")
				case errors.Is(err, jwtx.ErrInvalidSig), errors.Is(err, jwtx.ErrUnknownKID):
					writeBearerError(w, "bad_signature", "the device token signature does not verify")
				case errors.Is(err, jwtx.ErrMalformed):
					writeBearerError(w, "malformed", "the device token is not a valid token")
				case errors.Is(err, ErrTokenRevoked):
					writeBearerError(w, "token_revoked", "the device token has been revoked")
				default:
					log.Warn("token validation failed", "err", err)
					writeBearerError(w, "invalid_token", "token verification failed")
				}
				return
			}

			// Inject into context for downstream handlers.
			ctx = contextWithDevice(ctx, info)
			ctx = slogx.WithDevice(ctx, info.DeviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithDevice(ctx context.Context, info TokenInfo) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, info.UserID)
	ctx = context.WithValue(ctx, CtxKeyDeviceID, info.DeviceID)
	ctx = context.WithValue(ctx, CtxKeyTokenID, info.TokenID)
	return ctx
}

// writeBearerError writes an RFC 6750 WWW-Authenticate header plus a JSON
// body carrying the precise reason code.
func writeBearerError(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             code,
		"error_description": desc,
	})
}
