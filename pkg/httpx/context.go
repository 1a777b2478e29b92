package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyDeviceID ctxKey = "device_id"
	CtxKeyTokenID  ctxKey = "token_id"
)

// UserIDFromCtx returns the authenticated user ID, or "" if the request
// was not authenticated.
func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// DeviceIDFromCtx returns the device the bearer token was issued to.
func DeviceIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyDeviceID).(string); ok {
		return v
	}
	return ""
}

// TokenIDFromCtx returns the server-side record ID (jti) of the bearer
// token used on this request. Revocation endpoints use this to revoke the
// presented token without reparsing it.
func TokenIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyTokenID).(string); ok {
		return v
	}
	return ""
}
