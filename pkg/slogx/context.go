package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

func WithRequestID(ctx context.Context, reqID string) context.Context {
	l := FromContext(ctx)
	return WithContext(ctx, l.With("req_id", reqID))
}

// WithDevice tags the contextual logger with the device a request was
// authenticated as. Handlers downstream of token validation use this so
// every log line carries the device identity.
func WithDevice(ctx context.Context, deviceID string) context.Context {
	l := FromContext(ctx)
	return WithContext(ctx, l.With("device_id", deviceID))
}
