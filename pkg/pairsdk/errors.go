package pairsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/slidetab/slidetab/pkg/httpx"
)

// Error codes shared between the service and the SDK.
const (
	ErrorCodeInvalidRequest  = "invalid_request"
	ErrorCodeUnauthenticated = "unauthenticated"
	ErrorCodeInvalidCode     = "invalid_code"
	ErrorCodeCodeExpired     = "code_expired"
	ErrorCodeCodeConsumed    = "code_consumed"
	ErrorCodeAlreadyLinked   = "already_linked"
	ErrorCodeNotReady        = "not_ready"
	ErrorCodeNotLinked       = "not_linked"
	ErrorCodeMissingToken    = "missing_token"
	ErrorCodeTokenExpired    = "expired"
	ErrorCodeBadSignature    = "bad_signature"
	ErrorCodeMalformedToken  = "malformed"
	ErrorCodeInvalidToken    = "invalid_token"
	ErrorCodeTokenRevoked    = "token_revoked"
	ErrorCodeRateLimited     = "rate_limit_exceeded"
	ErrorCodeServerError     = "server_error"
)

// PairingError is the wire error format of the pairing service. It
// implements the error interface and is used both by the server (to write
// HTTP responses) and by the SDK client (to represent errors).
type PairingError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine-readable error code (e.g., "not_ready")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *PairingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is makes errors.Is match on the error code, so a predefined sentinel
// matches the same code parsed off the wire regardless of description.
func (e *PairingError) Is(target error) bool {
	var pe *PairingError
	if !errors.As(target, &pe) {
		return false
	}
	return e.Code == pe.Code
}

// WriteError writes this PairingError to an HTTP response writer.
func (e *PairingError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

// Predefined errors. Handlers write these; the SDK compares against them
// with errors.Is.
var (
	ErrInvalidRequest = &PairingError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidJSONBody = &PairingError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "invalid JSON body",
	}

	ErrUnauthenticated = &PairingError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnauthenticated,
		Description: "the identity provider did not accept the credential",
	}

	// ErrInvalidCode is returned by the link endpoint for a code that
	// does not match any registration.
	ErrInvalidCode = &PairingError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeInvalidCode,
		Description: "unknown pairing code",
	}

	// ErrCodeExpired means the pairing code's lifetime lapsed before the
	// ceremony finished. The device must register again.
	ErrCodeExpired = &PairingError{
		StatusCode:  http.StatusGone,
		Code:        ErrorCodeCodeExpired,
		Description: "the pairing code has expired",
	}

	// ErrCodeConsumed means the code was already exchanged for a token.
	ErrCodeConsumed = &PairingError{
		StatusCode:  http.StatusGone,
		Code:        ErrorCodeCodeConsumed,
		Description: "the pairing code has already been used",
	}

	// ErrAlreadyLinked means a different user already approved this code.
	ErrAlreadyLinked = &PairingError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeAlreadyLinked,
		Description: "the pairing code was already approved by another user",
	}

	// ErrNotReady means the code is valid but not approved yet. Polling
	// devices treat this as "try again shortly".
	ErrNotReady = &PairingError{
		StatusCode:  http.StatusTooEarly,
		Code:        ErrorCodeNotReady,
		Description: "the pairing code has not been approved yet",
	}

	// ErrNotLinked means the code cannot be exchanged by this device.
	ErrNotLinked = &PairingError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotLinked,
		Description: "no exchangeable pairing code for this device",
	}

	// ErrMissingToken means no bearer token was presented at all.
	ErrMissingToken = &PairingError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeMissingToken,
		Description: "missing bearer token",
	}

	// ErrTokenExpired means the device token's lifetime lapsed. A refresh
	// cannot resurrect it; the device must pair again.
	ErrTokenExpired = &PairingError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTokenExpired,
		Description: "the device token has expired",
	}

	// ErrBadSignature means the token does not verify against any known
	// signing key.
	ErrBadSignature = &PairingError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeBadSignature,
		Description: "the device token signature does not verify",
	}

	// ErrMalformedToken means the presented credential is not a token at
	// all.
	ErrMalformedToken = &PairingError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeMalformedToken,
		Description: "the device token is not a valid token",
	}

	// ErrInvalidToken is the catch-all for a token rejected for a reason
	// the server does not enumerate.
	ErrInvalidToken = &PairingError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the device token is invalid",
	}

	// ErrTokenRevoked means the token was revoked server-side. Refreshing
	// will not help; the device must pair again.
	ErrTokenRevoked = &PairingError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeTokenRevoked,
		Description: "the device token has been revoked",
	}

	ErrRateLimited = &PairingError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeRateLimited,
		Description: "too many requests",
	}

	ErrServerError = &PairingError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// IsNotReady reports whether err is the retryable "keep polling" signal.
func IsNotReady(err error) bool {
	return errors.Is(err, ErrNotReady)
}

// IsRateLimited reports whether err means "back off and retry later".
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTerminal reports whether err ends the current pairing attempt for
// good. Terminal errors require restarting the ceremony from register;
// retrying the same code cannot succeed.
func IsTerminal(err error) bool {
	var pe *PairingError
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Code {
	case ErrorCodeNotLinked, ErrorCodeCodeExpired, ErrorCodeCodeConsumed,
		ErrorCodeInvalidCode, ErrorCodeAlreadyLinked, ErrorCodeTokenRevoked,
		ErrorCodeTokenExpired, ErrorCodeBadSignature, ErrorCodeMalformedToken:
		return true
	}
	return false
}

// parseErrorResponse turns a non-2xx HTTP response into a *PairingError.
// Returns nil for success responses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &PairingError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	// Fallback for non-JSON bodies, e.g. a proxy answering in the
	// service's place.
	code := ErrorCodeServerError
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		code = ErrorCodeInvalidToken
	case http.StatusTooManyRequests:
		code = ErrorCodeRateLimited
	}
	return &PairingError{
		StatusCode:  resp.StatusCode,
		Code:        code,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
