package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/slidetab/slidetab/internal/pairing/identity"
	"github.com/slidetab/slidetab/internal/pairing/service"
	"github.com/slidetab/slidetab/pkg/httpx"
	"github.com/slidetab/slidetab/pkg/pairsdk"
	"github.com/slidetab/slidetab/pkg/slogx"
)

// LinkHandler serves POST /v1/pairing/link.
// The Authorization header carries the approving user's identity provider
// credential, not a device token.
type LinkHandler struct {
	Linking *service.LinkingService
}

func (h *LinkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	bearer := bearerToken(r)
	if bearer == "" {
		pairsdk.ErrUnauthenticated.WriteError(w)
		return
	}

	var req pairsdk.LinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Linking.Link(ctx, bearer, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrUnauthenticated):
			pairsdk.ErrUnauthenticated.WriteError(w)
		case errors.Is(err, service.ErrUnknownCode):
			pairsdk.ErrInvalidCode.WriteError(w)
		case errors.Is(err, service.ErrCodeExpired):
			pairsdk.ErrCodeExpired.WriteError(w)
		case errors.Is(err, service.ErrCodeConsumed):
			pairsdk.ErrCodeConsumed.WriteError(w)
		case errors.Is(err, service.ErrAlreadyLinked):
			pairsdk.ErrAlreadyLinked.WriteError(w)
		default:
			log.Error("pairing link failed", "err", err)
			pairsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pairsdk.LinkResponse{
		RegistrationID: res.RegistrationID,
		DeviceID:       res.DeviceID,
		DeviceName:     res.DeviceName,
		UserID:         res.UserID,
	})
}

// bearerToken extracts the raw token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
}
