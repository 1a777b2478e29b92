package http

import (
	"errors"
	"net/http"

	"github.com/slidetab/slidetab/internal/pairing/service"
	"github.com/slidetab/slidetab/pkg/httpx"
	"github.com/slidetab/slidetab/pkg/pairsdk"
	"github.com/slidetab/slidetab/pkg/slogx"
)

// RefreshHandler serves POST /v1/tokens/refresh. The bearer token being
// refreshed is the one on the request; no body is needed.
type RefreshHandler struct {
	Tokens *service.TokenService
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	grant, err := h.Tokens.Refresh(ctx, httpx.DeviceIDFromCtx(ctx), httpx.TokenIDFromCtx(ctx))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenRevoked):
			pairsdk.ErrTokenRevoked.WriteError(w)
		case errors.Is(err, service.ErrInvalidToken):
			pairsdk.ErrInvalidToken.WriteError(w)
		default:
			log.Error("token refresh failed", "err", err)
			pairsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pairsdk.TokenResponse{
		DeviceToken: grant.DeviceToken,
		TokenType:   grant.TokenType,
		ExpiresIn:   int(grant.ExpiresIn.Seconds()),
	})
}
