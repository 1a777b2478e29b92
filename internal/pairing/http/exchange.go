package http

import (
	"errors"
	"net/http"

	"github.com/slidetab/slidetab/internal/pairing/service"
	"github.com/slidetab/slidetab/pkg/httpx"
	"github.com/slidetab/slidetab/pkg/pairsdk"
	"github.com/slidetab/slidetab/pkg/slogx"
)

// ExchangeHandler serves POST /v1/pairing/exchange, the endpoint devices
// poll while waiting for approval.
type ExchangeHandler struct {
	Exchange *service.ExchangeService
}

func (h *ExchangeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req pairsdk.ExchangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	grant, err := h.Exchange.Exchange(ctx, req.DeviceID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotReady):
			pairsdk.ErrNotReady.WriteError(w)
		case errors.Is(err, service.ErrNotLinked):
			pairsdk.ErrNotLinked.WriteError(w)
		case errors.Is(err, service.ErrCodeExpired):
			pairsdk.ErrCodeExpired.WriteError(w)
		default:
			log.Error("pairing exchange failed", "err", err)
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
