package http

import (
	"errors"
	"net/http"

	"github.com/slidetab/slidetab/internal/pairing/service"
	"github.com/slidetab/slidetab/pkg/httpx"
	"github.com/slidetab/slidetab/pkg/pairsdk"
	"github.com/slidetab/slidetab/pkg/slogx"
)

// DeviceHandler serves GET /v1/device: who am I paired as, and until when.
type DeviceHandler struct {
	Tokens *service.TokenService
}

func (h *DeviceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	status, err := h.Tokens.Status(ctx, httpx.TokenIDFromCtx(ctx))
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			pairsdk.ErrInvalidToken.WriteError(w)
			return
		}
		log.Error("device status failed", "err", err)
		pairsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pairsdk.DeviceResponse{
		DeviceID:       status.DeviceID,
		DeviceName:     status.DeviceName,
		UserID:         status.UserID,
		PairedAt:       status.PairedAt,
		TokenExpiresAt: status.ExpiresAt,
	})
}
