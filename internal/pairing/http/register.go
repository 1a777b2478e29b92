package http

import (
	"net/http"

	"github.com/slidetab/slidetab/internal/pairing/service"
	"github.com/slidetab/slidetab/pkg/httpx"
	"github.com/slidetab/slidetab/pkg/pairsdk"
	"github.com/slidetab/slidetab/pkg/slogx"
)

// RegisterHandler serves POST /v1/pairing/register.
// Unauthenticated: a fresh-out-of-the-box device has no credential yet.
type RegisterHandler struct {
	Registrar *service.RegistrarService
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req pairsdk.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	grant, err := h.Registrar.Register(ctx, req.DeviceID, req.DeviceName)
	if err != nil {
		log.Error("pairing registration failed", "err", err)
		pairsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, pairsdk.RegisterResponse{
		RegistrationID:      grant.RegistrationID,
		DeviceID:            grant.DeviceID,
		PairingCode:         grant.Code,
		ExpiresAt:           grant.ExpiresAt,
		PollIntervalSeconds: int(grant.PollInterval.Seconds()),
	})
}
