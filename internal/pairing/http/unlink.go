package http

import (
	"net/http"

	"github.com/slidetab/slidetab/internal/pairing/service"
	"github.com/slidetab/slidetab/pkg/httpx"
	"github.com/slidetab/slidetab/pkg/pairsdk"
	"github.com/slidetab/slidetab/pkg/slogx"
)

// UnlinkHandler serves POST /v1/pairing/unlink. Revokes every token the
// authenticated device holds; the device must pair again afterwards.
type UnlinkHandler struct {
	Tokens *service.TokenService
}

func (h *UnlinkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := h.Tokens.Unlink(ctx, httpx.DeviceIDFromCtx(ctx)); err != nil {
		log.Error("device unlink failed", "err", err)
		pairsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
