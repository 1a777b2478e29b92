package http

import (
	"net/http"

	"github.com/slidetab/slidetab/pkg/httpx"
	"github.com/slidetab/slidetab/pkg/jwtx"
)

// JWKSHandler publishes the public signing keys so other services can
// verify device tokens without calling back here.
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, keys.PublicJWKS())
	}
}
