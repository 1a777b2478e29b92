package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/slidetab/slidetab/pkg/pairsdk"
)

// maxBodyBytes caps request bodies. Pairing requests are tiny; anything
// bigger is abuse.
const maxBodyBytes = 16 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeJSON parses and validates a JSON request body into dst. On failure
// it writes the error response itself and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		pairsdk.ErrInvalidJSONBody.WriteError(w)
		return false
	}

	if err := validate.Struct(dst); err != nil {
		pairsdk.ErrInvalidRequest.WriteError(w)
		return false
	}

	return true
}
