package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vatworks/api/internal/vat"
)

// errorJSON is the wire shape of every error response. Code and Field are
// only set for typed validation failures.
type errorJSON struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing useful left to do.
		return
	}
}

// writeEngineError maps engine errors onto HTTP responses. Validation errors
// become 400s carrying the machine-readable code and field; anything else is
// a 500, which indicates a bug since the engine only fails on bad input.
func writeEngineError(w http.ResponseWriter, err error) {
	var verr *vat.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorJSON{
			Error: verr.Message,
			Code:  string(verr.Code),
			Field: verr.Field,
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
}
