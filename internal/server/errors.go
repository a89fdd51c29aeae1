package server

import (
	"encoding/json"
	"net/http"

	"github.com/tjfontaine/hookgen/internal/domain"
)

type errorEnvelope struct {
	Error *domain.APIError `json:"error"`
}

// WriteError writes err as {"error":{"type","message"}} with the status for
// its type. The underlying cause goes to the request log only.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := domain.AsAPIError(err)
	AddError(r.Context(), err)
	AddLogField(r.Context(), "error_type", string(apiErr.Type))

	if apiErr.Type == domain.ErrorTypeMethodNotAllowed && w.Header().Get("Allow") == "" {
		w.Header().Set("Allow", http.MethodPost)
	}
	WriteJSON(w, apiErr.HTTPStatusCode(), errorEnvelope{Error: apiErr})
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
