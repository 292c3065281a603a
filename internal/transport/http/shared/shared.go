// Package shared centralizes JSON envelope helpers so every vertical handler
// writes the same shapes.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "cac/pkg/domain-errors"
)

// WriteJSON writes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope. Every
// rejected operation surfaces its specific code; nothing collapses to a
// generic failure.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, dErrors.ToHTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": dErrors.MessageOf(err),
	})
}
