// Package httpx holds the small JSON request/response helpers shared by
// every HTTP handler in this module, in place of redefining
// writeJSON/writeError/decodeJSON in each transport package.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body written by WriteError.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DecodeJSON decodes r's body into dst, rejecting unknown fields so a
// typo in a client request fails loudly instead of being ignored.
func DecodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// WriteJSON writes payload as the JSON response body with status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError writes msg as a JSON error body with status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}
