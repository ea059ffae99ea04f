// Package handlers contains the HTTP handler groups for the bulletin
// service's JSON API: authentication, notice management, and the media
// library.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// maxJSONBody caps request bodies on JSON endpoints.
const maxJSONBody = 1 << 20 // 1 MiB

// errorResponse is the uniform error envelope returned by every endpoint.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON serializes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

// writeError writes the uniform error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a JSON request body into dst, rejecting unknown fields
// and oversized bodies.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Reject trailing garbage after the first JSON value.
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
