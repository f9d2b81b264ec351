// Package httputil contains shared HTTP utilities for consistent response formatting across handlers.
package httputil

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Response is the envelope every API endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Response{Success: true, Message: message, Data: data})
}

func WriteJSONError(w http.ResponseWriter, message string, status int) {
	write(w, status, Response{Success: false, Message: message})
}

// WriteJSONFailure answers with success false but a non-error status, for
// outcomes that are informational rather than faults.
func WriteJSONFailure(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Response{Success: false, Message: message, Data: data})
}

func write(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(body)
}

// UserIDHeader carries the caller's identity, set by the gateway in front of
// the API once the request is authenticated.
const UserIDHeader = "X-User-ID"

func UserID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(UserIDHeader))
	return id, id != ""
}
