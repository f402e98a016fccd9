// Package response provides helpers for sending consistent HTTP responses.
package response

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse is the structured error payload returned by the API. Error
// carries a short user-facing message; Detail is optional context.
type ErrorResponse struct {
	Error  string      `json:"error"`
	Detail interface{} `json:"detail,omitempty"`
}

// RespondJSON sends a JSON response with the given status code.
// If data is nil, only the status code is sent (useful for 204 No Content).
// Encoding errors are logged, not surfaced: the status line is already gone.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("failed to encode JSON response: %v", err)
		}
	}
}

// RespondError sends a structured error response with the given status code.
//
// Example:
//
//	response.RespondError(w, http.StatusNotFound, "资源不存在", err.Error())
func RespondError(w http.ResponseWriter, status int, message string, detail interface{}) {
	RespondJSON(w, status, ErrorResponse{
		Error:  message,
		Detail: detail,
	})
}
