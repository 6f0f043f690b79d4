package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// Error codes surfaced to clients.
const (
	CodeInvalidLimit     = "INVALID_LIMIT"
	CodeInvalidSortBy    = "INVALID_SORT_BY"
	CodeInvalidOrder     = "INVALID_ORDER"
	CodeInvalidPeriod    = "INVALID_PERIOD"
	CodeInvalidMinVolume = "INVALID_MIN_VOLUME"
	CodeMissingQuery     = "MISSING_QUERY"
	CodeTokenNotFound    = "TOKEN_NOT_FOUND"
	CodeInternalError    = "INTERNAL_ERROR"
)

// envelope is the uniform response shape: every reply, success or failure,
// carries it.
type envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *errorBody `json:"error,omitempty"`
	Timestamp string     `json:"timestamp"`
}

type errorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeError(w http.ResponseWriter, code, message string, status int) {
	writeJSON(w, status, envelope{
		Success:   false,
		Error:     &errorBody{Code: code, Message: message, StatusCode: status},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
