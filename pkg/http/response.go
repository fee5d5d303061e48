package http

import (
	"encoding/json"
	"net/http"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the standard response shape: {status, message?, data?}.
// JWT and Results only appear on the routes that produce them.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	JWT     string `json:"jwt,omitempty"`
	Results int    `json:"results,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// HandlerFunc is a request handler that reports failure instead of writing it.
// The recovery middleware owns the error path: rollback plus rendering.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// WriteJSON writes an envelope with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// Encoding errors at this point cannot be reported to the client
	_ = json.NewEncoder(w).Encode(env)
}

// WriteData writes a success envelope carrying data.
func WriteData(w http.ResponseWriter, statusCode int, data any) {
	WriteJSON(w, statusCode, Envelope{Status: StatusSuccess, Data: data})
}

// WriteMessage writes a success envelope carrying only a message.
func WriteMessage(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, Envelope{Status: StatusSuccess, Message: message})
}

// WriteError writes an error envelope. Normally only the recovery middleware
// calls this.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, Envelope{Status: StatusError, Message: message})
}
