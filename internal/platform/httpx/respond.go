// Package httpx provides the uniform JSON response envelope and the mapping
// from domain errors to HTTP statuses.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the response shape shared by every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ListData nests paginated results inside the envelope's data field.
type ListData struct {
	Items any `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// OK sends a success envelope with the given status code.
func OK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

// Created sends a 201 success envelope.
func Created(w http.ResponseWriter, data any) {
	OK(w, http.StatusCreated, data)
}

// Message sends a success envelope carrying only a message.
func Message(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: msg})
}

// Fail sends a failure envelope with the given status code.
func Fail(w http.ResponseWriter, status int, errMsg string) {
	writeJSON(w, status, Envelope{Success: false, Error: errMsg})
}

// DecodeJSON decodes the request body into target.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
