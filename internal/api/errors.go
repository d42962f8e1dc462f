package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"solana-mev-lab/internal/storage"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// APIError is the body of an error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: APIError{Code: code, Message: message}})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondStoreError maps storage errors to HTTP status codes.
func (s *Server) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "resource not found")
	case errors.Is(err, storage.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
	default:
		s.log.WithError(err).WithField("path", r.URL.Path).Error("Store query failed")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "an internal server error occurred")
	}
}

func respondUnavailable(w http.ResponseWriter, what string) {
	respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, what+" store not configured")
}
