package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"bridgeus/app/logging"
	"bridgeus/app/repositories"
	"bridgeus/app/services"
)

// Helper methods for consistent response handling

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, r *http.Request, message string, status int) {
	if status >= http.StatusInternalServerError {
		logging.WithRequestID(r.Context(), logging.FromContext(r.Context())).
			Error("request failed", "method", r.Method, "path", r.URL.Path, "error", message)
	}
	sendJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service and repository errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidPost), errors.Is(err, services.ErrInvalidReply):
		return http.StatusBadRequest
	case errors.Is(err, repositories.ErrNotFound),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrSessionClosed):
		return http.StatusNotFound
	case errors.Is(err, repositories.ErrDuplicateID), errors.Is(err, services.ErrStoreFull):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func sendServiceError(w http.ResponseWriter, r *http.Request, prefix string, err error) {
	sendError(w, r, prefix+": "+err.Error(), statusFor(err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
