package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a domain error kind onto a response status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStateConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError logs err once and writes the JSON error body. Internal errors are
// not echoed to the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "method", r.Method, "path", routeLabel(r), "error", err)
		msg = "internal error"
	} else {
		logger.Info("Request rejected", "method", r.Method, "path", routeLabel(r), "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
