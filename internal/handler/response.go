package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors. Every
// error response from the API has the same shape:
//
//	{"error": "not_found", "message": "board not found with id abc123"}
//
// so the frontend always knows what fields to expect, regardless of whether
// it's a 400, 403, 404, or 500.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mlecanu/ilconto/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body — once Encode starts
// writing, header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent — all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code.
//
// This is the only place domain errors meet HTTP. The service layer returns
// typed apperror values; errors.Is walks the wrap chain to find which
// sentinel applies:
//
//	validation / password mismatch → 400
//	forbidden / invalid hash / already activated → 403
//	not found → 404
//	conflict (already member, email taken) → 409
//	anything else, including storage failures → 500
//
// The 403s follow the original access rules: a replayed or tampered
// activation link is a permission problem from the client's point of view,
// and saying no more than "denied" avoids turning the activation endpoint
// into an oracle for which identity IDs exist in which state.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError

	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"
		message := appErr.Message

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrPasswordMismatch):
			status = http.StatusBadRequest
			errorType = "password_mismatch"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrInvalidHash):
			status = http.StatusForbidden
			errorType = "invalid_hash"
		case errors.Is(err, apperror.ErrAlreadyActivated):
			status = http.StatusForbidden
			errorType = "already_activated"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrStorage):
			// Keep the storage detail out of the response body.
			message = "An internal error occurred"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: message,
		})
		return
	}

	// Unknown error — generic 500. The raw message might contain SQL or file
	// paths; never expose it to clients.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
