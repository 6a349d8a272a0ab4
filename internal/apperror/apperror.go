package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrConflict         = errors.New("conflict")
	ErrForbidden        = errors.New("forbidden")
	ErrAlreadyActivated = errors.New("already activated")
	ErrInvalidHash      = errors.New("invalid activation hash")
	ErrPasswordMismatch = errors.New("password mismatch")
	ErrStorage          = errors.New("storage failure")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// AlreadyExists reports a uniqueness violation on a keyed resource, e.g. two
// identities claiming the same email.
func AlreadyExists(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists with key %s", resource, key),
	}
}

// AlreadyMember reports a violation of the one-membership-per-identity-per-board
// invariant. It wraps ErrConflict so transports map it alongside AlreadyExists.
func AlreadyMember(boardID, identityID string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("identity %s is already a member of board %s", identityID, boardID),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// AlreadyActivated marks a replayed activation attempt. The activation
// endpoint is single-use: once an identity is activated, it stays terminal.
func AlreadyActivated(identityID string) *AppError {
	return &AppError{
		Err:     ErrAlreadyActivated,
		Message: fmt.Sprintf("identity %s is already activated", identityID),
	}
}

func InvalidHash() *AppError {
	return &AppError{
		Err:     ErrInvalidHash,
		Message: "activation hash does not match",
	}
}

func PasswordMismatch() *AppError {
	return &AppError{
		Err:     ErrPasswordMismatch,
		Message: "password confirmation does not match",
	}
}

// Storage wraps an unexpected persistence-layer failure so callers can
// distinguish infrastructure problems from domain outcomes.
func Storage(op string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %s: %v", ErrStorage, op, err),
		Message: fmt.Sprintf("storage failure during %s", op),
	}
}
