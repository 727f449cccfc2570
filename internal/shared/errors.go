package shared

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnknownUser indicates a federated identity with no local account.
	ErrUnknownUser = errors.New("unknown user")
	// ErrUnauthenticated indicates the request carries no valid session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the session lacks the role or scope required.
	ErrForbidden = errors.New("forbidden")
	// ErrMaintenance indicates the deployment gate is closed.
	ErrMaintenance = errors.New("maintenance closed")
	// ErrValidation indicates a payload failed shape or field constraints.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a unique field collided at the persistence layer.
	ErrConflict = errors.New("conflict")
	// ErrNoChanges indicates an edit carried no modified field.
	ErrNoChanges = errors.New("nothing to update")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// ValidationError reports a rejected payload, optionally field by field.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// Invalid builds a ValidationError without field detail.
func Invalid(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// InvalidFields builds a ValidationError carrying per-field messages.
func InvalidFields(fields map[string]string) *ValidationError {
	return &ValidationError{Message: ErrValidation.Error(), Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ConflictError names the unique field that collided.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return ErrConflict.Error()
	}
	return ErrConflict.Error() + ": " + e.Field
}

// Unwrap lets errors.Is match ErrConflict.
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// Warning reports a side effect that failed without failing the request.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Warning codes.
const (
	WarningImageCleanup = "IMAGE_CLEANUP_FAILED"
)
