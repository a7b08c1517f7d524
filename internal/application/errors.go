package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when a slot was taken between query and booking.
	// Callers are expected to re-query availability and retry.
	ErrConflict = errors.New("application: slot no longer available")
	// ErrAlreadyExists is returned when a uniquely identified resource is created twice.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned for failed authentication attempts.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a session token is past its validity window.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session token was explicitly revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// InvariantError reports an operation that would break a stored invariant,
// rejected before any mutation takes place.
type InvariantError struct {
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// invariantErrorf builds an InvariantError with a fixed message.
func invariantError(message string) *InvariantError {
	return &InvariantError{Message: message}
}
