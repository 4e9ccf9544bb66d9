package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrBadCredentials is returned for unknown usernames, wrong passwords
	// and non-active accounts alike. Callers must not reveal which case
	// occurred; the distinction lives only in server-side logs.
	ErrBadCredentials = errors.New("auth: invalid username or password")

	// ErrInvalidToken covers every token-validation failure. The wrapped
	// variants below stay distinguishable for diagnostics but collapse to
	// the same unauthenticated outcome for clients.
	ErrInvalidToken = errors.New("auth: invalid token")

	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrTokenSignature = fmt.Errorf("%w: bad signature", ErrInvalidToken)
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)

	ErrForbidden    = errors.New("auth: forbidden")
	ErrNotFound     = errors.New("auth: not found")
	ErrInvalidInput = errors.New("auth: invalid input")
)

// ConflictError reports which unique field collided during registration.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("auth: %s is already in use", e.Field)
}

// ValidationError carries per-field constraint violations.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "auth: validation failed"
}
