// Package errors holds the domain error sentinels shared by every docvault module.
// Use cases wrap them with context; handlers and commands classify them with Code.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate key or lost CAS).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request lacks valid authentication credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the authenticated caller doesn't have permission.
	ErrForbidden = errors.New("forbidden")

	// ErrLocked indicates the resource is temporarily unavailable (e.g., quarantined content).
	ErrLocked = errors.New("locked")

	// ErrIntegrity indicates authenticated data failed verification: an AEAD tag mismatch
	// or a broken audit hash chain. Never recoverable for the affected item.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrConfiguration indicates missing or invalid configuration, such as absent master keys.
	ErrConfiguration = errors.New("configuration error")
)

// Error codes reported to API clients. They are part of the wire contract.
const (
	CodeNotFound      = "not_found"
	CodeConflict      = "conflict"
	CodeInvalidInput  = "invalid_input"
	CodeUnauthorized  = "unauthorized"
	CodeForbidden     = "forbidden"
	CodeLocked        = "locked"
	CodeIntegrity     = "integrity_error"
	CodeConfiguration = "configuration_error"
	CodeInternal      = "internal_error"
)

// classification is checked in order. Integrity comes before conflict so an integrity
// failure that also wraps a conflict is never reported as retryable.
var classification = []struct {
	sentinel error
	code     string
}{
	{ErrIntegrity, CodeIntegrity},
	{ErrConfiguration, CodeConfiguration},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrForbidden, CodeForbidden},
	{ErrNotFound, CodeNotFound},
	{ErrLocked, CodeLocked},
	{ErrConflict, CodeConflict},
	{ErrInvalidInput, CodeInvalidInput},
}

// Code returns the wire code of the first domain sentinel found in err's tree, or
// CodeInternal when err carries none. A nil error has no code.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range classification {
		if errors.Is(err, c.sentinel) {
			return c.code
		}
	}
	return CodeInternal
}

// Wrap adds context to err while keeping the sentinel reachable through errors.Is.
// It returns nil for a nil err.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
