package domain

import (
	"github.com/allisson/docvault/internal/errors"
)

// Audit ledger errors.
var (
	// ErrStreamNotFound indicates no event was ever appended to the stream.
	ErrStreamNotFound = errors.Wrap(errors.ErrNotFound, "audit stream not found")

	// ErrInvalidStreamKey indicates a malformed stream key.
	ErrInvalidStreamKey = errors.Wrap(errors.ErrInvalidInput, "invalid audit stream key")

	// ErrInvalidAction indicates an empty action.
	ErrInvalidAction = errors.Wrap(errors.ErrInvalidInput, "audit action is required")

	// ErrChainBroken indicates a stream failed hash chain verification.
	ErrChainBroken = errors.Wrap(errors.ErrIntegrity, "audit chain verification failed")
)
