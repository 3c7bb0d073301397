package domain

import (
	"github.com/allisson/docvault/internal/errors"
)

// Scan queue errors.
var (
	ErrJobNotFound = errors.Wrap(errors.ErrNotFound, "scan job not found")

	// ErrQueueEmpty indicates no queued job was available to claim.
	ErrQueueEmpty = errors.Wrap(errors.ErrNotFound, "no queued scan job")

	// ErrInvalidTransition indicates the job was not in the state the operation requires.
	ErrInvalidTransition = errors.Wrap(errors.ErrConflict, "invalid scan job transition")

	ErrInvalidResult = errors.Wrap(errors.ErrInvalidInput, "scan result must be clean, infected or error")

	ErrInvalidOverrideTTL = errors.Wrap(errors.ErrInvalidInput, "quarantine override ttl must be positive")
)
