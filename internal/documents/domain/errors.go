package domain

import (
	"github.com/allisson/docvault/internal/errors"
)

// Document errors.
var (
	ErrDocumentNotFound = errors.Wrap(errors.ErrNotFound, "document not found")

	// ErrDocumentNotServable indicates the document has not passed malware scanning and has
	// no active quarantine override.
	ErrDocumentNotServable = errors.Wrap(errors.ErrLocked, "document is not servable")

	ErrEmptyContent = errors.Wrap(errors.ErrInvalidInput, "document content is empty")

	ErrDocumentTooLarge = errors.Wrap(errors.ErrInvalidInput, "document exceeds maximum upload size")

	// ErrSameRotationKey indicates a rotation whose source and target keys are equal.
	ErrSameRotationKey = errors.Wrap(errors.ErrInvalidInput, "rotation source and target keys are the same")

	ErrInvalidLimit = errors.Wrap(errors.ErrInvalidInput, "limit must be positive")

	// ErrActiveKeyRevoked indicates the active master key was revoked and no replacement
	// has been activated, so new wraps cannot be produced.
	ErrActiveKeyRevoked = errors.Wrap(errors.ErrConfiguration, "active master key is revoked")

	// ErrMissingWrap indicates an envelope document without wrap metadata.
	ErrMissingWrap = errors.Wrap(errors.ErrIntegrity, "envelope document has no wrapped data key")
)
