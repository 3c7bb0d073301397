package domain

import (
	"github.com/allisson/docvault/internal/errors"
)

// Client errors.
var (
	// ErrClientNotFound indicates a client with the specified ID was not found.
	ErrClientNotFound = errors.Wrap(errors.ErrNotFound, "client not found")

	// ErrInvalidCredentials covers unknown ids and wrong secrets alike.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid client credentials")

	// ErrClientInactive indicates a deactivated client presented valid credentials.
	ErrClientInactive = errors.Wrap(errors.ErrForbidden, "client is inactive")

	ErrInvalidClientName = errors.Wrap(errors.ErrInvalidInput, "client name is required")
)
