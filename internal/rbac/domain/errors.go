package domain

import (
	"github.com/allisson/docvault/internal/errors"
)

// RBAC errors.
var (
	ErrUnknownRole = errors.Wrap(errors.ErrInvalidInput, "unknown role")

	ErrUnknownPermission = errors.Wrap(errors.ErrInvalidInput, "unknown permission")

	ErrOverrideNotFound = errors.Wrap(errors.ErrNotFound, "permission override not found")

	// ErrOverridesDisabled indicates the deployment runs without the permission_overrides table.
	ErrOverridesDisabled = errors.Wrap(errors.ErrConfiguration, "permission overrides are disabled")
)
