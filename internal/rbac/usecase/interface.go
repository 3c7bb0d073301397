// Package usecase implements the permission resolver and the administration of
// permission overrides.
package usecase

import (
	"context"

	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
)

// OverrideRepository persists permission overrides.
type OverrideRepository interface {
	List(ctx context.Context) ([]*rbacDomain.Override, error)

	// Fingerprint returns the row count and newest updated_at of the override table.
	Fingerprint(ctx context.Context) (rbacDomain.OverrideFingerprint, error)

	// Upsert creates or replaces the override for its role and permission.
	Upsert(ctx context.Context, override *rbacDomain.Override) error

	// Delete returns ErrOverrideNotFound when no row matched.
	Delete(ctx context.Context, role rbacDomain.Role, permission rbacDomain.Permission) error
}

// PermissionResolver decides whether a role may exercise a permission.
type PermissionResolver interface {
	// HasPermission applies the override for (role, permission) if one exists, otherwise
	// the default minimum role. Unknown permissions are always denied.
	HasPermission(ctx context.Context, role rbacDomain.Role, permission rbacDomain.Permission) (bool, error)

	// RequirePermission checks the principal carried by ctx. It returns ErrUnauthorized
	// without a principal and ErrForbidden when the permission is denied.
	RequirePermission(ctx context.Context, permission rbacDomain.Permission) error

	SetOverride(
		ctx context.Context,
		role rbacDomain.Role,
		permission rbacDomain.Permission,
		allowed bool,
	) (*rbacDomain.Override, error)

	DeleteOverride(ctx context.Context, role rbacDomain.Role, permission rbacDomain.Permission) error

	ListOverrides(ctx context.Context) ([]*rbacDomain.Override, error)

	// Invalidate drops the cached overrides so the next check reloads them.
	Invalidate()
}
