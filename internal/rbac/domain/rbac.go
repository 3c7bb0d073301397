// Package domain defines roles, permissions and the overrides that adjust the default
// role requirements.
//
// Roles are totally ordered viewer < admin < owner. Every permission has a default
// minimum role; an override row for a (role, permission) pair replaces that default
// for exactly that role, in either direction.
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role is a caller's role.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// Roles lists every role from lowest to highest.
var Roles = []Role{RoleViewer, RoleAdmin, RoleOwner}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r ranks at or above required. Unknown roles rank below everything.
func (r Role) AtLeast(required Role) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	return rank >= roleRank[required]
}

// ParseRole returns the role named s.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

// Permission names a gated operation.
type Permission string

const (
	PermDocumentsRead      Permission = "documents.read"
	PermDocumentsWrite     Permission = "documents.write"
	PermDocumentsMigrate   Permission = "documents.migrate"
	PermAuditRead          Permission = "audit.read"
	PermAuditVerify        Permission = "audit.verify"
	PermKeysRead           Permission = "keys.read"
	PermKeysRotate         Permission = "keys.rotate"
	PermKeysManage         Permission = "keys.manage"
	PermScanHeal           Permission = "scan.heal"
	PermScanReport         Permission = "scan.report"
	PermQuarantineOverride Permission = "quarantine.override"
	PermPermissionsManage  Permission = "permissions.manage"
	PermBillingManage      Permission = "billing.manage"
)

// DefaultMinRole is the minimum role each permission requires absent an override.
var DefaultMinRole = map[Permission]Role{
	PermDocumentsRead:      RoleViewer,
	PermDocumentsWrite:     RoleAdmin,
	PermDocumentsMigrate:   RoleAdmin,
	PermAuditRead:          RoleAdmin,
	PermAuditVerify:        RoleAdmin,
	PermKeysRead:           RoleAdmin,
	PermKeysRotate:         RoleAdmin,
	PermScanHeal:           RoleAdmin,
	PermScanReport:         RoleAdmin,
	PermKeysManage:         RoleOwner,
	PermQuarantineOverride: RoleOwner,
	PermPermissionsManage:  RoleOwner,
	PermBillingManage:      RoleOwner,
}

// Known reports whether p is a defined permission.
func (p Permission) Known() bool {
	_, ok := DefaultMinRole[p]
	return ok
}

// ParsePermission returns the permission named s.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !p.Known() {
		return "", ErrUnknownPermission
	}
	return p, nil
}

// Override replaces the default decision for one role and permission.
type Override struct {
	Role       Role
	Permission Permission
	Allowed    bool
	UpdatedAt  time.Time
}

// OverrideFingerprint summarizes the override table. Any insert, update or delete
// changes it, whichever process made the write.
type OverrideFingerprint struct {
	Count       int64
	LastUpdated time.Time
}

func (f OverrideFingerprint) Equal(other OverrideFingerprint) bool {
	return f.Count == other.Count && f.LastUpdated.Equal(other.LastUpdated)
}

// Principal is the authenticated caller of a request.
type Principal struct {
	ClientID uuid.UUID
	Name     string
	Role     Role
}

// Actor is the audit identity of the principal.
func (p *Principal) Actor() string {
	return "client:" + p.ClientID.String()
}

type principalKey struct{}

// WithPrincipal stores the authenticated principal in the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
