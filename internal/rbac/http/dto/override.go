// Package dto provides data transfer objects for the permission override API.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
	customValidation "github.com/allisson/docvault/internal/validation"
)

func roleNames() []string {
	names := make([]string, 0, len(rbacDomain.Roles))
	for _, r := range rbacDomain.Roles {
		names = append(names, string(r))
	}
	return names
}

// SetOverrideRequest creates or replaces one override.
type SetOverrideRequest struct {
	Role       string `json:"role"`
	Permission string `json:"permission"`
	Allowed    *bool  `json:"allowed"`
}

// Validate checks if the request is valid.
func (r *SetOverrideRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Role, validation.Required, customValidation.OneOf(roleNames()...)),
		validation.Field(&r.Permission, validation.Required, validation.By(func(any) error {
			if _, err := rbacDomain.ParsePermission(r.Permission); err != nil {
				return validation.NewError("validation_permission", "unknown permission")
			}
			return nil
		})),
		validation.Field(&r.Allowed, validation.NotNil),
	)
}

// OverrideResponse represents a permission override.
type OverrideResponse struct {
	Role       string    `json:"role"`
	Permission string    `json:"permission"`
	Allowed    bool      `json:"allowed"`
	Default    bool      `json:"default"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MapOverrideToResponse converts an override to a response. Default reports what the
// role would get without the override.
func MapOverrideToResponse(o *rbacDomain.Override) OverrideResponse {
	return OverrideResponse{
		Role:       string(o.Role),
		Permission: string(o.Permission),
		Allowed:    o.Allowed,
		Default:    o.Role.AtLeast(rbacDomain.DefaultMinRole[o.Permission]),
		UpdatedAt:  o.UpdatedAt,
	}
}

// ListOverridesResponse lists every override.
type ListOverridesResponse struct {
	Data []OverrideResponse `json:"data"`
}

// MapOverridesToListResponse converts overrides to a list response.
func MapOverridesToListResponse(overrides []*rbacDomain.Override) ListOverridesResponse {
	data := make([]OverrideResponse, 0, len(overrides))
	for _, o := range overrides {
		data = append(data, MapOverrideToResponse(o))
	}
	return ListOverridesResponse{Data: data}
}
