// Package dto provides data transfer objects for the client management API.
package dto

import (
	validation "github.com/jellydator/validation"

	authDomain "github.com/allisson/docvault/internal/auth/domain"
	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
	customValidation "github.com/allisson/docvault/internal/validation"
)

// CreateClientRequest contains the parameters for creating a client.
type CreateClientRequest struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active"`
}

// Validate checks if the create client request is valid.
func (r *CreateClientRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.Role,
			validation.Required,
			customValidation.OneOf(string(rbacDomain.RoleViewer), string(rbacDomain.RoleAdmin), string(rbacDomain.RoleOwner)),
		),
	)
}

// ToInput converts the request. Clients are active unless is_active is false.
func (r *CreateClientRequest) ToInput() *authDomain.CreateClientInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &authDomain.CreateClientInput{
		Name:     r.Name,
		Role:     rbacDomain.Role(r.Role),
		IsActive: active,
	}
}
