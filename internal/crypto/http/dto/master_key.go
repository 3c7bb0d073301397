// Package dto provides data transfer objects for the master key HTTP API.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	customValidation "github.com/allisson/docvault/internal/validation"
)

// MasterKeyActionRequest carries the operator's reason for an activation or revocation.
type MasterKeyActionRequest struct {
	Reason string `json:"reason"`
}

// Validate checks if the request is valid.
func (r *MasterKeyActionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 500),
		),
	)
}

// MasterKeyResponse represents master key state. Key material is never returned.
type MasterKeyResponse struct {
	ID            string    `json:"id"`
	Active        bool      `json:"active"`
	Revoked       bool      `json:"revoked"`
	RevokedReason string    `json:"revoked_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MapMasterKeyToResponse converts registry state to a response.
func MapMasterKeyToResponse(state *cryptoDomain.MasterKeyState) MasterKeyResponse {
	return MasterKeyResponse{
		ID:            state.ID,
		Active:        state.Active,
		Revoked:       state.Revoked,
		RevokedReason: state.RevokedReason,
		CreatedAt:     state.CreatedAt,
		UpdatedAt:     state.UpdatedAt,
	}
}

// ListMasterKeysResponse lists all registered keys.
type ListMasterKeysResponse struct {
	Data []MasterKeyResponse `json:"data"`
}

// MapMasterKeysToListResponse converts registry states to a list response.
func MapMasterKeysToListResponse(states []*cryptoDomain.MasterKeyState) ListMasterKeysResponse {
	data := make([]MasterKeyResponse, 0, len(states))
	for _, s := range states {
		data = append(data, MapMasterKeyToResponse(s))
	}
	return ListMasterKeysResponse{Data: data}
}
