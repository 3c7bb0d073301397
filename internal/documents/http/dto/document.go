// Package dto provides data transfer objects for the document and batch HTTP API.
package dto

import (
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"
	"github.com/jellydator/validation/is"

	documentDomain "github.com/allisson/docvault/internal/documents/domain"
	customValidation "github.com/allisson/docvault/internal/validation"
)

const maxOverrideTTLMinutes = 7 * 24 * 60

// DocumentResponse represents document metadata. Wrapped key material is never exposed.
type DocumentResponse struct {
	ID                string    `json:"id"`
	Filename          string    `json:"filename"`
	ContentType       string    `json:"content_type"`
	SizeBytes         int64     `json:"size_bytes"`
	EncryptionVersion int       `json:"encryption_version"`
	ScanStatus        string    `json:"scan_status"`
	Algorithm         string    `json:"algorithm,omitempty"`
	MasterKeyID       string    `json:"master_key_id,omitempty"`
	KeyEpoch          int64     `json:"key_epoch"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// MapDocumentToResponse converts a document to a response.
func MapDocumentToResponse(doc *documentDomain.Document) DocumentResponse {
	return DocumentResponse{
		ID:                doc.ID.String(),
		Filename:          doc.Filename,
		ContentType:       doc.ContentType,
		SizeBytes:         doc.SizeBytes,
		EncryptionVersion: int(doc.EncryptionVersion),
		ScanStatus:        string(doc.ScanStatus),
		Algorithm:         string(doc.Algorithm),
		MasterKeyID:       doc.MasterKeyID(),
		KeyEpoch:          doc.KeyEpoch,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}
}

// ListDocumentsResponse is a page of documents.
type ListDocumentsResponse struct {
	Data []DocumentResponse `json:"data"`
}

// MapDocumentsToListResponse converts documents to a list response.
func MapDocumentsToListResponse(docs []*documentDomain.Document) ListDocumentsResponse {
	data := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		data = append(data, MapDocumentToResponse(doc))
	}
	return ListDocumentsResponse{Data: data}
}

// QuarantineOverrideRequest grants a time-boxed download exception.
type QuarantineOverrideRequest struct {
	Reason     string `json:"reason"`
	TTLMinutes int    `json:"ttl_minutes"`
}

// Validate checks if the request is valid.
func (r *QuarantineOverrideRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Required, customValidation.NotBlank, validation.Length(1, 500)),
		validation.Field(&r.TTLMinutes, validation.Required, validation.Min(1), validation.Max(maxOverrideTTLMinutes)),
	)
}

// TTL returns the override lifetime.
func (r *QuarantineOverrideRequest) TTL() time.Duration {
	return time.Duration(r.TTLMinutes) * time.Minute
}

// RotateRequest is the rotation batch trigger.
type RotateRequest struct {
	FromKeyID string `json:"from_key_id"`
	ToKeyID   string `json:"to_key_id"`
	Limit     int    `json:"limit"`
	AfterID   string `json:"after_id"`
}

// Validate checks if the request is valid.
func (r *RotateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.FromKeyID, validation.Required, customValidation.Identifier),
		validation.Field(&r.ToKeyID, customValidation.Identifier),
		validation.Field(&r.Limit, validation.Min(0), validation.Max(10000)),
		validation.Field(&r.AfterID, is.UUID),
	)
}

// ToInput converts the request to a rotation input. Call Validate first.
func (r *RotateRequest) ToInput() documentDomain.RotateInput {
	return documentDomain.RotateInput{
		FromKeyID: r.FromKeyID,
		ToKeyID:   r.ToKeyID,
		Limit:     r.Limit,
		AfterID:   parseCursor(r.AfterID),
	}
}

// MigrateRequest is the legacy migration batch trigger.
type MigrateRequest struct {
	Limit        int    `json:"limit"`
	DryRun       bool   `json:"dry_run"`
	MaxBytes     int64  `json:"max_bytes"`
	DeleteLegacy *bool  `json:"delete_legacy"`
	AfterID      string `json:"after_id"`
}

// Validate checks if the request is valid.
func (r *MigrateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Limit, validation.Min(0), validation.Max(10000)),
		validation.Field(&r.MaxBytes, validation.Min(int64(0))),
		validation.Field(&r.AfterID, is.UUID),
	)
}

// ToInput converts the request to a migration input. Call Validate first.
func (r *MigrateRequest) ToInput() documentDomain.MigrateInput {
	return documentDomain.MigrateInput{
		Limit:        r.Limit,
		DryRun:       r.DryRun,
		MaxBytes:     r.MaxBytes,
		DeleteLegacy: r.DeleteLegacy,
		AfterID:      parseCursor(r.AfterID),
	}
}

func parseCursor(s string) uuid.UUID {
	if s == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
