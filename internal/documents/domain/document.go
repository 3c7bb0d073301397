// Package domain defines stored documents and the batch operations that keep their
// encryption current.
//
// A document's content lives in the blob store. Envelope documents (version 1) hold AEAD
// ciphertext under a per-document data key, and the data key is wrapped under a master key
// and embedded in the row. Legacy documents (version 0) hold raw bytes and carry no wrap.
// KeyEpoch is incremented on every wrap change and guards rotation with optimistic
// concurrency.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	scanDomain "github.com/allisson/docvault/internal/scan/domain"
)

// EncryptionVersion identifies the storage scheme of a document.
type EncryptionVersion int

const (
	// EncryptionLegacy is raw, unencrypted content.
	EncryptionLegacy EncryptionVersion = 0
	// EncryptionEnvelope is AEAD content with a wrapped per-document data key.
	EncryptionEnvelope EncryptionVersion = 1
)

// Document is the metadata row of a stored document.
type Document struct {
	ID                uuid.UUID
	Filename          string
	ContentType       string
	SizeBytes         int64
	StorageKey        string
	EncryptionVersion EncryptionVersion
	ScanStatus        scanDomain.Status
	Algorithm         cryptoDomain.Algorithm
	Wrap              *cryptoDomain.WrappedDataKey
	ContentIV         []byte
	KeyEpoch          int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsEnvelope reports whether the document is stored under the envelope scheme.
func (d *Document) IsEnvelope() bool {
	return d.EncryptionVersion == EncryptionEnvelope
}

// MasterKeyID returns the id of the key wrapping the data key, or "" for legacy documents.
func (d *Document) MasterKeyID() string {
	if d.Wrap == nil {
		return ""
	}
	return d.Wrap.MasterKeyID
}

// BlobKey returns a fresh storage key for a content version of the document. Keys are never
// reused, so a failed swap can delete its own blob without touching the live one.
func BlobKey(docID uuid.UUID) (string, error) {
	version, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("documents/%s/%s", docID, version), nil
}

// UploadInput is a document submitted for ingestion.
type UploadInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// RotateInput bounds one rotation pass.
type RotateInput struct {
	FromKeyID string
	// ToKeyID defaults to the active master key.
	ToKeyID string
	Limit   int
	// AfterID resumes after the last document of a previous pass.
	AfterID uuid.UUID
}

// RotateResult counts the outcome of a rotation pass.
type RotateResult struct {
	FromKeyID string `json:"from_key_id"`
	ToKeyID   string `json:"to_key_id"`
	Rotated   int    `json:"rotated"`
	Failed    int    `json:"failed"`
	// Conflicts counts documents another writer changed first. They are neither rotated
	// nor failed by this pass.
	Conflicts int       `json:"conflicts"`
	LastID    uuid.UUID `json:"last_id"`
}

// Selected is the number of documents the pass looked at.
func (r *RotateResult) Selected() int {
	return r.Rotated + r.Failed + r.Conflicts
}

// MigrateInput bounds one legacy migration pass.
type MigrateInput struct {
	Limit    int
	DryRun   bool
	MaxBytes int64
	// DeleteLegacy removes the legacy blob after a successful swap. Nil uses the configured default.
	DeleteLegacy *bool
	AfterID      uuid.UUID
}

// MigrateResult counts the outcome of a migration pass.
type MigrateResult struct {
	Scanned  int  `json:"scanned"`
	Migrated int  `json:"migrated"`
	Skipped  int  `json:"skipped"`
	Failed   int  `json:"failed"`
	DryRun   bool `json:"dry_run"`
	// LastID is the cursor to pass as AfterID to continue past skipped and failed documents.
	LastID uuid.UUID `json:"last_id"`
}
