// Package usecase implements document ingestion and download, master key rotation over
// stored documents, and migration of legacy documents into the envelope scheme.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	documentDomain "github.com/allisson/docvault/internal/documents/domain"
)

// DocumentRepository persists document metadata. All methods are transaction-aware
// through the context.
type DocumentRepository interface {
	Create(ctx context.Context, doc *documentDomain.Document) error

	Get(ctx context.Context, id uuid.UUID) (*documentDomain.Document, error)

	// List returns documents ordered by id.
	List(ctx context.Context, offset, limit int) ([]*documentDomain.Document, error)

	// ListByMasterKey returns up to limit envelope documents wrapped under masterKeyID with
	// id > afterID, ordered by id.
	ListByMasterKey(
		ctx context.Context,
		masterKeyID string,
		afterID uuid.UUID,
		limit int,
	) ([]*documentDomain.Document, error)

	// UpdateWrap replaces the wrap if the document is still wrapped under expectedKeyID at
	// expectedEpoch, and increments the epoch. It reports whether the row matched.
	UpdateWrap(
		ctx context.Context,
		id uuid.UUID,
		wrap *cryptoDomain.WrappedDataKey,
		expectedKeyID string,
		expectedEpoch int64,
		now time.Time,
	) (bool, error)

	// ListLegacy returns up to limit legacy documents with id > afterID, ordered by id.
	ListLegacy(ctx context.Context, afterID uuid.UUID, limit int) ([]*documentDomain.Document, error)

	// SwapToEnvelope atomically switches a legacy document to the envelope fields of doc,
	// provided it is still legacy and still points at legacyStorageKey.
	SwapToEnvelope(
		ctx context.Context,
		doc *documentDomain.Document,
		legacyStorageKey string,
		now time.Time,
	) (bool, error)
}

// DocumentUseCase stores and serves documents.
type DocumentUseCase interface {
	// Upload encrypts content under a fresh data key, stores it and enqueues a scan.
	Upload(ctx context.Context, input *documentDomain.UploadInput) (*documentDomain.Document, error)

	Get(ctx context.Context, id uuid.UUID) (*documentDomain.Document, error)

	List(ctx context.Context, offset, limit int) ([]*documentDomain.Document, error)

	// Open returns the plaintext of a servable document.
	Open(ctx context.Context, id uuid.UUID) (*documentDomain.Document, []byte, error)

	// ReadContent returns the plaintext without the servability check. It is meant for
	// scanner workers, which must read content before it is known to be clean.
	ReadContent(ctx context.Context, id uuid.UUID) (*documentDomain.Document, []byte, error)

	// GrantQuarantineOverride makes a non-clean document servable until ttl elapses.
	GrantQuarantineOverride(ctx context.Context, id uuid.UUID, reason string, ttl time.Duration) error
}

// RotationUseCase re-wraps document data keys from a retiring master key to a new one.
type RotationUseCase interface {
	RotateDocKeys(ctx context.Context, input documentDomain.RotateInput) (*documentDomain.RotateResult, error)
}

// MigrationUseCase upgrades legacy documents into the envelope scheme.
type MigrationUseCase interface {
	MigrateLegacyBatch(ctx context.Context, input documentDomain.MigrateInput) (*documentDomain.MigrateResult, error)
}
