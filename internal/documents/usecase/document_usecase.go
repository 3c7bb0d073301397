package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
	auditUseCase "github.com/allisson/docvault/internal/audit/usecase"
	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	cryptoService "github.com/allisson/docvault/internal/crypto/service"
	cryptoUseCase "github.com/allisson/docvault/internal/crypto/usecase"
	"github.com/allisson/docvault/internal/database"
	documentDomain "github.com/allisson/docvault/internal/documents/domain"
	apperrors "github.com/allisson/docvault/internal/errors"
	scanDomain "github.com/allisson/docvault/internal/scan/domain"
	scanUseCase "github.com/allisson/docvault/internal/scan/usecase"
	"github.com/allisson/docvault/internal/storage"
)

// Config holds the document settings shared by ingestion, rotation and migration.
type Config struct {
	Algorithm      cryptoDomain.Algorithm
	MaxUploadBytes int64

	RotationBatchSize int

	MigrationBatchSize    int
	MigrationMaxBytes     int64
	MigrationDeleteLegacy bool
}

type documentUseCase struct {
	txManager    database.TxManager
	documentRepo DocumentRepository
	blobs        storage.BlobStore
	engine       cryptoService.EnvelopeService
	masterKeys   cryptoUseCase.MasterKeyUseCase
	scans        scanUseCase.ScanUseCase
	auditUseCase auditUseCase.AuditUseCase
	cfg          Config
	logger       *slog.Logger
	now          func() time.Time
}

// Upload seals the content under the active master key, writes the blob, then records the
// document and enqueues its scan job in one transaction. If that transaction fails the blob
// is removed again.
func (d *documentUseCase) Upload(
	ctx context.Context,
	input *documentDomain.UploadInput,
) (*documentDomain.Document, error) {
	if len(input.Content) == 0 {
		return nil, documentDomain.ErrEmptyContent
	}
	if d.cfg.MaxUploadBytes > 0 && int64(len(input.Content)) > d.cfg.MaxUploadBytes {
		return nil, documentDomain.ErrDocumentTooLarge
	}

	masterKey, err := activeKey(ctx, d.masterKeys)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate document id")
	}
	storageKey, err := documentDomain.BlobKey(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate storage key")
	}

	s, err := seal(d.engine, input.Content, masterKey, d.cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if err := d.blobs.Put(ctx, storageKey, s.ciphertext, input.ContentType); err != nil {
		return nil, err
	}

	now := d.now().UTC()
	doc := &documentDomain.Document{
		ID:                id,
		Filename:          input.Filename,
		ContentType:       input.ContentType,
		SizeBytes:         int64(len(input.Content)),
		StorageKey:        storageKey,
		EncryptionVersion: documentDomain.EncryptionEnvelope,
		ScanStatus:        scanDomain.StatusUploading,
		Algorithm:         d.cfg.Algorithm,
		Wrap:              s.wrap,
		ContentIV:         s.iv,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = d.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := d.documentRepo.Create(ctx, doc); err != nil {
			return err
		}
		job, err := d.scans.Enqueue(ctx, doc.ID, doc.StorageKey)
		if err != nil {
			return err
		}
		doc.ScanStatus = job.Status
		return nil
	})
	if err != nil {
		if delErr := d.blobs.Delete(context.WithoutCancel(ctx), storageKey); delErr != nil {
			d.logger.Error("failed to remove orphaned blob",
				slog.String("storage_key", storageKey),
				slog.Any("error", delErr),
			)
		}
		return nil, err
	}

	d.logger.Info("document ingested",
		slog.String("doc_id", doc.ID.String()),
		slog.Int64("size_bytes", doc.SizeBytes),
		slog.String("master_key_id", masterKey.ID),
	)
	_, err = d.auditUseCase.Append(ctx, &auditDomain.AppendInput{
		StreamKey: auditDomain.DocumentStream(doc.ID),
		Action:    auditDomain.ActionDocumentIngested,
		Subject:   doc.ID.String(),
		Payload: map[string]any{
			"filename":      doc.Filename,
			"content_type":  doc.ContentType,
			"size_bytes":    doc.SizeBytes,
			"algorithm":     string(doc.Algorithm),
			"master_key_id": masterKey.ID,
		},
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *documentUseCase) Get(ctx context.Context, id uuid.UUID) (*documentDomain.Document, error) {
	return d.documentRepo.Get(ctx, id)
}

func (d *documentUseCase) List(ctx context.Context, offset, limit int) ([]*documentDomain.Document, error) {
	return d.documentRepo.List(ctx, offset, limit)
}

func (d *documentUseCase) Open(ctx context.Context, id uuid.UUID) (*documentDomain.Document, []byte, error) {
	doc, err := d.documentRepo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	servable, err := d.scans.IsServable(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !servable {
		return nil, nil, apperrors.Wrapf(documentDomain.ErrDocumentNotServable, "scan status %s", doc.ScanStatus)
	}

	content, err := readPlaintext(ctx, doc, d.blobs, d.engine, d.masterKeys)
	if err != nil {
		return nil, nil, err
	}

	_, err = d.auditUseCase.Append(ctx, &auditDomain.AppendInput{
		StreamKey: auditDomain.DocumentStream(doc.ID),
		Action:    auditDomain.ActionDocumentDownloaded,
		Subject:   doc.ID.String(),
		Payload:   map[string]any{"scan_status": string(doc.ScanStatus)},
	})
	if err != nil {
		return nil, nil, err
	}
	return doc, content, nil
}

func (d *documentUseCase) ReadContent(ctx context.Context, id uuid.UUID) (*documentDomain.Document, []byte, error) {
	doc, err := d.documentRepo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	content, err := readPlaintext(ctx, doc, d.blobs, d.engine, d.masterKeys)
	if err != nil {
		return nil, nil, err
	}
	return doc, content, nil
}

func (d *documentUseCase) GrantQuarantineOverride(
	ctx context.Context,
	id uuid.UUID,
	reason string,
	ttl time.Duration,
) error {
	if _, err := d.documentRepo.Get(ctx, id); err != nil {
		return err
	}
	_, err := d.scans.GrantQuarantineOverride(ctx, id, reason, ttl, auditDomain.ActorFromContext(ctx))
	return err
}

// NewDocumentUseCase creates a new DocumentUseCase.
func NewDocumentUseCase(
	txManager database.TxManager,
	documentRepo DocumentRepository,
	blobs storage.BlobStore,
	engine cryptoService.EnvelopeService,
	masterKeys cryptoUseCase.MasterKeyUseCase,
	scans scanUseCase.ScanUseCase,
	auditUseCase auditUseCase.AuditUseCase,
	cfg Config,
	logger *slog.Logger,
) DocumentUseCase {
	return &documentUseCase{
		txManager:    txManager,
		documentRepo: documentRepo,
		blobs:        blobs,
		engine:       engine,
		masterKeys:   masterKeys,
		scans:        scans,
		auditUseCase: auditUseCase,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}
