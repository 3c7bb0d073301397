package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
	auditUseCase "github.com/allisson/docvault/internal/audit/usecase"
	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	cryptoService "github.com/allisson/docvault/internal/crypto/service"
	cryptoUseCase "github.com/allisson/docvault/internal/crypto/usecase"
	documentDomain "github.com/allisson/docvault/internal/documents/domain"
	apperrors "github.com/allisson/docvault/internal/errors"
	"github.com/allisson/docvault/internal/storage"
)

type migrationOutcome int

const (
	outcomeMigrated migrationOutcome = iota
	outcomeSkipped
	outcomeDryRun
)

type migrationUseCase struct {
	documentRepo DocumentRepository
	blobs        storage.BlobStore
	engine       cryptoService.EnvelopeService
	masterKeys   cryptoUseCase.MasterKeyUseCase
	auditUseCase auditUseCase.AuditUseCase
	cfg          Config
	logger       *slog.Logger
	now          func() time.Time
}

// MigrateLegacyBatch upgrades up to Limit legacy documents. The ciphertext is written under
// a fresh storage key first and the row is switched over with a single conditional update,
// so readers see either the legacy or the envelope form, never a mix. Scan verdicts carry
// over because the plaintext is unchanged.
func (m *migrationUseCase) MigrateLegacyBatch(
	ctx context.Context,
	input documentDomain.MigrateInput,
) (*documentDomain.MigrateResult, error) {
	if input.Limit < 0 {
		return nil, documentDomain.ErrInvalidLimit
	}
	if input.Limit == 0 {
		input.Limit = m.cfg.MigrationBatchSize
	}
	if input.MaxBytes <= 0 {
		input.MaxBytes = m.cfg.MigrationMaxBytes
	}
	deleteLegacy := m.cfg.MigrationDeleteLegacy
	if input.DeleteLegacy != nil {
		deleteLegacy = *input.DeleteLegacy
	}

	var masterKey *cryptoDomain.MasterKey
	if !input.DryRun {
		key, err := activeKey(ctx, m.masterKeys)
		if err != nil {
			return nil, err
		}
		masterKey = key
	}

	docs, err := m.documentRepo.ListLegacy(ctx, input.AfterID, input.Limit)
	if err != nil {
		return nil, err
	}

	result := &documentDomain.MigrateResult{DryRun: input.DryRun, LastID: input.AfterID}
	var errs *multierror.Error
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
		result.Scanned++
		result.LastID = doc.ID

		outcome, err := m.migrate(ctx, doc, masterKey, input, deleteLegacy)
		switch {
		case err != nil:
			result.Failed++
			errs = multierror.Append(errs, apperrors.Wrapf(err, "migrate document %s", doc.ID))
		case outcome == outcomeMigrated:
			result.Migrated++
		case outcome == outcomeSkipped:
			result.Skipped++
		}
	}

	if errs.ErrorOrNil() != nil {
		m.logger.Error("legacy migration finished with errors",
			slog.Int("failed", result.Failed),
			slog.Any("error", errs.ErrorOrNil()),
		)
	}
	m.logger.Info("legacy migration batch finished",
		slog.Bool("dry_run", result.DryRun),
		slog.Int("scanned", result.Scanned),
		slog.Int("migrated", result.Migrated),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
	)

	payload := map[string]any{
		"limit":     input.Limit,
		"max_bytes": input.MaxBytes,
		"dry_run":   result.DryRun,
		"scanned":   result.Scanned,
		"migrated":  result.Migrated,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	}
	if masterKey != nil {
		payload["master_key_id"] = masterKey.ID
	}
	_, err = m.auditUseCase.Append(ctx, &auditDomain.AppendInput{
		StreamKey: auditDomain.StreamMigration,
		Action:    auditDomain.ActionMigrationBatch,
		Payload:   payload,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *migrationUseCase) migrate(
	ctx context.Context,
	doc *documentDomain.Document,
	masterKey *cryptoDomain.MasterKey,
	input documentDomain.MigrateInput,
	deleteLegacy bool,
) (migrationOutcome, error) {
	size, err := m.blobs.Size(ctx, doc.StorageKey)
	if err != nil {
		return 0, err
	}
	if input.MaxBytes > 0 && size > input.MaxBytes {
		m.logger.Warn("legacy document exceeds migration size limit",
			slog.String("doc_id", doc.ID.String()),
			slog.Int64("size_bytes", size),
			slog.Int64("max_bytes", input.MaxBytes),
		)
		return outcomeSkipped, nil
	}
	if input.DryRun {
		return outcomeDryRun, nil
	}

	plaintext, err := m.blobs.Get(ctx, doc.StorageKey, input.MaxBytes)
	if apperrors.Is(err, storage.ErrObjectTooLarge) {
		// Grew between the stat and the read.
		return outcomeSkipped, nil
	}
	if err != nil {
		return 0, err
	}

	s, err := seal(m.engine, plaintext, masterKey, m.cfg.Algorithm)
	if err != nil {
		return 0, err
	}
	newKey, err := documentDomain.BlobKey(doc.ID)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to generate storage key")
	}
	if err := m.blobs.Put(ctx, newKey, s.ciphertext, doc.ContentType); err != nil {
		return 0, err
	}

	legacyKey := doc.StorageKey
	upgraded := *doc
	upgraded.StorageKey = newKey
	upgraded.EncryptionVersion = documentDomain.EncryptionEnvelope
	upgraded.Algorithm = m.cfg.Algorithm
	upgraded.Wrap = s.wrap
	upgraded.ContentIV = s.iv
	upgraded.SizeBytes = int64(len(plaintext))

	swapped, err := m.documentRepo.SwapToEnvelope(ctx, &upgraded, legacyKey, m.now().UTC())
	if err != nil || !swapped {
		m.discard(ctx, newKey)
		if err != nil {
			return 0, err
		}
		m.logger.Info("legacy document changed during migration",
			slog.String("doc_id", doc.ID.String()),
		)
		return outcomeSkipped, nil
	}

	if deleteLegacy {
		m.discard(ctx, legacyKey)
	}

	_, err = m.auditUseCase.Append(ctx, &auditDomain.AppendInput{
		StreamKey: auditDomain.DocumentStream(doc.ID),
		Action:    auditDomain.ActionDocumentMigrated,
		Subject:   doc.ID.String(),
		Payload: map[string]any{
			"master_key_id":  masterKey.ID,
			"algorithm":      string(upgraded.Algorithm),
			"legacy_deleted": deleteLegacy,
		},
	})
	if err != nil {
		m.logger.Error("failed to audit document migration",
			slog.String("doc_id", doc.ID.String()),
			slog.Any("error", err),
		)
	}
	return outcomeMigrated, nil
}

// discard deletes a blob that is no longer referenced, logging failures.
func (m *migrationUseCase) discard(ctx context.Context, key string) {
	if err := m.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		m.logger.Error("failed to delete blob", slog.String("storage_key", key), slog.Any("error", err))
	}
}

// NewMigrationUseCase creates a new MigrationUseCase.
func NewMigrationUseCase(
	documentRepo DocumentRepository,
	blobs storage.BlobStore,
	engine cryptoService.EnvelopeService,
	masterKeys cryptoUseCase.MasterKeyUseCase,
	auditUseCase auditUseCase.AuditUseCase,
	cfg Config,
	logger *slog.Logger,
) MigrationUseCase {
	return &migrationUseCase{
		documentRepo: documentRepo,
		blobs:        blobs,
		engine:       engine,
		masterKeys:   masterKeys,
		auditUseCase: auditUseCase,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}
