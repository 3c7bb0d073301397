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
)

type rotationUseCase struct {
	documentRepo DocumentRepository
	engine       cryptoService.EnvelopeService
	masterKeys   cryptoUseCase.MasterKeyUseCase
	auditUseCase auditUseCase.AuditUseCase
	cfg          Config
	logger       *slog.Logger
	now          func() time.Time
}

// RotateDocKeys re-wraps up to Limit documents from FromKeyID to ToKeyID. Each document is
// persisted with a conditional update on its wrapping key and epoch; a document changed by
// someone else in between counts as a conflict and is left for the next pass.
func (r *rotationUseCase) RotateDocKeys(
	ctx context.Context,
	input documentDomain.RotateInput,
) (*documentDomain.RotateResult, error) {
	if input.Limit < 0 {
		return nil, documentDomain.ErrInvalidLimit
	}
	if input.Limit == 0 {
		input.Limit = r.cfg.RotationBatchSize
	}

	from, err := r.masterKeys.GetByID(ctx, input.FromKeyID)
	if err != nil {
		return nil, err
	}
	to, err := r.target(ctx, input.ToKeyID)
	if err != nil {
		return nil, err
	}
	if from.ID == to.ID {
		return nil, documentDomain.ErrSameRotationKey
	}

	docs, err := r.documentRepo.ListByMasterKey(ctx, from.ID, input.AfterID, input.Limit)
	if err != nil {
		return nil, err
	}

	result := &documentDomain.RotateResult{FromKeyID: from.ID, ToKeyID: to.ID, LastID: input.AfterID}
	var errs *multierror.Error
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
		result.LastID = doc.ID

		rotated, err := r.rotate(ctx, doc, from, to)
		switch {
		case err != nil:
			result.Failed++
			errs = multierror.Append(errs, apperrors.Wrapf(err, "rotate document %s", doc.ID))
		case !rotated:
			result.Conflicts++
		default:
			result.Rotated++
			r.auditRewrap(ctx, doc, from.ID, to.ID)
		}
	}

	if errs.ErrorOrNil() != nil {
		r.logger.Error("key rotation finished with errors",
			slog.Int("failed", result.Failed),
			slog.Any("error", errs.ErrorOrNil()),
		)
	}
	r.logger.Info("key rotation batch finished",
		slog.String("from_key_id", from.ID),
		slog.String("to_key_id", to.ID),
		slog.Int("rotated", result.Rotated),
		slog.Int("failed", result.Failed),
		slog.Int("conflicts", result.Conflicts),
	)

	_, err = r.auditUseCase.Append(ctx, &auditDomain.AppendInput{
		StreamKey: auditDomain.StreamRotation,
		Action:    auditDomain.ActionRotationBatch,
		Payload: map[string]any{
			"from_key_id": from.ID,
			"to_key_id":   to.ID,
			"limit":       input.Limit,
			"rotated":     result.Rotated,
			"failed":      result.Failed,
			"conflicts":   result.Conflicts,
		},
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// target resolves the destination key, defaulting to the active one.
func (r *rotationUseCase) target(ctx context.Context, id string) (*cryptoDomain.MasterKey, error) {
	if id == "" {
		return activeKey(ctx, r.masterKeys)
	}
	key, err := r.masterKeys.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if key.Revoked {
		return nil, apperrors.Wrapf(cryptoDomain.ErrMasterKeyRevoked, "master key %s", key.ID)
	}
	return key, nil
}

func (r *rotationUseCase) rotate(
	ctx context.Context,
	doc *documentDomain.Document,
	from, to *cryptoDomain.MasterKey,
) (bool, error) {
	if doc.Wrap == nil {
		return false, apperrors.Wrapf(documentDomain.ErrMissingWrap, "document %s", doc.ID)
	}

	dataKey, err := r.engine.UnwrapDataKey(doc.Wrap, from, doc.Algorithm)
	if err != nil {
		return false, err
	}
	defer cryptoDomain.Zero(dataKey)

	wrap, err := r.engine.WrapDataKey(dataKey, to, doc.Algorithm)
	if err != nil {
		return false, err
	}

	return r.documentRepo.UpdateWrap(ctx, doc.ID, wrap, from.ID, doc.KeyEpoch, r.now().UTC())
}

func (r *rotationUseCase) auditRewrap(ctx context.Context, doc *documentDomain.Document, fromID, toID string) {
	_, err := r.auditUseCase.Append(ctx, &auditDomain.AppendInput{
		StreamKey: auditDomain.DocumentStream(doc.ID),
		Action:    auditDomain.ActionDocumentRewrapped,
		Subject:   doc.ID.String(),
		Payload: map[string]any{
			"from_key_id": fromID,
			"to_key_id":   toID,
			"key_epoch":   doc.KeyEpoch + 1,
		},
	})
	if err != nil {
		r.logger.Error("failed to audit document rewrap",
			slog.String("doc_id", doc.ID.String()),
			slog.Any("error", err),
		)
	}
}

// NewRotationUseCase creates a new RotationUseCase.
func NewRotationUseCase(
	documentRepo DocumentRepository,
	engine cryptoService.EnvelopeService,
	masterKeys cryptoUseCase.MasterKeyUseCase,
	auditUseCase auditUseCase.AuditUseCase,
	cfg Config,
	logger *slog.Logger,
) RotationUseCase {
	return &rotationUseCase{
		documentRepo: documentRepo,
		engine:       engine,
		masterKeys:   masterKeys,
		auditUseCase: auditUseCase,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}
