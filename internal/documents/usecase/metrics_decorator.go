package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	documentDomain "github.com/allisson/docvault/internal/documents/domain"
	apperrors "github.com/allisson/docvault/internal/errors"
	"github.com/allisson/docvault/internal/metrics"
)

const metricsDomain = "documents"

func record(ctx context.Context, m metrics.BusinessMetrics, operation string, start time.Time, status string) {
	m.RecordOperation(ctx, metricsDomain, operation, status)
	m.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// recordItems reports per-item outcomes of one batch pass.
func recordItems(ctx context.Context, m metrics.BusinessMetrics, operation string, outcomes map[string]int) {
	for outcome, count := range outcomes {
		m.RecordBatchItems(ctx, metricsDomain, operation, outcome, count)
	}
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// documentUseCaseWithMetrics decorates DocumentUseCase with metrics instrumentation.
type documentUseCaseWithMetrics struct {
	next    DocumentUseCase
	metrics metrics.BusinessMetrics
}

// NewDocumentUseCaseWithMetrics wraps a DocumentUseCase with metrics recording.
func NewDocumentUseCaseWithMetrics(useCase DocumentUseCase, m metrics.BusinessMetrics) DocumentUseCase {
	return &documentUseCaseWithMetrics{next: useCase, metrics: m}
}

func (d *documentUseCaseWithMetrics) Upload(
	ctx context.Context,
	input *documentDomain.UploadInput,
) (*documentDomain.Document, error) {
	start := time.Now()
	doc, err := d.next.Upload(ctx, input)
	record(ctx, d.metrics, "document_upload", start, statusOf(err))
	return doc, err
}

func (d *documentUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*documentDomain.Document, error) {
	start := time.Now()
	doc, err := d.next.Get(ctx, id)
	record(ctx, d.metrics, "document_get", start, statusOf(err))
	return doc, err
}

func (d *documentUseCaseWithMetrics) List(ctx context.Context, offset, limit int) ([]*documentDomain.Document, error) {
	start := time.Now()
	docs, err := d.next.List(ctx, offset, limit)
	record(ctx, d.metrics, "document_list", start, statusOf(err))
	return docs, err
}

// Open records a quarantined document as "locked".
func (d *documentUseCaseWithMetrics) Open(ctx context.Context, id uuid.UUID) (*documentDomain.Document, []byte, error) {
	start := time.Now()
	doc, content, err := d.next.Open(ctx, id)
	status := statusOf(err)
	if apperrors.Is(err, documentDomain.ErrDocumentNotServable) {
		status = "locked"
	}
	record(ctx, d.metrics, "document_open", start, status)
	return doc, content, err
}

func (d *documentUseCaseWithMetrics) ReadContent(
	ctx context.Context,
	id uuid.UUID,
) (*documentDomain.Document, []byte, error) {
	start := time.Now()
	doc, content, err := d.next.ReadContent(ctx, id)
	record(ctx, d.metrics, "document_read_content", start, statusOf(err))
	return doc, content, err
}

func (d *documentUseCaseWithMetrics) GrantQuarantineOverride(
	ctx context.Context,
	id uuid.UUID,
	reason string,
	ttl time.Duration,
) error {
	start := time.Now()
	err := d.next.GrantQuarantineOverride(ctx, id, reason, ttl)
	record(ctx, d.metrics, "document_quarantine_override", start, statusOf(err))
	return err
}

// rotationUseCaseWithMetrics decorates RotationUseCase with metrics instrumentation.
type rotationUseCaseWithMetrics struct {
	next    RotationUseCase
	metrics metrics.BusinessMetrics
}

// NewRotationUseCaseWithMetrics wraps a RotationUseCase with metrics recording.
func NewRotationUseCaseWithMetrics(useCase RotationUseCase, m metrics.BusinessMetrics) RotationUseCase {
	return &rotationUseCaseWithMetrics{next: useCase, metrics: m}
}

// RotateDocKeys reports a batch with per-document failures as "partial".
func (r *rotationUseCaseWithMetrics) RotateDocKeys(
	ctx context.Context,
	input documentDomain.RotateInput,
) (*documentDomain.RotateResult, error) {
	start := time.Now()
	result, err := r.next.RotateDocKeys(ctx, input)
	status := statusOf(err)
	if err == nil {
		if result.Failed > 0 {
			status = "partial"
		}
		recordItems(ctx, r.metrics, "rotate_doc_keys", map[string]int{
			"rotated":  result.Rotated,
			"failed":   result.Failed,
			"conflict": result.Conflicts,
		})
	}
	record(ctx, r.metrics, "rotate_doc_keys", start, status)
	return result, err
}

// migrationUseCaseWithMetrics decorates MigrationUseCase with metrics instrumentation.
type migrationUseCaseWithMetrics struct {
	next    MigrationUseCase
	metrics metrics.BusinessMetrics
}

// NewMigrationUseCaseWithMetrics wraps a MigrationUseCase with metrics recording.
func NewMigrationUseCaseWithMetrics(useCase MigrationUseCase, m metrics.BusinessMetrics) MigrationUseCase {
	return &migrationUseCaseWithMetrics{next: useCase, metrics: m}
}

func (m *migrationUseCaseWithMetrics) MigrateLegacyBatch(
	ctx context.Context,
	input documentDomain.MigrateInput,
) (*documentDomain.MigrateResult, error) {
	start := time.Now()
	result, err := m.next.MigrateLegacyBatch(ctx, input)
	status := statusOf(err)
	if err == nil {
		if result.Failed > 0 {
			status = "partial"
		}
		// A dry run moves nothing.
		if !result.DryRun {
			recordItems(ctx, m.metrics, "migrate_legacy", map[string]int{
				"migrated": result.Migrated,
				"skipped":  result.Skipped,
				"failed":   result.Failed,
			})
		}
	}
	record(ctx, m.metrics, "migrate_legacy", start, status)
	return result, err
}
