package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/docvault/internal/errors"
	"github.com/allisson/docvault/internal/metrics"
	scanDomain "github.com/allisson/docvault/internal/scan/domain"
)

// scanUseCaseWithMetrics decorates ScanUseCase with metrics instrumentation.
type scanUseCaseWithMetrics struct {
	next    ScanUseCase
	metrics metrics.BusinessMetrics
}

// NewScanUseCaseWithMetrics wraps a ScanUseCase with metrics recording.
func NewScanUseCaseWithMetrics(useCase ScanUseCase, m metrics.BusinessMetrics) ScanUseCase {
	return &scanUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *scanUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, status string) {
	s.metrics.RecordOperation(ctx, "scan", operation, status)
	s.metrics.RecordDuration(ctx, "scan", operation, time.Since(start), status)
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (s *scanUseCaseWithMetrics) Enqueue(ctx context.Context, docID uuid.UUID, storageKey string) (*scanDomain.Job, error) {
	start := time.Now()
	job, err := s.next.Enqueue(ctx, docID, storageKey)
	s.record(ctx, "scan_enqueue", start, statusOf(err))
	return job, err
}

func (s *scanUseCaseWithMetrics) Get(ctx context.Context, docID uuid.UUID) (*scanDomain.Job, error) {
	start := time.Now()
	job, err := s.next.Get(ctx, docID)
	s.record(ctx, "scan_get", start, statusOf(err))
	return job, err
}

// ClaimNext records an empty queue as "empty" rather than an error.
func (s *scanUseCaseWithMetrics) ClaimNext(ctx context.Context) (*scanDomain.Job, error) {
	start := time.Now()
	job, err := s.next.ClaimNext(ctx)
	status := statusOf(err)
	if apperrors.Is(err, scanDomain.ErrQueueEmpty) {
		status = "empty"
	}
	s.record(ctx, "scan_claim", start, status)
	return job, err
}

// Complete records the verdict as the status so infected rates can be graphed.
func (s *scanUseCaseWithMetrics) Complete(
	ctx context.Context,
	docID uuid.UUID,
	result scanDomain.Status,
	errMsg string,
) (*scanDomain.Job, error) {
	start := time.Now()
	job, err := s.next.Complete(ctx, docID, result, errMsg)
	status := string(result)
	if err != nil {
		status = "error"
	}
	s.record(ctx, "scan_complete", start, status)
	return job, err
}

func (s *scanUseCaseWithMetrics) Skip(ctx context.Context, docID uuid.UUID, reason string) (*scanDomain.Job, error) {
	start := time.Now()
	job, err := s.next.Skip(ctx, docID, reason)
	s.record(ctx, "scan_skip", start, statusOf(err))
	return job, err
}

func (s *scanUseCaseWithMetrics) Heal(ctx context.Context, input scanDomain.HealInput) (*scanDomain.HealResult, error) {
	start := time.Now()
	result, err := s.next.Heal(ctx, input)
	if err == nil {
		s.metrics.RecordBatchItems(ctx, "scan", "scan_heal", "stale_requeued", result.StaleRequeued)
		s.metrics.RecordBatchItems(ctx, "scan", "scan_heal", "error_requeued", result.ErrorRequeued)
		s.metrics.RecordBatchItems(ctx, "scan", "scan_heal", "max_attempts", result.MaxAttemptJobs)
	}
	s.record(ctx, "scan_heal", start, statusOf(err))
	return result, err
}

func (s *scanUseCaseWithMetrics) IsServable(ctx context.Context, docID uuid.UUID) (bool, error) {
	start := time.Now()
	ok, err := s.next.IsServable(ctx, docID)
	s.record(ctx, "scan_is_servable", start, statusOf(err))
	return ok, err
}

func (s *scanUseCaseWithMetrics) GrantQuarantineOverride(
	ctx context.Context,
	docID uuid.UUID,
	reason string,
	ttl time.Duration,
	grantedBy string,
) (*scanDomain.QuarantineOverride, error) {
	start := time.Now()
	override, err := s.next.GrantQuarantineOverride(ctx, docID, reason, ttl, grantedBy)
	s.record(ctx, "scan_quarantine_override", start, statusOf(err))
	return override, err
}
