package usecase

import (
	"context"
	"time"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
	"github.com/allisson/docvault/internal/metrics"
)

// auditUseCaseWithMetrics decorates AuditUseCase with metrics instrumentation.
type auditUseCaseWithMetrics struct {
	next    AuditUseCase
	metrics metrics.BusinessMetrics
}

// NewAuditUseCaseWithMetrics wraps an AuditUseCase with metrics recording.
func NewAuditUseCaseWithMetrics(useCase AuditUseCase, m metrics.BusinessMetrics) AuditUseCase {
	return &auditUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (a *auditUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	a.metrics.RecordOperation(ctx, "audit", operation, status)
	a.metrics.RecordDuration(ctx, "audit", operation, time.Since(start), status)
}

// Append records metrics for appends. A swallowed failure returns a nil event and is
// counted as "dropped" so ledger outages stay visible.
func (a *auditUseCaseWithMetrics) Append(
	ctx context.Context,
	input *auditDomain.AppendInput,
) (*auditDomain.Event, error) {
	start := time.Now()
	event, err := a.next.Append(ctx, input)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case event == nil:
		status = "dropped"
	}
	a.metrics.RecordOperation(ctx, "audit", "event_append", status)
	a.metrics.RecordDuration(ctx, "audit", "event_append", time.Since(start), status)

	return event, err
}

func (a *auditUseCaseWithMetrics) List(
	ctx context.Context,
	streamKey string,
	offset, limit int,
) ([]*auditDomain.Event, error) {
	start := time.Now()
	events, err := a.next.List(ctx, streamKey, offset, limit)
	a.record(ctx, "event_list", start, err)
	return events, err
}

// Verify counts a broken chain as status "broken".
func (a *auditUseCaseWithMetrics) Verify(ctx context.Context, streamKey string) (*auditDomain.VerifyResult, error) {
	start := time.Now()
	result, err := a.next.Verify(ctx, streamKey)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case !result.OK:
		status = "broken"
	}
	a.metrics.RecordOperation(ctx, "audit", "stream_verify", status)
	a.metrics.RecordDuration(ctx, "audit", "stream_verify", time.Since(start), status)

	return result, err
}

func (a *auditUseCaseWithMetrics) ListStreams(ctx context.Context) ([]*auditDomain.Stream, error) {
	start := time.Now()
	streams, err := a.next.ListStreams(ctx)
	a.record(ctx, "stream_list", start, err)
	return streams, err
}

func (a *auditUseCaseWithMetrics) VerifyAll(ctx context.Context) ([]*auditDomain.VerifyResult, error) {
	start := time.Now()
	results, err := a.next.VerifyAll(ctx)
	a.record(ctx, "stream_verify_all", start, err)
	return results, err
}
