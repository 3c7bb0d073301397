// Package usecase implements the malware scan queue.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	scanDomain "github.com/allisson/docvault/internal/scan/domain"
)

// JobRepository persists scan jobs and quarantine overrides. Every state change is a
// conditional update on the current status; the returned bool reports whether the row
// matched, so two writers racing on the same job cannot both win.
type JobRepository interface {
	Get(ctx context.Context, docID uuid.UUID) (*scanDomain.Job, error)

	Create(ctx context.Context, job *scanDomain.Job) error

	// Requeue resets a job in a terminal state to queued, keeping its attempts.
	Requeue(ctx context.Context, docID uuid.UUID, storageKey string, now time.Time) (bool, error)

	// NextQueued returns the oldest queued job, locked and skipping rows locked by other
	// claimers. Returns ErrQueueEmpty when nothing is queued.
	NextQueued(ctx context.Context) (*scanDomain.Job, error)

	// MarkRunning moves a queued job to running and counts the attempt.
	MarkRunning(ctx context.Context, docID uuid.UUID, now time.Time) (bool, error)

	// Finish moves a running job to a result state.
	Finish(ctx context.Context, docID uuid.UUID, status scanDomain.Status, lastError string, now time.Time) (bool, error)

	// MarkSkipped moves a job in any state to skipped.
	MarkSkipped(ctx context.Context, docID uuid.UUID, reason string, now time.Time) (bool, error)

	// CountByStatus returns the number of jobs in each status.
	CountByStatus(ctx context.Context) (map[scanDomain.Status]int64, error)

	// ListHealCandidates returns up to limit jobs not yet flagged for review that are
	// running since before runningCutoff, errored before retryCutoff, or errored with
	// attempts >= maxAttempts.
	ListHealCandidates(
		ctx context.Context,
		runningCutoff, retryCutoff time.Time,
		maxAttempts, limit int,
	) ([]*scanDomain.Job, error)

	// RequeueStale requeues a job still running since before cutoff with attempts < maxAttempts.
	RequeueStale(ctx context.Context, docID uuid.UUID, cutoff time.Time, maxAttempts int, now time.Time) (bool, error)

	// RequeueError requeues a job errored before cutoff with attempts < maxAttempts.
	RequeueError(ctx context.Context, docID uuid.UUID, cutoff time.Time, maxAttempts int, now time.Time) (bool, error)

	// FlagForReview moves an exhausted job (errored, or running since before runningCutoff)
	// to error with needs_review set.
	FlagForReview(
		ctx context.Context,
		docID uuid.UUID,
		runningCutoff time.Time,
		maxAttempts int,
		now time.Time,
	) (bool, error)

	// MirrorDocumentStatus copies the job status to documents.scan_status.
	MirrorDocumentStatus(ctx context.Context, docID uuid.UUID, status scanDomain.Status, now time.Time) error

	CreateOverride(ctx context.Context, override *scanDomain.QuarantineOverride) error

	// HasActiveOverride reports whether an override for docID expires after now.
	HasActiveOverride(ctx context.Context, docID uuid.UUID, now time.Time) (bool, error)
}

// ScanUseCase drives the per-document scan state machine.
type ScanUseCase interface {
	// Enqueue creates the job or resets a finished one to queued. Queued and running
	// jobs are left untouched.
	Enqueue(ctx context.Context, docID uuid.UUID, storageKey string) (*scanDomain.Job, error)

	Get(ctx context.Context, docID uuid.UUID) (*scanDomain.Job, error)

	// ClaimNext hands the oldest queued job to a scanner worker.
	ClaimNext(ctx context.Context) (*scanDomain.Job, error)

	// Complete records a worker's verdict for a running job.
	Complete(ctx context.Context, docID uuid.UUID, result scanDomain.Status, errMsg string) (*scanDomain.Job, error)

	Skip(ctx context.Context, docID uuid.UUID, reason string) (*scanDomain.Job, error)

	// Heal requeues dead and retryable jobs and flags exhausted ones for review.
	Heal(ctx context.Context, input scanDomain.HealInput) (*scanDomain.HealResult, error)

	// IsServable reports whether the document may be downloaded.
	IsServable(ctx context.Context, docID uuid.UUID) (bool, error)

	GrantQuarantineOverride(
		ctx context.Context,
		docID uuid.UUID,
		reason string,
		ttl time.Duration,
		grantedBy string,
	) (*scanDomain.QuarantineOverride, error)
}
