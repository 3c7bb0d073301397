package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
	auditUseCase "github.com/allisson/docvault/internal/audit/usecase"
	"github.com/allisson/docvault/internal/database"
	apperrors "github.com/allisson/docvault/internal/errors"
	scanDomain "github.com/allisson/docvault/internal/scan/domain"
)

// Config holds the heal defaults applied when a HealInput field is zero.
type Config struct {
	RunningTimeout time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration
	HealLimit      int
	// EnqueueRetries bounds retries of an enqueue that raced another creator.
	EnqueueRetries uint64
}

type scanUseCase struct {
	txManager    database.TxManager
	jobRepo      JobRepository
	auditUseCase auditUseCase.AuditUseCase
	cfg          Config
	logger       *slog.Logger
	now          func() time.Time
}

func (s *scanUseCase) Enqueue(ctx context.Context, docID uuid.UUID, storageKey string) (*scanDomain.Job, error) {
	var job *scanDomain.Job

	err := database.RetryOnConflict(ctx, s.cfg.EnqueueRetries, func(ctx context.Context) error {
		return s.txManager.WithTx(ctx, func(ctx context.Context) error {
			now := s.now().UTC()

			existing, err := s.jobRepo.Get(ctx, docID)
			switch {
			case apperrors.Is(err, scanDomain.ErrJobNotFound):
				job = &scanDomain.Job{
					DocID:      docID,
					StorageKey: storageKey,
					Status:     scanDomain.StatusQueued,
					CreatedAt:  now,
					UpdatedAt:  now,
				}
				if err := s.jobRepo.Create(ctx, job); err != nil {
					return err
				}
			case err != nil:
				return err
			case existing.Status.IsTerminal():
				requeued, err := s.jobRepo.Requeue(ctx, docID, storageKey, now)
				if err != nil {
					return err
				}
				if !requeued {
					// Claimed or healed concurrently; whatever state it moved to stands.
					job, err = s.jobRepo.Get(ctx, docID)
					return err
				}
				existing.Status = scanDomain.StatusQueued
				existing.StorageKey = storageKey
				existing.LastError = ""
				existing.NeedsReview = false
				existing.StartedAt = nil
				existing.FinishedAt = nil
				existing.UpdatedAt = now
				job = existing
			default:
				job = existing
				return nil
			}

			return s.jobRepo.MirrorDocumentStatus(ctx, docID, job.Status, now)
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("scan job enqueued", slog.String("doc_id", docID.String()), slog.String("status", string(job.Status)))
	return job, nil
}

func (s *scanUseCase) Get(ctx context.Context, docID uuid.UUID) (*scanDomain.Job, error) {
	return s.jobRepo.Get(ctx, docID)
}

func (s *scanUseCase) ClaimNext(ctx context.Context) (*scanDomain.Job, error) {
	var job *scanDomain.Job

	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		next, err := s.jobRepo.NextQueued(ctx)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		claimed, err := s.jobRepo.MarkRunning(ctx, next.DocID, now)
		if err != nil {
			return err
		}
		if !claimed {
			return apperrors.Wrapf(scanDomain.ErrInvalidTransition, "job %s is no longer queued", next.DocID)
		}
		if err := s.jobRepo.MirrorDocumentStatus(ctx, next.DocID, scanDomain.StatusRunning, now); err != nil {
			return err
		}

		next.Status = scanDomain.StatusRunning
		next.Attempts++
		next.StartedAt = &now
		next.FinishedAt = nil
		next.UpdatedAt = now
		job = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("scan job claimed",
		slog.String("doc_id", job.DocID.String()),
		slog.Int("attempts", job.Attempts),
	)
	return job, nil
}

func (s *scanUseCase) Complete(
	ctx context.Context,
	docID uuid.UUID,
	result scanDomain.Status,
	errMsg string,
) (*scanDomain.Job, error) {
	if !result.IsResult() {
		return nil, scanDomain.ErrInvalidResult
	}
	if result != scanDomain.StatusError {
		errMsg = ""
	}

	var job *scanDomain.Job
	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := s.now().UTC()
		finished, err := s.jobRepo.Finish(ctx, docID, result, errMsg, now)
		if err != nil {
			return err
		}
		if !finished {
			current, err := s.jobRepo.Get(ctx, docID)
			if err != nil {
				return err
			}
			return apperrors.Wrapf(scanDomain.ErrInvalidTransition, "job %s is %s, not running", docID, current.Status)
		}
		if err := s.jobRepo.MirrorDocumentStatus(ctx, docID, result, now); err != nil {
			return err
		}
		job, err = s.jobRepo.Get(ctx, docID)
		return err
	})
	if err != nil {
		return nil, err
	}

	attrs := []any{slog.String("doc_id", docID.String()), slog.String("result", string(result))}
	if result == scanDomain.StatusInfected {
		s.logger.Warn("document flagged as infected", attrs...)
	} else {
		s.logger.Info("scan job completed", attrs...)
	}

	_, err = s.auditUseCase.Append(ctx, &auditDomain.AppendInput{
		StreamKey: auditDomain.StreamScan,
		Action:    auditDomain.ActionScanCompleted,
		Subject:   docID.String(),
		Payload: map[string]any{
			"doc_id":   docID.String(),
			"result":   string(result),
			"attempts": job.Attempts,
			"error":    errMsg,
		},
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *scanUseCase) Skip(ctx context.Context, docID uuid.UUID, reason string) (*scanDomain.Job, error) {
	var job *scanDomain.Job
	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := s.now().UTC()
		skipped, err := s.jobRepo.MarkSkipped(ctx, docID, reason, now)
		if err != nil {
			return err
		}
		if !skipped {
			return scanDomain.ErrJobNotFound
		}
		if err := s.jobRepo.MirrorDocumentStatus(ctx, docID, scanDomain.StatusSkipped, now); err != nil {
			return err
		}
		job, err = s.jobRepo.Get(ctx, docID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("scan job skipped", slog.String("doc_id", docID.String()), slog.String("reason", reason))
	_, err = s.auditUseCase.Append(ctx, &auditDomain.AppendInput{
		StreamKey: auditDomain.StreamScan,
		Action:    auditDomain.ActionScanSkipped,
		Subject:   docID.String(),
		Payload:   map[string]any{"doc_id": docID.String(), "reason": reason},
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Heal applies the three heal rules to each candidate with a conditional update of its
// own, so concurrent heal passes move every job at most once. A failure on one job is
// logged and does not stop the pass.
func (s *scanUseCase) Heal(ctx context.Context, input scanDomain.HealInput) (*scanDomain.HealResult, error) {
	input = s.withDefaults(input)
	now := s.now().UTC()
	runningCutoff := now.Add(-input.RunningTimeout)
	retryCutoff := now.Add(-input.RetryDelay)

	candidates, err := s.jobRepo.ListHealCandidates(ctx, runningCutoff, retryCutoff, input.MaxAttempts, input.Limit)
	if err != nil {
		return nil, err
	}

	result := &scanDomain.HealResult{}
	var errs *multierror.Error
	for _, job := range candidates {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
		if err := s.healJob(ctx, job, input, runningCutoff, retryCutoff, result); err != nil {
			errs = multierror.Append(errs, apperrors.Wrapf(err, "heal job %s", job.DocID))
		}
	}

	if errs.ErrorOrNil() != nil {
		s.logger.Error("scan heal finished with errors",
			slog.Int("failed", len(errs.Errors)),
			slog.Any("error", errs.ErrorOrNil()),
		)
	}
	s.logger.Info("scan heal finished",
		slog.Int("candidates", len(candidates)),
		slog.Int("stale_requeued", result.StaleRequeued),
		slog.Int("error_requeued", result.ErrorRequeued),
		slog.Int("max_attempt_jobs", result.MaxAttemptJobs),
	)

	if result.StaleRequeued+result.ErrorRequeued+result.MaxAttemptJobs > 0 {
		_, err := s.auditUseCase.Append(ctx, &auditDomain.AppendInput{
			StreamKey: auditDomain.StreamScan,
			Action:    auditDomain.ActionScanHealed,
			Payload: map[string]any{
				"stale_requeued":   result.StaleRequeued,
				"error_requeued":   result.ErrorRequeued,
				"max_attempt_jobs": result.MaxAttemptJobs,
				"max_attempts":     input.MaxAttempts,
			},
		})
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (s *scanUseCase) healJob(
	ctx context.Context,
	job *scanDomain.Job,
	input scanDomain.HealInput,
	runningCutoff, retryCutoff time.Time,
	result *scanDomain.HealResult,
) error {
	var counter *int
	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := s.now().UTC()

		var moved bool
		var err error
		var status scanDomain.Status
		var target *int

		switch {
		case job.Attempts >= input.MaxAttempts:
			moved, err = s.jobRepo.FlagForReview(ctx, job.DocID, runningCutoff, input.MaxAttempts, now)
			status, target = scanDomain.StatusError, &result.MaxAttemptJobs
		case job.Status == scanDomain.StatusRunning:
			moved, err = s.jobRepo.RequeueStale(ctx, job.DocID, runningCutoff, input.MaxAttempts, now)
			status, target = scanDomain.StatusQueued, &result.StaleRequeued
		case job.Status == scanDomain.StatusError:
			moved, err = s.jobRepo.RequeueError(ctx, job.DocID, retryCutoff, input.MaxAttempts, now)
			status, target = scanDomain.StatusQueued, &result.ErrorRequeued
		default:
			return nil
		}
		if err != nil || !moved {
			return err
		}

		counter = target
		return s.jobRepo.MirrorDocumentStatus(ctx, job.DocID, status, now)
	})
	if err != nil {
		return err
	}
	if counter != nil {
		*counter++
	}
	return nil
}

func (s *scanUseCase) withDefaults(input scanDomain.HealInput) scanDomain.HealInput {
	if input.RunningTimeout <= 0 {
		input.RunningTimeout = s.cfg.RunningTimeout
	}
	if input.MaxAttempts <= 0 {
		input.MaxAttempts = s.cfg.MaxAttempts
	}
	if input.RetryDelay <= 0 {
		input.RetryDelay = s.cfg.RetryDelay
	}
	if input.Limit <= 0 {
		input.Limit = s.cfg.HealLimit
	}
	return input
}

func (s *scanUseCase) IsServable(ctx context.Context, docID uuid.UUID) (bool, error) {
	job, err := s.jobRepo.Get(ctx, docID)
	switch {
	case err == nil && job.Status == scanDomain.StatusClean:
		return true, nil
	case err != nil && !apperrors.Is(err, scanDomain.ErrJobNotFound):
		return false, err
	}
	return s.jobRepo.HasActiveOverride(ctx, docID, s.now().UTC())
}

func (s *scanUseCase) GrantQuarantineOverride(
	ctx context.Context,
	docID uuid.UUID,
	reason string,
	ttl time.Duration,
	grantedBy string,
) (*scanDomain.QuarantineOverride, error) {
	if ttl <= 0 {
		return nil, scanDomain.ErrInvalidOverrideTTL
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "quarantine override reason is required")
	}
	if grantedBy == "" {
		grantedBy = auditDomain.ActorFromContext(ctx)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate override id")
	}
	now := s.now().UTC()
	override := &scanDomain.QuarantineOverride{
		ID:        id,
		DocID:     docID,
		Reason:    reason,
		GrantedBy: grantedBy,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.jobRepo.CreateOverride(ctx, override); err != nil {
		return nil, err
	}

	s.logger.Warn("quarantine override granted",
		slog.String("doc_id", docID.String()),
		slog.String("granted_by", grantedBy),
		slog.Time("expires_at", override.ExpiresAt),
	)
	_, err = s.auditUseCase.Append(ctx, &auditDomain.AppendInput{
		StreamKey: auditDomain.StreamScan,
		Action:    auditDomain.ActionQuarantineOverride,
		Actor:     grantedBy,
		Subject:   docID.String(),
		Payload: map[string]any{
			"doc_id":      docID.String(),
			"override_id": id.String(),
			"reason":      reason,
			"expires_at":  override.ExpiresAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, err
	}
	return override, nil
}

// NewScanUseCase creates a new ScanUseCase.
func NewScanUseCase(
	txManager database.TxManager,
	jobRepo JobRepository,
	auditUseCase auditUseCase.AuditUseCase,
	cfg Config,
	logger *slog.Logger,
) ScanUseCase {
	return &scanUseCase{
		txManager:    txManager,
		jobRepo:      jobRepo,
		auditUseCase: auditUseCase,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}
