package usecase

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
	auditMocks "github.com/allisson/docvault/internal/audit/usecase/mocks"
	apperrors "github.com/allisson/docvault/internal/errors"
	scanDomain "github.com/allisson/docvault/internal/scan/domain"
)

type passThroughTxManager struct{}

func (passThroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passThroughTxManager) WithSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memoryJobRepository is an in-memory JobRepository. Each method is atomic, which is
// what a single conditional UPDATE gives the SQL implementations.
type memoryJobRepository struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]scanDomain.Job
	overrides []scanDomain.QuarantineOverride
	mirrored  map[uuid.UUID]scanDomain.Status
	// createConflicts makes the next n Create calls fail with a unique violation.
	createConflicts int
}

func newMemoryJobRepository() *memoryJobRepository {
	return &memoryJobRepository{
		jobs:     make(map[uuid.UUID]scanDomain.Job),
		mirrored: make(map[uuid.UUID]scanDomain.Status),
	}
}

func (r *memoryJobRepository) put(job scanDomain.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.DocID] = job
}

func (r *memoryJobRepository) job(docID uuid.UUID) scanDomain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[docID]
}

func (r *memoryJobRepository) CountByStatus(_ context.Context) (map[scanDomain.Status]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[scanDomain.Status]int64)
	for _, job := range r.jobs {
		counts[job.Status]++
	}
	return counts, nil
}

func (r *memoryJobRepository) Get(_ context.Context, docID uuid.UUID) (*scanDomain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[docID]
	if !ok {
		return nil, scanDomain.ErrJobNotFound
	}
	return &job, nil
}

func (r *memoryJobRepository) Create(_ context.Context, job *scanDomain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createConflicts > 0 {
		r.createConflicts--
		// Simulates the row a concurrent enqueue committed first.
		r.jobs[job.DocID] = *job
		return &pq.Error{Code: "23505"}
	}
	if _, ok := r.jobs[job.DocID]; ok {
		return &pq.Error{Code: "23505"}
	}
	r.jobs[job.DocID] = *job
	return nil
}

func (r *memoryJobRepository) update(docID uuid.UUID, cond func(*scanDomain.Job) bool, apply func(*scanDomain.Job)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[docID]
	if !ok || !cond(&job) {
		return false
	}
	apply(&job)
	r.jobs[docID] = job
	return true
}

func (r *memoryJobRepository) Requeue(_ context.Context, docID uuid.UUID, storageKey string, now time.Time) (bool, error) {
	return r.update(docID,
		func(j *scanDomain.Job) bool { return j.Status.IsTerminal() },
		func(j *scanDomain.Job) {
			j.Status = scanDomain.StatusQueued
			j.StorageKey = storageKey
			j.LastError = ""
			j.NeedsReview = false
			j.StartedAt, j.FinishedAt = nil, nil
			j.UpdatedAt = now
		}), nil
}

func (r *memoryJobRepository) NextQueued(_ context.Context) (*scanDomain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var queued []scanDomain.Job
	for _, job := range r.jobs {
		if job.Status == scanDomain.StatusQueued {
			queued = append(queued, job)
		}
	}
	if len(queued) == 0 {
		return nil, scanDomain.ErrQueueEmpty
	}
	sort.Slice(queued, func(i, j int) bool { return queued[i].UpdatedAt.Before(queued[j].UpdatedAt) })
	return &queued[0], nil
}

func (r *memoryJobRepository) MarkRunning(_ context.Context, docID uuid.UUID, now time.Time) (bool, error) {
	return r.update(docID,
		func(j *scanDomain.Job) bool { return j.Status == scanDomain.StatusQueued },
		func(j *scanDomain.Job) {
			j.Status = scanDomain.StatusRunning
			j.Attempts++
			j.StartedAt = &now
			j.FinishedAt = nil
			j.UpdatedAt = now
		}), nil
}

func (r *memoryJobRepository) Finish(
	_ context.Context,
	docID uuid.UUID,
	status scanDomain.Status,
	lastError string,
	now time.Time,
) (bool, error) {
	return r.update(docID,
		func(j *scanDomain.Job) bool { return j.Status == scanDomain.StatusRunning },
		func(j *scanDomain.Job) {
			j.Status = status
			j.LastError = lastError
			j.FinishedAt = &now
			j.UpdatedAt = now
		}), nil
}

func (r *memoryJobRepository) MarkSkipped(_ context.Context, docID uuid.UUID, reason string, now time.Time) (bool, error) {
	return r.update(docID,
		func(*scanDomain.Job) bool { return true },
		func(j *scanDomain.Job) {
			j.Status = scanDomain.StatusSkipped
			j.LastError = reason
			j.FinishedAt = &now
			j.UpdatedAt = now
		}), nil
}

func (r *memoryJobRepository) ListHealCandidates(
	_ context.Context,
	runningCutoff, retryCutoff time.Time,
	maxAttempts, limit int,
) ([]*scanDomain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := make([]*scanDomain.Job, 0)
	for _, job := range r.jobs {
		if job.NeedsReview {
			continue
		}
		stale := job.Status == scanDomain.StatusRunning && job.StartedAt.Before(runningCutoff)
		errored := job.Status == scanDomain.StatusError &&
			(job.FinishedAt.Before(retryCutoff) || job.Attempts >= maxAttempts)
		if stale || errored {
			job := job
			jobs = append(jobs, &job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].UpdatedAt.Before(jobs[j].UpdatedAt) })
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (r *memoryJobRepository) RequeueStale(
	_ context.Context,
	docID uuid.UUID,
	cutoff time.Time,
	maxAttempts int,
	now time.Time,
) (bool, error) {
	return r.update(docID,
		func(j *scanDomain.Job) bool {
			return j.Status == scanDomain.StatusRunning && j.StartedAt.Before(cutoff) &&
				j.Attempts < maxAttempts && !j.NeedsReview
		},
		func(j *scanDomain.Job) {
			j.Status = scanDomain.StatusQueued
			j.LastError = "scan timed out"
			j.UpdatedAt = now
		}), nil
}

func (r *memoryJobRepository) RequeueError(
	_ context.Context,
	docID uuid.UUID,
	cutoff time.Time,
	maxAttempts int,
	now time.Time,
) (bool, error) {
	return r.update(docID,
		func(j *scanDomain.Job) bool {
			return j.Status == scanDomain.StatusError && j.FinishedAt.Before(cutoff) &&
				j.Attempts < maxAttempts && !j.NeedsReview
		},
		func(j *scanDomain.Job) {
			j.Status = scanDomain.StatusQueued
			j.UpdatedAt = now
		}), nil
}

func (r *memoryJobRepository) FlagForReview(
	_ context.Context,
	docID uuid.UUID,
	runningCutoff time.Time,
	maxAttempts int,
	now time.Time,
) (bool, error) {
	return r.update(docID,
		func(j *scanDomain.Job) bool {
			exhausted := !j.NeedsReview && j.Attempts >= maxAttempts
			stale := j.Status == scanDomain.StatusRunning && j.StartedAt.Before(runningCutoff)
			return exhausted && (j.Status == scanDomain.StatusError || stale)
		},
		func(j *scanDomain.Job) {
			if j.Status == scanDomain.StatusRunning {
				j.LastError = "scan timed out"
				j.FinishedAt = &now
			}
			j.Status = scanDomain.StatusError
			j.NeedsReview = true
			j.UpdatedAt = now
		}), nil
}

func (r *memoryJobRepository) MirrorDocumentStatus(
	_ context.Context,
	docID uuid.UUID,
	status scanDomain.Status,
	_ time.Time,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mirrored[docID] = status
	return nil
}

func (r *memoryJobRepository) CreateOverride(_ context.Context, override *scanDomain.QuarantineOverride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides = append(r.overrides, *override)
	return nil
}

func (r *memoryJobRepository) HasActiveOverride(_ context.Context, docID uuid.UUID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.overrides {
		if o.DocID == docID && o.Active(now) {
			return true, nil
		}
	}
	return false, nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestScanUseCase(t *testing.T) (*scanUseCase, *memoryJobRepository, *auditMocks.MockAuditUseCase) {
	t.Helper()
	repo := newMemoryJobRepository()
	audit := &auditMocks.MockAuditUseCase{}
	audit.Appended()

	uc := NewScanUseCase(
		passThroughTxManager{},
		repo,
		audit,
		Config{
			RunningTimeout: 30 * time.Minute,
			MaxAttempts:    3,
			RetryDelay:     10 * time.Minute,
			HealLimit:      100,
			EnqueueRetries: 3,
		},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	).(*scanUseCase)
	uc.now = func() time.Time { return fixedNow }
	return uc, repo, audit
}

func ptr(t time.Time) *time.Time {
	return &t
}

func TestScanUseCase_Enqueue(t *testing.T) {
	ctx := context.Background()

	t.Run("new job is queued", func(t *testing.T) {
		uc, repo, _ := newTestScanUseCase(t)
		docID := uuid.Must(uuid.NewV7())

		job, err := uc.Enqueue(ctx, docID, "docs/a")
		require.NoError(t, err)
		assert.Equal(t, scanDomain.StatusQueued, job.Status)
		assert.Equal(t, 0, job.Attempts)
		assert.Equal(t, scanDomain.StatusQueued, repo.mirrored[docID])
	})

	t.Run("running job untouched", func(t *testing.T) {
		uc, repo, _ := newTestScanUseCase(t)
		docID := uuid.Must(uuid.NewV7())
		repo.put(scanDomain.Job{DocID: docID, Status: scanDomain.StatusRunning, Attempts: 1, StartedAt: ptr(fixedNow)})

		job, err := uc.Enqueue(ctx, docID, "docs/a")
		require.NoError(t, err)
		assert.Equal(t, scanDomain.StatusRunning, job.Status)
		assert.Equal(t, 1, repo.job(docID).Attempts)
	})

	t.Run("terminal job requeued keeping attempts", func(t *testing.T) {
		for _, status := range scanDomain.TerminalStatuses {
			t.Run(string(status), func(t *testing.T) {
				uc, repo, _ := newTestScanUseCase(t)
				docID := uuid.Must(uuid.NewV7())
				repo.put(scanDomain.Job{
					DocID:      docID,
					StorageKey: "docs/old",
					Status:     status,
					Attempts:   2,
					FinishedAt: ptr(fixedNow.Add(-time.Hour)),
				})

				job, err := uc.Enqueue(ctx, docID, "docs/new")
				require.NoError(t, err)
				assert.Equal(t, scanDomain.StatusQueued, job.Status)

				stored := repo.job(docID)
				assert.Equal(t, scanDomain.StatusQueued, stored.Status)
				assert.Equal(t, 2, stored.Attempts)
				assert.Equal(t, "docs/new", stored.StorageKey)
				assert.Nil(t, stored.FinishedAt)
			})
		}
	})

	t.Run("concurrent creator retried", func(t *testing.T) {
		uc, repo, _ := newTestScanUseCase(t)
		repo.createConflicts = 1
		docID := uuid.Must(uuid.NewV7())

		job, err := uc.Enqueue(ctx, docID, "docs/a")
		require.NoError(t, err)
		assert.Equal(t, scanDomain.StatusQueued, job.Status)
	})
}

func TestScanUseCase_ClaimNext(t *testing.T) {
	ctx := context.Background()

	t.Run("claims oldest queued job", func(t *testing.T) {
		uc, repo, _ := newTestScanUseCase(t)
		older := uuid.Must(uuid.NewV7())
		newer := uuid.Must(uuid.NewV7())
		repo.put(scanDomain.Job{DocID: newer, Status: scanDomain.StatusQueued, UpdatedAt: fixedNow.Add(-time.Minute)})
		repo.put(scanDomain.Job{DocID: older, Status: scanDomain.StatusQueued, UpdatedAt: fixedNow.Add(-time.Hour)})

		job, err := uc.ClaimNext(ctx)
		require.NoError(t, err)
		assert.Equal(t, older, job.DocID)
		assert.Equal(t, scanDomain.StatusRunning, job.Status)
		assert.Equal(t, 1, job.Attempts)
		assert.Equal(t, fixedNow, *job.StartedAt)
		assert.Equal(t, scanDomain.StatusRunning, repo.job(older).Status)
		assert.Equal(t, scanDomain.StatusRunning, repo.mirrored[older])
	})

	t.Run("empty queue", func(t *testing.T) {
		uc, _, _ := newTestScanUseCase(t)

		_, err := uc.ClaimNext(ctx)
		assert.ErrorIs(t, err, scanDomain.ErrQueueEmpty)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestScanUseCase_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("running to clean", func(t *testing.T) {
		uc, repo, audit := newTestScanUseCase(t)
		docID := uuid.Must(uuid.NewV7())
		repo.put(scanDomain.Job{DocID: docID, Status: scanDomain.StatusRunning, Attempts: 1, StartedAt: ptr(fixedNow)})

		job, err := uc.Complete(ctx, docID, scanDomain.StatusClean, "ignored")
		require.NoError(t, err)
		assert.Equal(t, scanDomain.StatusClean, job.Status)
		assert.Empty(t, job.LastError)
		assert.Equal(t, scanDomain.StatusClean, repo.mirrored[docID])
		audit.AssertCalled(t, "Append", mock.Anything, mock.MatchedBy(func(in *auditDomain.AppendInput) bool {
			return in.StreamKey == auditDomain.StreamScan && in.Action == auditDomain.ActionScanCompleted &&
				in.Payload["result"] == "clean"
		}))
	})

	t.Run("error keeps message", func(t *testing.T) {
		uc, repo, _ := newTestScanUseCase(t)
		docID := uuid.Must(uuid.NewV7())
		repo.put(scanDomain.Job{DocID: docID, Status: scanDomain.StatusRunning, Attempts: 1, StartedAt: ptr(fixedNow)})

		job, err := uc.Complete(ctx, docID, scanDomain.StatusError, "engine unavailable")
		require.NoError(t, err)
		assert.Equal(t, "engine unavailable", job.LastError)
		assert.Equal(t, fixedNow, *job.FinishedAt)
	})

	t.Run("not running", func(t *testing.T) {
		uc, repo, _ := newTestScanUseCase(t)
		docID := uuid.Must(uuid.NewV7())
		repo.put(scanDomain.Job{DocID: docID, Status: scanDomain.StatusQueued})

		_, err := uc.Complete(ctx, docID, scanDomain.StatusClean, "")
		assert.ErrorIs(t, err, scanDomain.ErrInvalidTransition)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.Equal(t, scanDomain.StatusQueued, repo.job(docID).Status)
	})

	t.Run("unknown job", func(t *testing.T) {
		uc, _, _ := newTestScanUseCase(t)

		_, err := uc.Complete(ctx, uuid.Must(uuid.NewV7()), scanDomain.StatusClean, "")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("invalid result", func(t *testing.T) {
		uc, _, _ := newTestScanUseCase(t)

		for _, status := range []scanDomain.Status{scanDomain.StatusQueued, scanDomain.StatusSkipped, "bogus"} {
			_, err := uc.Complete(ctx, uuid.Must(uuid.NewV7()), status, "")
			assert.ErrorIs(t, err, scanDomain.ErrInvalidResult)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		}
	})
}

func TestScanUseCase_Skip(t *testing.T) {
	ctx := context.Background()
	uc, repo, _ := newTestScanUseCase(t)
	docID := uuid.Must(uuid.NewV7())
	repo.put(scanDomain.Job{DocID: docID, Status: scanDomain.StatusQueued})

	job, err := uc.Skip(ctx, docID, "archived import")
	require.NoError(t, err)
	assert.Equal(t, scanDomain.StatusSkipped, job.Status)
	assert.Equal(t, scanDomain.StatusSkipped, repo.mirrored[docID])

	_, err = uc.Skip(ctx, uuid.Must(uuid.NewV7()), "x")
	assert.ErrorIs(t, err, scanDomain.ErrJobNotFound)
}

func TestScanUseCase_Heal(t *testing.T) {
	ctx := context.Background()

	t.Run("stale running requeued exactly once under concurrent heals", func(t *testing.T) {
		uc, repo, _ := newTestScanUseCase(t)
		stale := uuid.Must(uuid.NewV7())
		young := uuid.Must(uuid.NewV7())
		repo.put(scanDomain.Job{
			DocID:     stale,
			Status:    scanDomain.StatusRunning,
			Attempts:  1,
			StartedAt: ptr(fixedNow.Add(-45 * time.Minute)),
		})
		repo.put(scanDomain.Job{
			DocID:     young,
			Status:    scanDomain.StatusRunning,
			Attempts:  1,
			StartedAt: ptr(fixedNow.Add(-5 * time.Minute)),
		})

		const healers = 8
		results := make([]*scanDomain.HealResult, healers)
		var wg sync.WaitGroup
		for i := 0; i < healers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := uc.Heal(ctx, scanDomain.HealInput{})
				assert.NoError(t, err)
				results[i] = res
			}(i)
		}
		wg.Wait()

		total := 0
		for _, res := range results {
			require.NotNil(t, res)
			total += res.StaleRequeued
			assert.Zero(t, res.ErrorRequeued)
			assert.Zero(t, res.MaxAttemptJobs)
		}
		assert.Equal(t, 1, total)
		assert.Equal(t, scanDomain.StatusQueued, repo.job(stale).Status)
		assert.Equal(t, scanDomain.StatusRunning, repo.job(young).Status)
		assert.Equal(t, 1, repo.job(young).Attempts)
	})

	t.Run("errored job past retry delay requeued", func(t *testing.T) {
		uc, repo, _ := newTestScanUseCase(t)
		docID := uuid.Must(uuid.NewV7())
		recent := uuid.Must(uuid.NewV7())
		repo.put(scanDomain.Job{
			DocID:      docID,
			Status:     scanDomain.StatusError,
			Attempts:   1,
			FinishedAt: ptr(fixedNow.Add(-time.Hour)),
		})
		repo.put(scanDomain.Job{
			DocID:      recent,
			Status:     scanDomain.StatusError,
			Attempts:   1,
			FinishedAt: ptr(fixedNow.Add(-time.Minute)),
		})

		res, err := uc.Heal(ctx, scanDomain.HealInput{})
		require.NoError(t, err)
		assert.Equal(t, &scanDomain.HealResult{ErrorRequeued: 1}, res)
		assert.Equal(t, scanDomain.StatusQueued, repo.job(docID).Status)
		assert.Equal(t, scanDomain.StatusError, repo.job(recent).Status)
	})

	t.Run("attempts equal to max are never retried", func(t *testing.T) {
		uc, repo, _ := newTestScanUseCase(t)
		errored := uuid.Must(uuid.NewV7())
		running := uuid.Must(uuid.NewV7())
		repo.put(scanDomain.Job{
			DocID:      errored,
			Status:     scanDomain.StatusError,
			Attempts:   3,
			FinishedAt: ptr(fixedNow.Add(-time.Hour)),
		})
		repo.put(scanDomain.Job{
			DocID:     running,
			Status:    scanDomain.StatusRunning,
			Attempts:  3,
			StartedAt: ptr(fixedNow.Add(-time.Hour)),
		})

		res, err := uc.Heal(ctx, scanDomain.HealInput{})
		require.NoError(t, err)
		assert.Equal(t, &scanDomain.HealResult{MaxAttemptJobs: 2}, res)

		for _, docID := range []uuid.UUID{errored, running} {
			job := repo.job(docID)
			assert.Equal(t, scanDomain.StatusError, job.Status)
			assert.True(t, job.NeedsReview)
			assert.Equal(t, 3, job.Attempts)
		}

		// Flagged jobs are not candidates any more.
		res, err = uc.Heal(ctx, scanDomain.HealInput{})
		require.NoError(t, err)
		assert.Equal(t, &scanDomain.HealResult{}, res)
	})

	t.Run("explicit input overrides defaults", func(t *testing.T) {
		uc, repo, _ := newTestScanUseCase(t)
		docID := uuid.Must(uuid.NewV7())
		repo.put(scanDomain.Job{
			DocID:     docID,
			Status:    scanDomain.StatusRunning,
			Attempts:  3,
			StartedAt: ptr(fixedNow.Add(-10 * time.Minute)),
		})

		res, err := uc.Heal(ctx, scanDomain.HealInput{RunningTimeout: 5 * time.Minute, MaxAttempts: 10})
		require.NoError(t, err)
		assert.Equal(t, &scanDomain.HealResult{StaleRequeued: 1}, res)
	})

	t.Run("limit caps candidates across every category", func(t *testing.T) {
		uc, repo, _ := newTestScanUseCase(t)
		repo.put(scanDomain.Job{
			DocID:     uuid.Must(uuid.NewV7()),
			Status:    scanDomain.StatusRunning,
			Attempts:  1,
			StartedAt: ptr(fixedNow.Add(-10 * time.Minute)),
		})
		repo.put(scanDomain.Job{
			DocID:      uuid.Must(uuid.NewV7()),
			Status:     scanDomain.StatusError,
			Attempts:   1,
			FinishedAt: ptr(fixedNow.Add(-time.Hour)),
		})

		res, err := uc.Heal(ctx, scanDomain.HealInput{RunningTimeout: 5 * time.Minute, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 1, res.StaleRequeued+res.ErrorRequeued+res.MaxAttemptJobs)
	})
}

func TestScanUseCase_IsServable(t *testing.T) {
	ctx := context.Background()
	uc, repo, _ := newTestScanUseCase(t)

	clean := uuid.Must(uuid.NewV7())
	infected := uuid.Must(uuid.NewV7())
	overridden := uuid.Must(uuid.NewV7())
	expired := uuid.Must(uuid.NewV7())
	unscanned := uuid.Must(uuid.NewV7())

	repo.put(scanDomain.Job{DocID: clean, Status: scanDomain.StatusClean})
	repo.put(scanDomain.Job{DocID: infected, Status: scanDomain.StatusInfected})
	repo.put(scanDomain.Job{DocID: overridden, Status: scanDomain.StatusInfected})
	repo.put(scanDomain.Job{DocID: expired, Status: scanDomain.StatusError})
	repo.overrides = []scanDomain.QuarantineOverride{
		{DocID: overridden, ExpiresAt: fixedNow.Add(time.Hour)},
		{DocID: expired, ExpiresAt: fixedNow.Add(-time.Second)},
	}

	tests := []struct {
		name  string
		docID uuid.UUID
		want  bool
	}{
		{"clean", clean, true},
		{"infected", infected, false},
		{"active override", overridden, true},
		{"expired override", expired, false},
		{"no job", unscanned, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := uc.IsServable(ctx, tt.docID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestScanUseCase_GrantQuarantineOverride(t *testing.T) {
	ctx := auditDomain.WithActor(context.Background(), "client:owner")

	t.Run("grants time-boxed override", func(t *testing.T) {
		uc, repo, audit := newTestScanUseCase(t)
		docID := uuid.Must(uuid.NewV7())
		repo.put(scanDomain.Job{DocID: docID, Status: scanDomain.StatusInfected})

		override, err := uc.GrantQuarantineOverride(ctx, docID, " false positive ", time.Hour, "")
		require.NoError(t, err)
		assert.Equal(t, "client:owner", override.GrantedBy)
		assert.Equal(t, "false positive", override.Reason)
		assert.Equal(t, fixedNow.Add(time.Hour), override.ExpiresAt)

		ok, err := uc.IsServable(ctx, docID)
		require.NoError(t, err)
		assert.True(t, ok)
		audit.AssertCalled(t, "Append", mock.Anything, mock.MatchedBy(func(in *auditDomain.AppendInput) bool {
			return in.Action == auditDomain.ActionQuarantineOverride && in.Subject == docID.String()
		}))
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		uc, _, _ := newTestScanUseCase(t)
		docID := uuid.Must(uuid.NewV7())

		_, err := uc.GrantQuarantineOverride(ctx, docID, "reason", 0, "")
		assert.ErrorIs(t, err, scanDomain.ErrInvalidOverrideTTL)

		_, err = uc.GrantQuarantineOverride(ctx, docID, "   ", time.Hour, "")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}
