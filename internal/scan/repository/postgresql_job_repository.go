// Package repository implements persistence of scan jobs and quarantine overrides.
//
// Every transition is a single conditional UPDATE guarded by the job's current status.
// Concurrent claimers and healers race on the WHERE clause and the loser observes zero
// affected rows instead of overwriting the winner.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/docvault/internal/database"
	apperrors "github.com/allisson/docvault/internal/errors"
	scanDomain "github.com/allisson/docvault/internal/scan/domain"
)

const jobColumns = `doc_id, storage_key, status, attempts, last_error, needs_review, started_at, finished_at, created_at, updated_at`

// PostgreSQLJobRepository implements scan job persistence for PostgreSQL.
type PostgreSQLJobRepository struct {
	db *sql.DB
}

func (p *PostgreSQLJobRepository) Get(ctx context.Context, docID uuid.UUID) (*scanDomain.Job, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + jobColumns + ` FROM scan_jobs WHERE doc_id = $1`

	return p.scanJob(querier.QueryRowContext(ctx, query, docID), scanDomain.ErrJobNotFound)
}

func (p *PostgreSQLJobRepository) Create(ctx context.Context, job *scanDomain.Job) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO scan_jobs (doc_id, storage_key, status, attempts, last_error, needs_review, started_at, finished_at, created_at, updated_at) 
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := querier.ExecContext(
		ctx,
		query,
		job.DocID,
		job.StorageKey,
		job.Status,
		job.Attempts,
		job.LastError,
		job.NeedsReview,
		job.StartedAt,
		job.FinishedAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create scan job")
	}
	return nil
}

func (p *PostgreSQLJobRepository) Requeue(
	ctx context.Context,
	docID uuid.UUID,
	storageKey string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE scan_jobs 
			  SET status = 'queued', storage_key = $1, last_error = '', needs_review = FALSE, 
			      started_at = NULL, finished_at = NULL, updated_at = $2 
			  WHERE doc_id = $3 AND status IN ('clean', 'infected', 'error', 'skipped')`

	return p.exec(ctx, querier, "failed to requeue scan job", query, storageKey, now, docID)
}

func (p *PostgreSQLJobRepository) NextQueued(ctx context.Context) (*scanDomain.Job, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + jobColumns + ` FROM scan_jobs 
			  WHERE status = 'queued' 
			  ORDER BY updated_at ASC, doc_id ASC 
			  LIMIT 1 
			  FOR UPDATE SKIP LOCKED`

	return p.scanJob(querier.QueryRowContext(ctx, query), scanDomain.ErrQueueEmpty)
}

func (p *PostgreSQLJobRepository) MarkRunning(ctx context.Context, docID uuid.UUID, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE scan_jobs 
			  SET status = 'running', attempts = attempts + 1, started_at = $1, finished_at = NULL, updated_at = $1 
			  WHERE doc_id = $2 AND status = 'queued'`

	return p.exec(ctx, querier, "failed to mark scan job running", query, now, docID)
}

func (p *PostgreSQLJobRepository) Finish(
	ctx context.Context,
	docID uuid.UUID,
	status scanDomain.Status,
	lastError string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE scan_jobs 
			  SET status = $1, last_error = $2, finished_at = $3, updated_at = $3 
			  WHERE doc_id = $4 AND status = 'running'`

	return p.exec(ctx, querier, "failed to finish scan job", query, status, lastError, now, docID)
}

func (p *PostgreSQLJobRepository) MarkSkipped(
	ctx context.Context,
	docID uuid.UUID,
	reason string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE scan_jobs 
			  SET status = 'skipped', last_error = $1, finished_at = $2, updated_at = $2 
			  WHERE doc_id = $3`

	return p.exec(ctx, querier, "failed to skip scan job", query, reason, now, docID)
}

func (p *PostgreSQLJobRepository) ListHealCandidates(
	ctx context.Context,
	runningCutoff, retryCutoff time.Time,
	maxAttempts, limit int,
) ([]*scanDomain.Job, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + jobColumns + ` FROM scan_jobs 
			  WHERE needs_review = FALSE 
			    AND ((status = 'running' AND started_at < $1) 
			      OR (status = 'error' AND (finished_at < $2 OR attempts >= $3))) 
			  ORDER BY updated_at ASC, doc_id ASC 
			  LIMIT $4`

	rows, err := querier.QueryContext(ctx, query, runningCutoff, retryCutoff, maxAttempts, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list scan heal candidates")
	}
	defer func() {
		_ = rows.Close()
	}()

	jobs := make([]*scanDomain.Job, 0)
	for rows.Next() {
		job, err := p.scanJob(rows, nil)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate scan jobs")
	}
	return jobs, nil
}

func (p *PostgreSQLJobRepository) RequeueStale(
	ctx context.Context,
	docID uuid.UUID,
	cutoff time.Time,
	maxAttempts int,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE scan_jobs 
			  SET status = 'queued', last_error = 'scan timed out', updated_at = $1 
			  WHERE doc_id = $2 AND status = 'running' AND started_at < $3 AND attempts < $4 AND needs_review = FALSE`

	return p.exec(ctx, querier, "failed to requeue stale scan job", query, now, docID, cutoff, maxAttempts)
}

func (p *PostgreSQLJobRepository) RequeueError(
	ctx context.Context,
	docID uuid.UUID,
	cutoff time.Time,
	maxAttempts int,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE scan_jobs 
			  SET status = 'queued', updated_at = $1 
			  WHERE doc_id = $2 AND status = 'error' AND finished_at < $3 AND attempts < $4 AND needs_review = FALSE`

	return p.exec(ctx, querier, "failed to requeue errored scan job", query, now, docID, cutoff, maxAttempts)
}

func (p *PostgreSQLJobRepository) FlagForReview(
	ctx context.Context,
	docID uuid.UUID,
	runningCutoff time.Time,
	maxAttempts int,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE scan_jobs 
			  SET last_error = CASE WHEN status = 'running' THEN 'scan timed out' ELSE last_error END, 
			      finished_at = CASE WHEN status = 'running' THEN $1 ELSE finished_at END, 
			      status = 'error', needs_review = TRUE, updated_at = $1 
			  WHERE doc_id = $2 AND needs_review = FALSE AND attempts >= $3 
			    AND (status = 'error' OR (status = 'running' AND started_at < $4))`

	return p.exec(ctx, querier, "failed to flag scan job for review", query, now, docID, maxAttempts, runningCutoff)
}

func (p *PostgreSQLJobRepository) MirrorDocumentStatus(
	ctx context.Context,
	docID uuid.UUID,
	status scanDomain.Status,
	now time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE documents SET scan_status = $1, updated_at = $2 WHERE id = $3`

	if _, err := querier.ExecContext(ctx, query, status, now, docID); err != nil {
		return apperrors.Wrap(err, "failed to update document scan status")
	}
	return nil
}

func (p *PostgreSQLJobRepository) CreateOverride(ctx context.Context, override *scanDomain.QuarantineOverride) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO quarantine_overrides (id, doc_id, reason, granted_by, expires_at, created_at) 
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		override.ID,
		override.DocID,
		override.Reason,
		override.GrantedBy,
		override.ExpiresAt,
		override.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create quarantine override")
	}
	return nil
}

func (p *PostgreSQLJobRepository) HasActiveOverride(ctx context.Context, docID uuid.UUID, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(*) FROM quarantine_overrides WHERE doc_id = $1 AND expires_at > $2`

	var count int
	if err := querier.QueryRowContext(ctx, query, docID, now).Scan(&count); err != nil {
		return false, apperrors.Wrap(err, "failed to check quarantine overrides")
	}
	return count > 0, nil
}

// NewPostgreSQLJobRepository creates a new PostgreSQL scan job repository.
func NewPostgreSQLJobRepository(db *sql.DB) *PostgreSQLJobRepository {
	return &PostgreSQLJobRepository{db: db}
}

func (p *PostgreSQLJobRepository) exec(
	ctx context.Context,
	querier database.Querier,
	msg, query string,
	args ...any,
) (bool, error) {
	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.Wrap(err, msg)
	}
	return rowsChanged(result)
}

// CountByStatus returns the number of jobs in each status. Statuses without jobs are absent.
func (p *PostgreSQLJobRepository) CountByStatus(ctx context.Context) (map[scanDomain.Status]int64, error) {
	return countJobsByStatus(ctx, database.GetTx(ctx, p.db))
}

// scanJob maps sql.ErrNoRows to notFound.
func (p *PostgreSQLJobRepository) scanJob(row rowScanner, notFound error) (*scanDomain.Job, error) {
	var job scanDomain.Job
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(
		&job.DocID,
		&job.StorageKey,
		&job.Status,
		&job.Attempts,
		&job.LastError,
		&job.NeedsReview,
		&startedAt,
		&finishedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if notFound != nil && errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, apperrors.Wrap(err, "failed to scan scan job")
	}

	job.StartedAt = nullTime(startedAt)
	job.FinishedAt = nullTime(finishedAt)
	return &job, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func rowsChanged(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}

// countJobsByStatus runs the same GROUP BY on both drivers.
func countJobsByStatus(ctx context.Context, querier database.Querier) (map[scanDomain.Status]int64, error) {
	rows, err := querier.QueryContext(ctx, `SELECT status, COUNT(*) FROM scan_jobs GROUP BY status`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count scan jobs")
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[scanDomain.Status]int64)
	for rows.Next() {
		var status scanDomain.Status
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan job count")
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate job counts")
	}
	return counts, nil
}
