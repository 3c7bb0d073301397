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

// MySQLJobRepository implements scan job persistence for MySQL. Document ids are stored
// as BINARY(16).
type MySQLJobRepository struct {
	db *sql.DB
}

func (m *MySQLJobRepository) Get(ctx context.Context, docID uuid.UUID) (*scanDomain.Job, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalID(docID)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + jobColumns + ` FROM scan_jobs WHERE doc_id = ?`

	return m.scanJob(querier.QueryRowContext(ctx, query, id), scanDomain.ErrJobNotFound)
}

func (m *MySQLJobRepository) Create(ctx context.Context, job *scanDomain.Job) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalID(job.DocID)
	if err != nil {
		return err
	}

	query := `INSERT INTO scan_jobs (doc_id, storage_key, status, attempts, last_error, needs_review, started_at, finished_at, created_at, updated_at) 
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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

func (m *MySQLJobRepository) Requeue(
	ctx context.Context,
	docID uuid.UUID,
	storageKey string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalID(docID)
	if err != nil {
		return false, err
	}

	query := `UPDATE scan_jobs 
			  SET status = 'queued', storage_key = ?, last_error = '', needs_review = FALSE, 
			      started_at = NULL, finished_at = NULL, updated_at = ? 
			  WHERE doc_id = ? AND status IN ('clean', 'infected', 'error', 'skipped')`

	return m.exec(ctx, querier, "failed to requeue scan job", query, storageKey, now, id)
}

func (m *MySQLJobRepository) NextQueued(ctx context.Context) (*scanDomain.Job, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + jobColumns + ` FROM scan_jobs 
			  WHERE status = 'queued' 
			  ORDER BY updated_at ASC, doc_id ASC 
			  LIMIT 1 
			  FOR UPDATE SKIP LOCKED`

	return m.scanJob(querier.QueryRowContext(ctx, query), scanDomain.ErrQueueEmpty)
}

func (m *MySQLJobRepository) MarkRunning(ctx context.Context, docID uuid.UUID, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalID(docID)
	if err != nil {
		return false, err
	}

	query := `UPDATE scan_jobs 
			  SET status = 'running', attempts = attempts + 1, started_at = ?, finished_at = NULL, updated_at = ? 
			  WHERE doc_id = ? AND status = 'queued'`

	return m.exec(ctx, querier, "failed to mark scan job running", query, now, now, id)
}

func (m *MySQLJobRepository) Finish(
	ctx context.Context,
	docID uuid.UUID,
	status scanDomain.Status,
	lastError string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalID(docID)
	if err != nil {
		return false, err
	}

	query := `UPDATE scan_jobs 
			  SET status = ?, last_error = ?, finished_at = ?, updated_at = ? 
			  WHERE doc_id = ? AND status = 'running'`

	return m.exec(ctx, querier, "failed to finish scan job", query, status, lastError, now, now, id)
}

func (m *MySQLJobRepository) MarkSkipped(
	ctx context.Context,
	docID uuid.UUID,
	reason string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalID(docID)
	if err != nil {
		return false, err
	}

	query := `UPDATE scan_jobs 
			  SET status = 'skipped', last_error = ?, finished_at = ?, updated_at = ? 
			  WHERE doc_id = ?`

	return m.exec(ctx, querier, "failed to skip scan job", query, reason, now, now, id)
}

func (m *MySQLJobRepository) ListHealCandidates(
	ctx context.Context,
	runningCutoff, retryCutoff time.Time,
	maxAttempts, limit int,
) ([]*scanDomain.Job, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + jobColumns + ` FROM scan_jobs 
			  WHERE needs_review = FALSE 
			    AND ((status = 'running' AND started_at < ?) 
			      OR (status = 'error' AND (finished_at < ? OR attempts >= ?))) 
			  ORDER BY updated_at ASC, doc_id ASC 
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, runningCutoff, retryCutoff, maxAttempts, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list scan heal candidates")
	}
	defer func() {
		_ = rows.Close()
	}()

	jobs := make([]*scanDomain.Job, 0)
	for rows.Next() {
		job, err := m.scanJob(rows, nil)
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

func (m *MySQLJobRepository) RequeueStale(
	ctx context.Context,
	docID uuid.UUID,
	cutoff time.Time,
	maxAttempts int,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalID(docID)
	if err != nil {
		return false, err
	}

	query := `UPDATE scan_jobs 
			  SET status = 'queued', last_error = 'scan timed out', updated_at = ? 
			  WHERE doc_id = ? AND status = 'running' AND started_at < ? AND attempts < ? AND needs_review = FALSE`

	return m.exec(ctx, querier, "failed to requeue stale scan job", query, now, id, cutoff, maxAttempts)
}

func (m *MySQLJobRepository) RequeueError(
	ctx context.Context,
	docID uuid.UUID,
	cutoff time.Time,
	maxAttempts int,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalID(docID)
	if err != nil {
		return false, err
	}

	query := `UPDATE scan_jobs 
			  SET status = 'queued', updated_at = ? 
			  WHERE doc_id = ? AND status = 'error' AND finished_at < ? AND attempts < ? AND needs_review = FALSE`

	return m.exec(ctx, querier, "failed to requeue errored scan job", query, now, id, cutoff, maxAttempts)
}

// FlagForReview assigns status last: MySQL evaluates SET clauses left to right, so the
// CASE expressions must still see the old status.
func (m *MySQLJobRepository) FlagForReview(
	ctx context.Context,
	docID uuid.UUID,
	runningCutoff time.Time,
	maxAttempts int,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalID(docID)
	if err != nil {
		return false, err
	}

	query := `UPDATE scan_jobs 
			  SET last_error = CASE WHEN status = 'running' THEN 'scan timed out' ELSE last_error END, 
			      finished_at = CASE WHEN status = 'running' THEN ? ELSE finished_at END, 
			      status = 'error', needs_review = TRUE, updated_at = ? 
			  WHERE doc_id = ? AND needs_review = FALSE AND attempts >= ? 
			    AND (status = 'error' OR (status = 'running' AND started_at < ?))`

	return m.exec(ctx, querier, "failed to flag scan job for review", query, now, now, id, maxAttempts, runningCutoff)
}

func (m *MySQLJobRepository) MirrorDocumentStatus(
	ctx context.Context,
	docID uuid.UUID,
	status scanDomain.Status,
	now time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalID(docID)
	if err != nil {
		return err
	}

	query := `UPDATE documents SET scan_status = ?, updated_at = ? WHERE id = ?`

	if _, err := querier.ExecContext(ctx, query, status, now, id); err != nil {
		return apperrors.Wrap(err, "failed to update document scan status")
	}
	return nil
}

func (m *MySQLJobRepository) CreateOverride(ctx context.Context, override *scanDomain.QuarantineOverride) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalID(override.ID)
	if err != nil {
		return err
	}
	docID, err := marshalID(override.DocID)
	if err != nil {
		return err
	}

	query := `INSERT INTO quarantine_overrides (id, doc_id, reason, granted_by, expires_at, created_at) 
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		docID,
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

func (m *MySQLJobRepository) HasActiveOverride(ctx context.Context, docID uuid.UUID, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalID(docID)
	if err != nil {
		return false, err
	}

	query := `SELECT COUNT(*) FROM quarantine_overrides WHERE doc_id = ? AND expires_at > ?`

	var count int
	if err := querier.QueryRowContext(ctx, query, id, now).Scan(&count); err != nil {
		return false, apperrors.Wrap(err, "failed to check quarantine overrides")
	}
	return count > 0, nil
}

func (m *MySQLJobRepository) CountByStatus(ctx context.Context) (map[scanDomain.Status]int64, error) {
	return countJobsByStatus(ctx, database.GetTx(ctx, m.db))
}

// NewMySQLJobRepository creates a new MySQL scan job repository.
func NewMySQLJobRepository(db *sql.DB) *MySQLJobRepository {
	return &MySQLJobRepository{db: db}
}

func (m *MySQLJobRepository) exec(
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

func (m *MySQLJobRepository) scanJob(row rowScanner, notFound error) (*scanDomain.Job, error) {
	var job scanDomain.Job
	var docID []byte
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(
		&docID,
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

	job.DocID, err = uuid.FromBytes(docID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal scan job id")
	}
	job.StartedAt = nullTime(startedAt)
	job.FinishedAt = nullTime(finishedAt)
	return &job, nil
}

func marshalID(id uuid.UUID) ([]byte, error) {
	b, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal id")
	}
	return b, nil
}
