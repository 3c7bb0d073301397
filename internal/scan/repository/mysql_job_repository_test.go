package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scanDomain "github.com/allisson/docvault/internal/scan/domain"
)

func TestMySQLJobRepository_Get(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLJobRepository(db)
	docID := uuid.Must(uuid.NewV7())
	id, _ := docID.MarshalBinary()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM scan_jobs WHERE doc_id = ?")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(jobRowColumns).
			AddRow(id, "docs/a", "clean", 1, "", false, now, now, now, now))

	job, err := repo.Get(context.Background(), docID)
	require.NoError(t, err)
	assert.Equal(t, docID, job.DocID)
	assert.Equal(t, scanDomain.StatusClean, job.Status)
	require.NotNil(t, job.FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLJobRepository_Finish(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLJobRepository(db)
	docID := uuid.Must(uuid.NewV7())
	id, _ := docID.MarshalBinary()
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("WHERE doc_id = ? AND status = 'running'")).
		WithArgs("error", "engine crashed", now, now, id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Finish(context.Background(), docID, scanDomain.StatusError, "engine crashed", now)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLJobRepository_FlagForReview(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLJobRepository(db)
	docID := uuid.Must(uuid.NewV7())
	id, _ := docID.MarshalBinary()
	now := time.Now().UTC()
	cutoff := now.Add(-time.Hour)

	mock.ExpectExec(`SET last_error = CASE[\s\S]+status = 'error', needs_review = TRUE`).
		WithArgs(now, now, id, 3, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.FlagForReview(context.Background(), docID, cutoff, 3, now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLJobRepository_Requeue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLJobRepository(db)
	docID := uuid.Must(uuid.NewV7())
	id, _ := docID.MarshalBinary()
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("status IN ('clean', 'infected', 'error', 'skipped')")).
		WithArgs("docs/b", now, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Requeue(context.Background(), docID, "docs/b", now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
