// Package repository implements audit ledger persistence for PostgreSQL and MySQL.
//
// Events live in audit_events with a unique (stream_key, seq) constraint. Each stream has a
// head row in audit_streams holding the latest seq and hash; appends lock that row with
// SELECT ... FOR UPDATE so concurrent writers of one stream are serialized by the database.
// No update or delete statement is ever issued against audit_events.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
	"github.com/allisson/docvault/internal/database"
	apperrors "github.com/allisson/docvault/internal/errors"
)

// PostgreSQLEventRepository implements audit event persistence for PostgreSQL.
type PostgreSQLEventRepository struct {
	db *sql.DB
}

// LockStreamHead selects the stream head FOR UPDATE. Must run inside a transaction.
func (p *PostgreSQLEventRepository) LockStreamHead(
	ctx context.Context,
	streamKey string,
) (*auditDomain.Stream, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT stream_key, last_seq, last_hash, updated_at 
			  FROM audit_streams 
			  WHERE stream_key = $1 
			  FOR UPDATE`

	return p.scanStream(querier.QueryRowContext(ctx, query, streamKey))
}

func (p *PostgreSQLEventRepository) CreateStreamHead(ctx context.Context, streamKey string, now time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO audit_streams (stream_key, last_seq, last_hash, updated_at) 
			  VALUES ($1, 0, '', $2)`

	if _, err := querier.ExecContext(ctx, query, streamKey, now); err != nil {
		return apperrors.Wrap(err, "failed to create audit stream head")
	}
	return nil
}

func (p *PostgreSQLEventRepository) UpdateStreamHead(
	ctx context.Context,
	streamKey string,
	lastSeq int64,
	lastHash string,
	now time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE audit_streams SET last_seq = $1, last_hash = $2, updated_at = $3 
			  WHERE stream_key = $4`

	if _, err := querier.ExecContext(ctx, query, lastSeq, lastHash, now, streamKey); err != nil {
		return apperrors.Wrap(err, "failed to update audit stream head")
	}
	return nil
}

// Create inserts an event. The payload is stored as TEXT, never JSONB, so the exact
// canonical bytes that were hashed come back unchanged.
func (p *PostgreSQLEventRepository) Create(ctx context.Context, event *auditDomain.Event) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO audit_events (id, stream_key, seq, previous_hash, event_hash, action, payload, actor, subject, occurred_at) 
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID,
		event.StreamKey,
		event.Seq,
		event.PreviousHash,
		event.EventHash,
		event.Action,
		string(event.Payload),
		event.Actor,
		event.Subject,
		event.OccurredAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit event")
	}
	return nil
}

func (p *PostgreSQLEventRepository) ListByStream(
	ctx context.Context,
	streamKey string,
	afterSeq int64,
	limit int,
) ([]*auditDomain.Event, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, stream_key, seq, previous_hash, event_hash, action, payload, actor, subject, occurred_at 
			  FROM audit_events 
			  WHERE stream_key = $1 AND seq > $2 
			  ORDER BY seq ASC 
			  LIMIT $3`

	rows, err := querier.QueryContext(ctx, query, streamKey, afterSeq, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	defer func() {
		_ = rows.Close()
	}()

	events := make([]*auditDomain.Event, 0)
	for rows.Next() {
		var event auditDomain.Event
		var payload string

		err := rows.Scan(
			&event.ID,
			&event.StreamKey,
			&event.Seq,
			&event.PreviousHash,
			&event.EventHash,
			&event.Action,
			&payload,
			&event.Actor,
			&event.Subject,
			&event.OccurredAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit event")
		}
		event.Payload = []byte(payload)
		event.OccurredAt = event.OccurredAt.UTC()

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit events")
	}
	return events, nil
}

func (p *PostgreSQLEventRepository) GetStream(ctx context.Context, streamKey string) (*auditDomain.Stream, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT stream_key, last_seq, last_hash, updated_at FROM audit_streams WHERE stream_key = $1`

	return p.scanStream(querier.QueryRowContext(ctx, query, streamKey))
}

func (p *PostgreSQLEventRepository) ListStreams(ctx context.Context) ([]*auditDomain.Stream, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT stream_key, last_seq, last_hash, updated_at FROM audit_streams ORDER BY stream_key ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit streams")
	}
	defer func() {
		_ = rows.Close()
	}()

	streams := make([]*auditDomain.Stream, 0)
	for rows.Next() {
		var stream auditDomain.Stream
		if err := rows.Scan(&stream.StreamKey, &stream.LastSeq, &stream.LastHash, &stream.UpdatedAt); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit stream")
		}
		streams = append(streams, &stream)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit streams")
	}
	return streams, nil
}

func (p *PostgreSQLEventRepository) scanStream(row *sql.Row) (*auditDomain.Stream, error) {
	var stream auditDomain.Stream
	err := row.Scan(&stream.StreamKey, &stream.LastSeq, &stream.LastHash, &stream.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auditDomain.ErrStreamNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get audit stream")
	}
	return &stream, nil
}

// NewPostgreSQLEventRepository creates a new PostgreSQL audit event repository.
func NewPostgreSQLEventRepository(db *sql.DB) *PostgreSQLEventRepository {
	return &PostgreSQLEventRepository{db: db}
}
