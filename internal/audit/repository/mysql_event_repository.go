package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
	"github.com/allisson/docvault/internal/database"
	apperrors "github.com/allisson/docvault/internal/errors"
)

// MySQLEventRepository implements audit event persistence for MySQL.
// Event ids are stored as BINARY(16).
type MySQLEventRepository struct {
	db *sql.DB
}

// LockStreamHead selects the stream head FOR UPDATE. Must run inside a transaction.
func (m *MySQLEventRepository) LockStreamHead(ctx context.Context, streamKey string) (*auditDomain.Stream, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT stream_key, last_seq, last_hash, updated_at 
			  FROM audit_streams 
			  WHERE stream_key = ? 
			  FOR UPDATE`

	return m.scanStream(querier.QueryRowContext(ctx, query, streamKey))
}

func (m *MySQLEventRepository) CreateStreamHead(ctx context.Context, streamKey string, now time.Time) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO audit_streams (stream_key, last_seq, last_hash, updated_at) VALUES (?, 0, '', ?)`

	if _, err := querier.ExecContext(ctx, query, streamKey, now); err != nil {
		return apperrors.Wrap(err, "failed to create audit stream head")
	}
	return nil
}

func (m *MySQLEventRepository) UpdateStreamHead(
	ctx context.Context,
	streamKey string,
	lastSeq int64,
	lastHash string,
	now time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE audit_streams SET last_seq = ?, last_hash = ?, updated_at = ? WHERE stream_key = ?`

	if _, err := querier.ExecContext(ctx, query, lastSeq, lastHash, now, streamKey); err != nil {
		return apperrors.Wrap(err, "failed to update audit stream head")
	}
	return nil
}

func (m *MySQLEventRepository) Create(ctx context.Context, event *auditDomain.Event) error {
	querier := database.GetTx(ctx, m.db)

	id, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit event id")
	}

	query := `INSERT INTO audit_events (id, stream_key, seq, previous_hash, event_hash, action, payload, actor, subject, occurred_at) 
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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

func (m *MySQLEventRepository) ListByStream(
	ctx context.Context,
	streamKey string,
	afterSeq int64,
	limit int,
) ([]*auditDomain.Event, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, stream_key, seq, previous_hash, event_hash, action, payload, actor, subject, occurred_at 
			  FROM audit_events 
			  WHERE stream_key = ? AND seq > ? 
			  ORDER BY seq ASC 
			  LIMIT ?`

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
		var id []byte
		var payload string

		err := rows.Scan(
			&id,
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

		event.ID, err = uuid.FromBytes(id)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit event id")
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

func (m *MySQLEventRepository) GetStream(ctx context.Context, streamKey string) (*auditDomain.Stream, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT stream_key, last_seq, last_hash, updated_at FROM audit_streams WHERE stream_key = ?`

	return m.scanStream(querier.QueryRowContext(ctx, query, streamKey))
}

func (m *MySQLEventRepository) ListStreams(ctx context.Context) ([]*auditDomain.Stream, error) {
	querier := database.GetTx(ctx, m.db)

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

func (m *MySQLEventRepository) scanStream(row *sql.Row) (*auditDomain.Stream, error) {
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

// NewMySQLEventRepository creates a new MySQL audit event repository.
func NewMySQLEventRepository(db *sql.DB) *MySQLEventRepository {
	return &MySQLEventRepository{db: db}
}
