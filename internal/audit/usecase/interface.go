// Package usecase implements the audit ledger operations.
package usecase

import (
	"context"
	"time"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
)

// EventRepository persists audit events and stream heads. All methods are transaction-aware
// through the context.
type EventRepository interface {
	// LockStreamHead returns the stream head locked for update until the transaction ends.
	// Returns ErrStreamNotFound when the stream has no head yet.
	LockStreamHead(ctx context.Context, streamKey string) (*auditDomain.Stream, error)

	// CreateStreamHead inserts an empty head (last_seq 0). A concurrent creator makes this
	// fail with a unique violation.
	CreateStreamHead(ctx context.Context, streamKey string, now time.Time) error

	// UpdateStreamHead advances the head after an insert.
	UpdateStreamHead(ctx context.Context, streamKey string, lastSeq int64, lastHash string, now time.Time) error

	// Create inserts an event. (stream_key, seq) is unique.
	Create(ctx context.Context, event *auditDomain.Event) error

	// ListByStream returns up to limit events with seq > afterSeq in seq order.
	ListByStream(ctx context.Context, streamKey string, afterSeq int64, limit int) ([]*auditDomain.Event, error)

	// GetStream returns the head of a stream without locking it.
	GetStream(ctx context.Context, streamKey string) (*auditDomain.Stream, error)

	// ListStreams returns all stream heads ordered by key.
	ListStreams(ctx context.Context) ([]*auditDomain.Stream, error)
}

// AuditUseCase is the append-only, hash-chained ledger.
type AuditUseCase interface {
	// Append records an event at the end of its stream. Unless strict mode applies, a
	// failure is logged and nil, nil is returned so the audited operation proceeds.
	Append(ctx context.Context, input *auditDomain.AppendInput) (*auditDomain.Event, error)

	// List returns events of a stream in seq order, skipping the first offset events.
	List(ctx context.Context, streamKey string, offset, limit int) ([]*auditDomain.Event, error)

	// Verify recomputes the chain of a stream.
	Verify(ctx context.Context, streamKey string) (*auditDomain.VerifyResult, error)

	// ListStreams returns every known stream head.
	ListStreams(ctx context.Context) ([]*auditDomain.Stream, error)

	// VerifyAll verifies every stream.
	VerifyAll(ctx context.Context) ([]*auditDomain.VerifyResult, error)
}
