// Package domain defines the hash-chained audit ledger model.
//
// Every security-relevant state change is appended to a named stream. Within a stream,
// events are numbered 1..N with no gaps and each event commits to the hash of its
// predecessor, so any retroactive edit, deletion or reordering is detectable by Verify.
package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is a single immutable ledger entry.
//
// EventHash covers StreamKey, Seq, OccurredAt, Action, PreviousHash and the hash of
// the canonical Payload. Actor and Subject are stored for querying but are not part
// of the hash input.
type Event struct {
	ID           uuid.UUID
	StreamKey    string
	Seq          int64
	PreviousHash string
	EventHash    string
	Action       string
	Payload      json.RawMessage // canonical JSON, keys sorted
	Actor        string
	Subject      string
	OccurredAt   time.Time
}

// Stream is the head row of a stream: the sequence number and hash of its latest event.
// Appends lock this row to serialize writers of the same stream.
type Stream struct {
	StreamKey string
	LastSeq   int64
	LastHash  string
	UpdatedAt time.Time
}

// AppendInput describes an event to append.
type AppendInput struct {
	StreamKey string
	Action    string
	Payload   map[string]any
	// Actor defaults to the actor carried by the context.
	Actor   string
	Subject string
	// Strict, when set, overrides the ledger-wide strict mode for this call.
	Strict *bool
}

// VerifyResult reports the outcome of walking a stream.
type VerifyResult struct {
	StreamKey string `json:"stream_key"`
	OK        bool   `json:"ok"`
	// FirstBadSeq is the first sequence number that failed verification.
	FirstBadSeq *int64 `json:"first_bad_seq,omitempty"`
	// Reason describes the first failure.
	Reason  string `json:"reason,omitempty"`
	Checked int64  `json:"checked"`
}

type actorKey struct{}

// WithActor stores the acting principal used for events appended with an empty Actor.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor, or "system".
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return "system"
}

// Strict is a helper for AppendInput.Strict.
func Strict(v bool) *bool {
	return &v
}
