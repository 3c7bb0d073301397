// Package dto provides data transfer objects for the audit HTTP API.
package dto

import (
	"encoding/json"
	"time"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
)

// EventResponse represents an audit event in API responses.
type EventResponse struct {
	ID           string          `json:"id"`
	StreamKey    string          `json:"stream_key"`
	Seq          int64           `json:"seq"`
	PreviousHash string          `json:"previous_hash"`
	EventHash    string          `json:"event_hash"`
	Action       string          `json:"action"`
	Payload      json.RawMessage `json:"payload"`
	Actor        string          `json:"actor"`
	Subject      string          `json:"subject,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// ListEventsResponse is a page of events in seq order.
type ListEventsResponse struct {
	Data []EventResponse `json:"data"`
}

// MapEventsToListResponse converts domain events to a list response.
func MapEventsToListResponse(events []*auditDomain.Event) ListEventsResponse {
	data := make([]EventResponse, 0, len(events))
	for _, e := range events {
		data = append(data, EventResponse{
			ID:           e.ID.String(),
			StreamKey:    e.StreamKey,
			Seq:          e.Seq,
			PreviousHash: e.PreviousHash,
			EventHash:    e.EventHash,
			Action:       e.Action,
			Payload:      e.Payload,
			Actor:        e.Actor,
			Subject:      e.Subject,
			OccurredAt:   e.OccurredAt,
		})
	}
	return ListEventsResponse{Data: data}
}

// StreamResponse represents a stream head.
type StreamResponse struct {
	StreamKey string    `json:"stream_key"`
	LastSeq   int64     `json:"last_seq"`
	LastHash  string    `json:"last_hash"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListStreamsResponse lists all stream heads.
type ListStreamsResponse struct {
	Data []StreamResponse `json:"data"`
}

// MapStreamsToListResponse converts stream heads to a list response.
func MapStreamsToListResponse(streams []*auditDomain.Stream) ListStreamsResponse {
	data := make([]StreamResponse, 0, len(streams))
	for _, s := range streams {
		data = append(data, StreamResponse{
			StreamKey: s.StreamKey,
			LastSeq:   s.LastSeq,
			LastHash:  s.LastHash,
			UpdatedAt: s.UpdatedAt,
		})
	}
	return ListStreamsResponse{Data: data}
}
