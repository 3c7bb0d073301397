// Package service implements the hashing primitives of the audit ledger.
package service

import (
	auditDomain "github.com/allisson/docvault/internal/audit/domain"
)

// ChainHasher computes the canonical payload form and the chained event hash.
type ChainHasher interface {
	// Canonicalize returns a deterministic, key-sorted JSON encoding of payload.
	Canonicalize(payload any) ([]byte, error)

	// PayloadHash returns the hex SHA-256 of a canonical payload.
	PayloadHash(canonical []byte) string

	// EventHash returns the hex SHA-256 over the event's chained fields.
	EventHash(event *auditDomain.Event, payloadHash string) string
}
