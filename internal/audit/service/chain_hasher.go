package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
)

type chainHasher struct{}

// NewChainHasher creates a ChainHasher using SHA-256.
func NewChainHasher() ChainHasher {
	return &chainHasher{}
}

// Canonicalize round-trips payload through a generic JSON value so that map key order,
// struct field order and number formatting cannot change the resulting bytes.
// encoding/json sorts map keys on output; UseNumber keeps numeric literals intact.
func (h *chainHasher) Canonicalize(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}

	var raw []byte
	switch p := payload.(type) {
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		raw = b
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	if generic == nil {
		return []byte("{}"), nil
	}

	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to encode canonical payload: %w", err)
	}
	return out, nil
}

func (h *chainHasher) PayloadHash(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// EventHash hashes the length-prefixed fields so that no two distinct field tuples can
// produce the same byte stream.
func (h *chainHasher) EventHash(event *auditDomain.Event, payloadHash string) string {
	buf := make([]byte, 0, 256)
	buf = appendLengthPrefixed(buf, []byte(event.StreamKey))
	buf = appendLengthPrefixed(buf, []byte(strconv.FormatInt(event.Seq, 10)))
	buf = appendLengthPrefixed(buf, []byte(FormatOccurredAt(event.OccurredAt)))
	buf = appendLengthPrefixed(buf, []byte(event.Action))
	buf = appendLengthPrefixed(buf, []byte(event.PreviousHash))
	buf = appendLengthPrefixed(buf, []byte(payloadHash))

	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// NormalizeOccurredAt truncates t to the microsecond precision both databases store.
func NormalizeOccurredAt(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// FormatOccurredAt renders the timestamp exactly as it enters the hash.
func FormatOccurredAt(t time.Time) string {
	return NormalizeOccurredAt(t).Format(time.RFC3339Nano)
}

// appendLengthPrefixed appends a 4-byte big-endian length followed by data.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	dataLen := len(data)
	if dataLen > 0xFFFFFFFF {
		panic("data length exceeds uint32 max (4GB)")
	}
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(dataLen))
	buf = append(buf, length...)
	buf = append(buf, data...)
	return buf
}
