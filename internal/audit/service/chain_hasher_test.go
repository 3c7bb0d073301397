package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
)

func TestChainHasher_Canonicalize(t *testing.T) {
	h := NewChainHasher()

	tests := []struct {
		name     string
		payload  any
		expected string
	}{
		{"nil payload", nil, `{}`},
		{"nil map", map[string]any(nil), `{}`},
		{"sorted keys", map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
		{
			"nested maps are sorted",
			map[string]any{"z": map[string]any{"y": true, "x": nil}, "a": []any{3, 1}},
			`{"a":[3,1],"z":{"x":null,"y":true}}`,
		},
		{"raw json is reordered", json.RawMessage(`{ "to": "k2", "from": "k1" }`), `{"from":"k1","to":"k2"}`},
		{"large integers keep precision", json.RawMessage(`{"n":9007199254740993}`), `{"n":9007199254740993}`},
		{
			"struct field order does not matter",
			struct {
				B int `json:"b"`
				A int `json:"a"`
			}{B: 2, A: 1},
			`{"a":1,"b":2}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Canonicalize(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestChainHasher_Canonicalize_Idempotent(t *testing.T) {
	h := NewChainHasher()

	first, err := h.Canonicalize(map[string]any{"rotated": 3, "failed": 0, "from": "k1"})
	require.NoError(t, err)
	second, err := h.Canonicalize(json.RawMessage(first))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestChainHasher_Canonicalize_InvalidJSON(t *testing.T) {
	h := NewChainHasher()

	_, err := h.Canonicalize(json.RawMessage(`{"a":`))
	assert.Error(t, err)
}

func TestChainHasher_EventHash(t *testing.T) {
	h := NewChainHasher()
	occurredAt := time.Date(2024, 5, 1, 12, 30, 0, 123456789, time.UTC)

	base := &auditDomain.Event{
		StreamKey:    "master-keys",
		Seq:          2,
		PreviousHash: "abc",
		Action:       "master_key.activated",
		OccurredAt:   occurredAt,
	}
	payloadHash := h.PayloadHash([]byte(`{"id":"k2"}`))
	hash := h.EventHash(base, payloadHash)

	assert.Len(t, hash, 64)
	assert.Equal(t, hash, h.EventHash(base, payloadHash), "hash must be deterministic")

	t.Run("sub-microsecond differences are ignored", func(t *testing.T) {
		e := *base
		e.OccurredAt = occurredAt.Truncate(time.Microsecond)
		assert.Equal(t, hash, h.EventHash(&e, payloadHash))
	})

	t.Run("timezone does not matter", func(t *testing.T) {
		e := *base
		e.OccurredAt = occurredAt.In(time.FixedZone("X", 3*3600))
		assert.Equal(t, hash, h.EventHash(&e, payloadHash))
	})

	mutations := map[string]func(e *auditDomain.Event){
		"stream":        func(e *auditDomain.Event) { e.StreamKey = "master-keys2" },
		"seq":           func(e *auditDomain.Event) { e.Seq = 3 },
		"occurred at":   func(e *auditDomain.Event) { e.OccurredAt = occurredAt.Add(time.Microsecond) },
		"action":        func(e *auditDomain.Event) { e.Action = "master_key.revoked" },
		"previous hash": func(e *auditDomain.Event) { e.PreviousHash = "abd" },
	}
	for name, mutate := range mutations {
		t.Run("changing "+name+" changes hash", func(t *testing.T) {
			e := *base
			mutate(&e)
			assert.NotEqual(t, hash, h.EventHash(&e, payloadHash))
		})
	}

	t.Run("changing payload changes hash", func(t *testing.T) {
		assert.NotEqual(t, hash, h.EventHash(base, h.PayloadHash([]byte(`{"id":"k3"}`))))
	})

	t.Run("field boundaries are unambiguous", func(t *testing.T) {
		a := &auditDomain.Event{StreamKey: "ab", Action: "c", OccurredAt: occurredAt, Seq: 1}
		b := &auditDomain.Event{StreamKey: "a", Action: "bc", OccurredAt: occurredAt, Seq: 1}
		assert.NotEqual(t, h.EventHash(a, payloadHash), h.EventHash(b, payloadHash))
	})
}

func TestFormatOccurredAt(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 6007008, time.UTC)
	assert.Equal(t, "2024-01-02T03:04:05.006007Z", FormatOccurredAt(ts))
}
