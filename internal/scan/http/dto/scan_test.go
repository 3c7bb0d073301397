package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScanResultRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ScanResultRequest
		wantErr bool
	}{
		{"clean", ScanResultRequest{Result: "clean"}, false},
		{"infected", ScanResultRequest{Result: "infected"}, false},
		{"error with message", ScanResultRequest{Result: "error", Error: "engine timeout"}, false},
		{"error without message", ScanResultRequest{Result: "error"}, true},
		{"unknown result", ScanResultRequest{Result: "queued"}, true},
		{"missing result", ScanResultRequest{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHealRequest(t *testing.T) {
	req := HealRequest{RunningTimeoutMinutes: 30, MaxAttempts: 5, RetryDelayMinutes: 10, Limit: 50}
	assert.NoError(t, req.Validate())

	input := req.ToInput()
	assert.Equal(t, 30*time.Minute, input.RunningTimeout)
	assert.Equal(t, 10*time.Minute, input.RetryDelay)
	assert.Equal(t, 5, input.MaxAttempts)
	assert.Equal(t, 50, input.Limit)

	assert.Error(t, (&HealRequest{MaxAttempts: -1}).Validate())
}
