package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/docvault/internal/errors"
)

func TestValidateKMSConfig(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		keyURI   string
		wantErr  string
	}{
		{name: "plaintext keys", provider: "", keyURI: ""},
		{name: "localsecrets", provider: "localsecrets", keyURI: "base64key://c2VjcmV0"},
		{name: "gcp", provider: "gcpkms", keyURI: "gcpkms://projects/p/locations/l/keyRings/r/cryptoKeys/k"},
		{name: "provider only", provider: "awskms", wantErr: "must be set together"},
		{name: "uri only", keyURI: "awskms://alias/docvault", wantErr: "must be set together"},
		{name: "unknown provider", provider: "vault", keyURI: "vault://x", wantErr: `unsupported provider "vault"`},
		{name: "scheme mismatch", provider: "awskms", keyURI: "gcpkms://x", wantErr: "must start with awskms://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKMSConfig(tt.provider, tt.keyURI)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidKMSConfig)
			assert.ErrorIs(t, err, apperrors.ErrConfiguration)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestKMSProviders(t *testing.T) {
	assert.Equal(t,
		[]string{"awskms", "azurekeyvault", "gcpkms", "hashivault", "localsecrets"},
		KMSProviders(),
	)
}
