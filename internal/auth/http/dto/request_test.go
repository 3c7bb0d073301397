package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"

	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
)

func TestCreateClientRequest(t *testing.T) {
	inactive := false

	tests := []struct {
		name       string
		req        CreateClientRequest
		wantErr    bool
		wantActive bool
	}{
		{"defaults to active", CreateClientRequest{Name: "scheduler", Role: "admin"}, false, true},
		{"explicit inactive", CreateClientRequest{Name: "scanner", Role: "viewer", IsActive: &inactive}, false, false},
		{"blank name", CreateClientRequest{Name: "   ", Role: "admin"}, true, false},
		{"unknown role", CreateClientRequest{Name: "x", Role: "root"}, true, false},
		{"missing role", CreateClientRequest{Name: "x"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			input := tt.req.ToInput()
			assert.Equal(t, tt.wantActive, input.IsActive)
			assert.Equal(t, rbacDomain.Role(tt.req.Role), input.Role)
		})
	}
}
