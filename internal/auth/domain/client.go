// Package domain defines API clients and their credentials.
//
// A client authenticates with its id and a generated secret; the secret is stored only as
// an Argon2id hash. Every client carries exactly one role, which the permission resolver
// maps to permissions.
package domain

import (
	"time"

	"github.com/google/uuid"

	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
)

// Client represents an API client.
type Client struct {
	ID         uuid.UUID
	Name       string
	Role       rbacDomain.Role
	SecretHash string //nolint:gosec // Argon2id hash, never the plain secret
	IsActive   bool
	CreatedAt  time.Time
}

// Principal returns the identity the permission resolver and the audit ledger see.
func (c *Client) Principal() *rbacDomain.Principal {
	return &rbacDomain.Principal{ClientID: c.ID, Name: c.Name, Role: c.Role}
}

// CreateClientInput contains the parameters for creating a client. The secret is always
// generated.
type CreateClientInput struct {
	Name     string
	Role     rbacDomain.Role
	IsActive bool
}

// CreateClientOutput is returned once at creation. PlainSecret is never retrievable again.
type CreateClientOutput struct {
	ID          uuid.UUID
	PlainSecret string
}
