package dto

import (
	"time"

	authDomain "github.com/allisson/docvault/internal/auth/domain"
)

// CreateClientResponse is returned once at creation.
type CreateClientResponse struct {
	ID     string `json:"id"`
	Secret string `json:"secret"` //nolint:gosec // returned once on creation
}

// ClientResponse represents a client. The secret hash is never exposed.
type ClientResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// MapClientToResponse converts a domain client to an API response.
func MapClientToResponse(client *authDomain.Client) ClientResponse {
	return ClientResponse{
		ID:        client.ID.String(),
		Name:      client.Name,
		Role:      string(client.Role),
		IsActive:  client.IsActive,
		CreatedAt: client.CreatedAt,
	}
}

// ListClientsResponse is a page of clients.
type ListClientsResponse struct {
	Data []ClientResponse `json:"data"`
}

// MapClientsToListResponse converts clients to a list response.
func MapClientsToListResponse(clients []*authDomain.Client) ListClientsResponse {
	data := make([]ClientResponse, 0, len(clients))
	for _, client := range clients {
		data = append(data, MapClientToResponse(client))
	}
	return ListClientsResponse{Data: data}
}
