// Package usecase implements API client management and request authentication.
package usecase

import (
	"context"

	"github.com/google/uuid"

	authDomain "github.com/allisson/docvault/internal/auth/domain"
)

// ClientRepository defines persistence operations for API clients. Implementations join
// an enclosing transaction through the context.
type ClientRepository interface {
	Create(ctx context.Context, client *authDomain.Client) error

	// Get returns ErrClientNotFound if the client does not exist.
	Get(ctx context.Context, clientID uuid.UUID) (*authDomain.Client, error)

	List(ctx context.Context, offset, limit int) ([]*authDomain.Client, error)

	// SetActive returns ErrClientNotFound if the client does not exist.
	SetActive(ctx context.Context, clientID uuid.UUID, active bool) error
}

// ClientUseCase manages API clients and authenticates their requests.
type ClientUseCase interface {
	// Create generates a client with a random secret. The plain secret is returned once
	// and never stored.
	Create(ctx context.Context, input *authDomain.CreateClientInput) (*authDomain.CreateClientOutput, error)

	Get(ctx context.Context, clientID uuid.UUID) (*authDomain.Client, error)

	List(ctx context.Context, offset, limit int) ([]*authDomain.Client, error)

	// Deactivate stops the client from authenticating. The row is kept so audit actors
	// stay resolvable.
	Deactivate(ctx context.Context, clientID uuid.UUID) error

	// Authenticate verifies a client id and secret. Unknown ids and wrong secrets both
	// return ErrInvalidCredentials; a deactivated client returns ErrClientInactive.
	Authenticate(ctx context.Context, clientID uuid.UUID, secret string) (*authDomain.Client, error)
}
