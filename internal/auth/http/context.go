// Package http provides client authentication, per-client rate limiting and the client
// management API.
package http

import (
	"context"

	authDomain "github.com/allisson/docvault/internal/auth/domain"
)

type clientKey struct{}

// WithClient stores the authenticated client in the context.
func WithClient(ctx context.Context, client *authDomain.Client) context.Context {
	return context.WithValue(ctx, clientKey{}, client)
}

// GetClient returns the client stored by WithClient.
func GetClient(ctx context.Context) (*authDomain.Client, bool) {
	client, ok := ctx.Value(clientKey{}).(*authDomain.Client)
	return client, ok && client != nil
}
