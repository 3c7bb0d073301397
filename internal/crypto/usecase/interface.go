// Package usecase implements the master key registry.
//
// The registry pairs in-memory key material (the MasterKeyChain loaded from MASTER_KEYS)
// with persisted lifecycle state (the master_keys table). The database is authoritative
// for which key is active and which keys are revoked; the chain is authoritative for
// material. A key is usable only when both agree it exists.
package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
)

// MasterKeyRepository persists master key lifecycle state. All methods are
// transaction-aware through the context.
type MasterKeyRepository interface {
	Create(ctx context.Context, state *cryptoDomain.MasterKeyState) error

	// Get returns ErrMasterKeyNotFound for unknown ids.
	Get(ctx context.Context, id string) (*cryptoDomain.MasterKeyState, error)

	// GetActive returns ErrNoActiveMasterKey when no key is active.
	GetActive(ctx context.Context) (*cryptoDomain.MasterKeyState, error)

	List(ctx context.Context) ([]*cryptoDomain.MasterKeyState, error)

	// ClearActive deactivates the active key, if any.
	ClearActive(ctx context.Context, now time.Time) error

	// MarkActive activates a non-revoked key and reports whether a row changed.
	MarkActive(ctx context.Context, id string, now time.Time) (bool, error)

	// Revoke returns ErrMasterKeyNotFound for unknown ids.
	Revoke(ctx context.Context, id, reason string, now time.Time) error
}

// MasterKeyUseCase is the master key registry.
type MasterKeyUseCase interface {
	// GetActive returns the key used for new wraps. The returned material is shared with
	// the chain and must not be modified or zeroed.
	GetActive(ctx context.Context) (*cryptoDomain.MasterKey, error)

	// GetByID returns any registered key, revoked ones included, for unwrapping.
	GetByID(ctx context.Context, id string) (*cryptoDomain.MasterKey, error)

	// SetActive makes id the only active key.
	SetActive(ctx context.Context, id, reason string) (*cryptoDomain.MasterKeyState, error)

	// Revoke marks id revoked. Revoked keys stay readable.
	Revoke(ctx context.Context, id, reason string) (*cryptoDomain.MasterKeyState, error)

	// List returns every registered key without material.
	List(ctx context.Context) ([]*cryptoDomain.MasterKeyState, error)

	// Sync registers keys present in the chain but missing from the registry, activates the
	// configured key when nothing is active yet, and points the chain at the registry's
	// active key.
	Sync(ctx context.Context) error
}
