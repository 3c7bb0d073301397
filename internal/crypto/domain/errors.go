package domain

import (
	"github.com/allisson/docvault/internal/errors"
)

// Cryptographic operation errors.
var (
	// ErrUnsupportedAlgorithm indicates the requested AEAD is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates a key is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrInvalidNonceSize indicates a nonce is not exactly 12 bytes.
	ErrInvalidNonceSize = errors.Wrap(errors.ErrInvalidInput, "invalid nonce size")

	// ErrDecryptionFailed indicates authentication failed on decrypt or unwrap. The cause
	// (wrong key, tampered ciphertext or tag, wrong nonce) is deliberately not disclosed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrIntegrity, "decryption failed")
)

// Master key configuration and registry errors.
var (
	ErrMasterKeysNotSet         = errors.Wrap(errors.ErrConfiguration, "MASTER_KEYS is not set")
	ErrActiveMasterKeyIDNotSet  = errors.Wrap(errors.ErrConfiguration, "ACTIVE_MASTER_KEY_ID is not set")
	ErrInvalidMasterKeysFormat  = errors.Wrap(errors.ErrConfiguration, "invalid MASTER_KEYS format")
	ErrInvalidMasterKeyBase64   = errors.Wrap(errors.ErrConfiguration, "invalid master key base64")
	ErrInvalidMasterKeySize     = errors.Wrap(errors.ErrConfiguration, "invalid master key size")
	ErrActiveMasterKeyNotFound  = errors.Wrap(errors.ErrConfiguration, "active master key not found")
	ErrKMSDecryptionFailed      = errors.Wrap(errors.ErrConfiguration, "failed to decrypt master key with kms")
	ErrInvalidKMSConfig         = errors.Wrap(errors.ErrConfiguration, "invalid kms configuration")
	ErrNoActiveMasterKey        = errors.Wrap(errors.ErrConfiguration, "no active master key")
	ErrMasterKeyMaterialMissing = errors.Wrap(errors.ErrConfiguration, "master key material not loaded")

	// ErrMasterKeyNotFound indicates the registry has no key with the given ID.
	ErrMasterKeyNotFound = errors.Wrap(errors.ErrNotFound, "master key not found")

	// ErrMasterKeyRevoked indicates a revoked key was chosen for a new wrap or activation.
	ErrMasterKeyRevoked = errors.Wrap(errors.ErrInvalidInput, "master key is revoked")
)
