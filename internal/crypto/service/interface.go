// Package service provides the cryptographic primitives of the envelope scheme:
// AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305), the envelope engine that encrypts
// document content and wraps data keys, and KMS access for master key protection.
package service

import (
	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext under a freshly generated nonce and returns ciphertext
	// (tag appended) and the nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Seal encrypts plaintext under the given nonce and returns ciphertext with the tag appended.
	Seal(plaintext, nonce, aad []byte) ([]byte, error)

	// Decrypt verifies and decrypts ciphertext. Any authentication failure returns
	// ErrDecryptionFailed and no plaintext.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// EnvelopeService encrypts document content with per-document data keys and wraps
// those data keys under master keys.
type EnvelopeService interface {
	// GenerateDataKey returns 32 random bytes.
	GenerateDataKey() ([]byte, error)

	// GenerateIV returns a fresh 12-byte content nonce.
	GenerateIV() ([]byte, error)

	// Encrypt returns ciphertext with the 16-byte tag appended.
	Encrypt(plaintext, key, iv []byte, alg cryptoDomain.Algorithm) ([]byte, error)

	// Decrypt splits the trailing tag, verifies it and returns the plaintext.
	// Fails with ErrDecryptionFailed (an integrity error) on mismatch.
	Decrypt(ciphertextWithTag, key, iv []byte, alg cryptoDomain.Algorithm) ([]byte, error)

	// WrapDataKey encrypts dataKey under masterKey with its own fresh nonce.
	WrapDataKey(
		dataKey []byte,
		masterKey *cryptoDomain.MasterKey,
		alg cryptoDomain.Algorithm,
	) (*cryptoDomain.WrappedDataKey, error)

	// UnwrapDataKey is the inverse of WrapDataKey and fails closed on tamper.
	UnwrapDataKey(
		wrapped *cryptoDomain.WrappedDataKey,
		masterKey *cryptoDomain.MasterKey,
		alg cryptoDomain.Algorithm,
	) ([]byte, error)
}
