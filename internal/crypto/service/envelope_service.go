package service

import (
	"crypto/rand"
	"fmt"
	"slices"

	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
)

// EnvelopeEngine implements EnvelopeService on top of an AEADManager.
//
// Content encryption and key wrapping use the same AEAD but never the same nonce:
// the content nonce comes from GenerateIV for a fresh per-document data key, and every
// wrap draws its own nonce internally so callers cannot supply one. Wraps are bound to
// the master key ID through the AEAD associated data.
type EnvelopeEngine struct {
	aeadManager AEADManager
}

// NewEnvelopeEngine creates a new EnvelopeEngine.
func NewEnvelopeEngine(aeadManager AEADManager) *EnvelopeEngine {
	return &EnvelopeEngine{aeadManager: aeadManager}
}

// GenerateDataKey returns a new random 32-byte data key.
func (e *EnvelopeEngine) GenerateDataKey() ([]byte, error) {
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}
	return key, nil
}

// GenerateIV returns a new random 12-byte nonce.
func (e *EnvelopeEngine) GenerateIV() ([]byte, error) {
	iv := make([]byte, cryptoDomain.NonceSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}
	return iv, nil
}

// Encrypt encrypts plaintext and appends the authentication tag.
func (e *EnvelopeEngine) Encrypt(plaintext, key, iv []byte, alg cryptoDomain.Algorithm) ([]byte, error) {
	aead, err := e.aeadManager.CreateCipher(key, alg)
	if err != nil {
		return nil, err
	}
	return aead.Seal(plaintext, iv, nil)
}

// Decrypt verifies and decrypts ciphertext that carries a trailing 16-byte tag.
func (e *EnvelopeEngine) Decrypt(ciphertextWithTag, key, iv []byte, alg cryptoDomain.Algorithm) ([]byte, error) {
	if len(ciphertextWithTag) < cryptoDomain.TagSize {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	aead, err := e.aeadManager.CreateCipher(key, alg)
	if err != nil {
		return nil, err
	}
	return aead.Decrypt(ciphertextWithTag, iv, nil)
}

// WrapDataKey encrypts dataKey under masterKey. The result splits the AEAD output into
// the wrapped bytes and the trailing tag.
func (e *EnvelopeEngine) WrapDataKey(
	dataKey []byte,
	masterKey *cryptoDomain.MasterKey,
	alg cryptoDomain.Algorithm,
) (*cryptoDomain.WrappedDataKey, error) {
	if len(dataKey) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	if masterKey.Revoked {
		return nil, cryptoDomain.ErrMasterKeyRevoked
	}
	aead, err := e.aeadManager.CreateCipher(masterKey.Key, alg)
	if err != nil {
		return nil, err
	}

	sealed, iv, err := aead.Encrypt(dataKey, []byte(masterKey.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to wrap data key: %w", err)
	}

	split := len(sealed) - cryptoDomain.TagSize
	return &cryptoDomain.WrappedDataKey{
		MasterKeyID: masterKey.ID,
		Wrapped:     slices.Clone(sealed[:split]),
		IV:          iv,
		Tag:         slices.Clone(sealed[split:]),
	}, nil
}

// UnwrapDataKey reassembles wrapped||tag and decrypts it under masterKey. Revoked keys
// are still accepted here: existing wraps must stay readable.
func (e *EnvelopeEngine) UnwrapDataKey(
	wrapped *cryptoDomain.WrappedDataKey,
	masterKey *cryptoDomain.MasterKey,
	alg cryptoDomain.Algorithm,
) ([]byte, error) {
	if len(wrapped.Tag) != cryptoDomain.TagSize {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	aead, err := e.aeadManager.CreateCipher(masterKey.Key, alg)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(wrapped.Wrapped)+len(wrapped.Tag))
	sealed = append(sealed, wrapped.Wrapped...)
	sealed = append(sealed, wrapped.Tag...)

	dataKey, err := aead.Decrypt(sealed, wrapped.IV, []byte(masterKey.ID))
	if err != nil {
		return nil, err
	}
	if len(dataKey) != cryptoDomain.KeySize {
		cryptoDomain.Zero(dataKey)
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return dataKey, nil
}
