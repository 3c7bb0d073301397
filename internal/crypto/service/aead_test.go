package service

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	apperrors "github.com/allisson/docvault/internal/errors"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestAEADManagerService_CreateCipher(t *testing.T) {
	manager := NewAEADManager()
	validKey := randomBytes(t, 32)

	t.Run("create AES-GCM cipher", func(t *testing.T) {
		cipher, err := manager.CreateCipher(validKey, cryptoDomain.AESGCM)
		require.NoError(t, err)
		require.IsType(t, &aeadCipher{}, cipher)
		assert.Equal(t, cryptoDomain.AESGCM, cipher.(*aeadCipher).Algorithm())
	})

	t.Run("create ChaCha20-Poly1305 cipher", func(t *testing.T) {
		cipher, err := manager.CreateCipher(validKey, cryptoDomain.ChaCha20)
		require.NoError(t, err)
		require.IsType(t, &aeadCipher{}, cipher)
		assert.Equal(t, cryptoDomain.ChaCha20, cipher.(*aeadCipher).Algorithm())
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		_, err := manager.CreateCipher(validKey, cryptoDomain.Algorithm("unsupported"))
		assert.ErrorIs(t, err, cryptoDomain.ErrUnsupportedAlgorithm)
	})

	for _, size := range []int{0, 16, 64} {
		_, err := manager.CreateCipher(make([]byte, size), cryptoDomain.AESGCM)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
	}

	t.Run("every parseable algorithm has a cipher", func(t *testing.T) {
		for _, name := range []string{"aes-gcm", "chacha20-poly1305"} {
			alg, err := cryptoDomain.ParseAlgorithm(name)
			require.NoError(t, err)
			_, err = manager.CreateCipher(validKey, alg)
			assert.NoError(t, err, name)
		}
	})
}

func TestAEAD_RoundTripAndTamper(t *testing.T) {
	manager := NewAEADManager()

	for _, alg := range []cryptoDomain.Algorithm{cryptoDomain.AESGCM, cryptoDomain.ChaCha20} {
		t.Run(string(alg), func(t *testing.T) {
			cipher, err := manager.CreateCipher(randomBytes(t, 32), alg)
			require.NoError(t, err)

			plaintext := []byte("sensitive document bytes")
			aad := []byte("context")

			ciphertext, nonce, err := cipher.Encrypt(plaintext, aad)
			require.NoError(t, err)
			assert.Len(t, nonce, cryptoDomain.NonceSize)
			assert.Len(t, ciphertext, len(plaintext)+cryptoDomain.TagSize)

			decrypted, err := cipher.Decrypt(ciphertext, nonce, aad)
			require.NoError(t, err)
			assert.Equal(t, plaintext, decrypted)

			_, err = cipher.Decrypt(ciphertext, nonce, []byte("other context"))
			assert.ErrorIs(t, err, apperrors.ErrIntegrity)

			_, err = cipher.Decrypt(ciphertext, nonce[:8], aad)
			assert.ErrorIs(t, err, cryptoDomain.ErrInvalidNonceSize)

			sealed, err := cipher.Seal(plaintext, nonce, aad)
			require.NoError(t, err)
			assert.Equal(t, ciphertext, sealed, "same key, nonce and aad must be deterministic")
		})
	}
}
