package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	apperrors "github.com/allisson/docvault/internal/errors"
)

var algorithms = []cryptoDomain.Algorithm{cryptoDomain.AESGCM, cryptoDomain.ChaCha20}

func newTestMasterKey(t *testing.T, id string) *cryptoDomain.MasterKey {
	t.Helper()
	return &cryptoDomain.MasterKey{ID: id, Key: randomBytes(t, 32), Active: true}
}

func TestEnvelopeEngine_GenerateDataKeyAndIV(t *testing.T) {
	engine := NewEnvelopeEngine(NewAEADManager())

	key1, err := engine.GenerateDataKey()
	require.NoError(t, err)
	key2, err := engine.GenerateDataKey()
	require.NoError(t, err)
	assert.Len(t, key1, 32)
	assert.NotEqual(t, key1, key2)

	iv1, err := engine.GenerateIV()
	require.NoError(t, err)
	iv2, err := engine.GenerateIV()
	require.NoError(t, err)
	assert.Len(t, iv1, 12)
	assert.NotEqual(t, iv1, iv2)
}

func TestEnvelopeEngine_EncryptDecrypt(t *testing.T) {
	engine := NewEnvelopeEngine(NewAEADManager())

	plaintexts := [][]byte{
		{},
		[]byte("a"),
		[]byte("the quick brown fox jumps over the lazy dog"),
		randomBytes(t, 64*1024),
	}

	for _, alg := range algorithms {
		for _, plaintext := range plaintexts {
			key := randomBytes(t, 32)
			iv := randomBytes(t, 12)

			ciphertext, err := engine.Encrypt(plaintext, key, iv, alg)
			require.NoError(t, err)
			assert.Len(t, ciphertext, len(plaintext)+16)

			decrypted, err := engine.Decrypt(ciphertext, key, iv, alg)
			require.NoError(t, err)
			assert.Equal(t, len(plaintext), len(decrypted))
			if len(plaintext) > 0 {
				assert.Equal(t, plaintext, decrypted)
			}
		}
	}
}

func TestEnvelopeEngine_Decrypt_BitFlips(t *testing.T) {
	engine := NewEnvelopeEngine(NewAEADManager())

	for _, alg := range algorithms {
		t.Run(string(alg), func(t *testing.T) {
			key := randomBytes(t, 32)
			iv := randomBytes(t, 12)
			ciphertext, err := engine.Encrypt([]byte("invoice-2024.pdf contents"), key, iv, alg)
			require.NoError(t, err)

			// Flip every bit of the body and of the trailing tag.
			for i := range ciphertext {
				for bit := 0; bit < 8; bit++ {
					tampered := append([]byte(nil), ciphertext...)
					tampered[i] ^= 1 << bit

					plaintext, err := engine.Decrypt(tampered, key, iv, alg)
					require.ErrorIs(t, err, apperrors.ErrIntegrity, "byte %d bit %d", i, bit)
					require.Nil(t, plaintext)
				}
			}
		})
	}
}

func TestEnvelopeEngine_Decrypt_ShortInput(t *testing.T) {
	engine := NewEnvelopeEngine(NewAEADManager())

	_, err := engine.Decrypt(make([]byte, 15), randomBytes(t, 32), randomBytes(t, 12), cryptoDomain.AESGCM)
	assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
}

func TestEnvelopeEngine_Encrypt_InvalidIV(t *testing.T) {
	engine := NewEnvelopeEngine(NewAEADManager())

	_, err := engine.Encrypt([]byte("x"), randomBytes(t, 32), randomBytes(t, 8), cryptoDomain.AESGCM)
	assert.ErrorIs(t, err, cryptoDomain.ErrInvalidNonceSize)
}

func TestEnvelopeEngine_WrapUnwrap(t *testing.T) {
	engine := NewEnvelopeEngine(NewAEADManager())

	for _, alg := range algorithms {
		t.Run(string(alg), func(t *testing.T) {
			k1 := newTestMasterKey(t, "k1")
			dataKey, err := engine.GenerateDataKey()
			require.NoError(t, err)
			require.Len(t, dataKey, 32)

			wrapped, err := engine.WrapDataKey(dataKey, k1, alg)
			require.NoError(t, err)
			assert.Equal(t, "k1", wrapped.MasterKeyID)
			assert.NotEmpty(t, wrapped.Wrapped)
			assert.Len(t, wrapped.IV, 12)
			assert.Len(t, wrapped.Tag, 16)

			unwrapped, err := engine.UnwrapDataKey(wrapped, k1, alg)
			require.NoError(t, err)
			assert.Equal(t, dataKey, unwrapped)
		})
	}
}

func TestEnvelopeEngine_WrapUsesFreshIV(t *testing.T) {
	engine := NewEnvelopeEngine(NewAEADManager())
	k1 := newTestMasterKey(t, "k1")
	dataKey := randomBytes(t, 32)

	w1, err := engine.WrapDataKey(dataKey, k1, cryptoDomain.AESGCM)
	require.NoError(t, err)
	w2, err := engine.WrapDataKey(dataKey, k1, cryptoDomain.AESGCM)
	require.NoError(t, err)

	assert.NotEqual(t, w1.IV, w2.IV)
	assert.NotEqual(t, w1.Wrapped, w2.Wrapped)
}

func TestEnvelopeEngine_Unwrap_Tamper(t *testing.T) {
	engine := NewEnvelopeEngine(NewAEADManager())
	k1 := newTestMasterKey(t, "k1")
	k2 := newTestMasterKey(t, "k2")
	dataKey := randomBytes(t, 32)

	wrapped, err := engine.WrapDataKey(dataKey, k1, cryptoDomain.AESGCM)
	require.NoError(t, err)

	clone := func() *cryptoDomain.WrappedDataKey {
		return &cryptoDomain.WrappedDataKey{
			MasterKeyID: wrapped.MasterKeyID,
			Wrapped:     append([]byte(nil), wrapped.Wrapped...),
			IV:          append([]byte(nil), wrapped.IV...),
			Tag:         append([]byte(nil), wrapped.Tag...),
		}
	}

	t.Run("flipped wrapped byte", func(t *testing.T) {
		w := clone()
		w.Wrapped[0] ^= 0x01
		_, err := engine.UnwrapDataKey(w, k1, cryptoDomain.AESGCM)
		assert.ErrorIs(t, err, apperrors.ErrIntegrity)
	})

	t.Run("flipped tag byte", func(t *testing.T) {
		w := clone()
		w.Tag[15] ^= 0x80
		_, err := engine.UnwrapDataKey(w, k1, cryptoDomain.AESGCM)
		assert.ErrorIs(t, err, apperrors.ErrIntegrity)
	})

	t.Run("truncated tag", func(t *testing.T) {
		w := clone()
		w.Tag = w.Tag[:8]
		_, err := engine.UnwrapDataKey(w, k1, cryptoDomain.AESGCM)
		assert.ErrorIs(t, err, apperrors.ErrIntegrity)
	})

	t.Run("wrong master key", func(t *testing.T) {
		_, err := engine.UnwrapDataKey(clone(), k2, cryptoDomain.AESGCM)
		assert.ErrorIs(t, err, apperrors.ErrIntegrity)
	})

	t.Run("same material under another id", func(t *testing.T) {
		renamed := &cryptoDomain.MasterKey{ID: "k1-renamed", Key: k1.Key}
		_, err := engine.UnwrapDataKey(clone(), renamed, cryptoDomain.AESGCM)
		assert.ErrorIs(t, err, apperrors.ErrIntegrity)
	})
}

func TestEnvelopeEngine_WrapRejectsRevokedKey(t *testing.T) {
	engine := NewEnvelopeEngine(NewAEADManager())
	revoked := newTestMasterKey(t, "old")
	revoked.Revoked = true

	_, err := engine.WrapDataKey(randomBytes(t, 32), revoked, cryptoDomain.AESGCM)
	assert.ErrorIs(t, err, cryptoDomain.ErrMasterKeyRevoked)
}

func TestEnvelopeEngine_UnwrapAcceptsRevokedKey(t *testing.T) {
	engine := NewEnvelopeEngine(NewAEADManager())
	k1 := newTestMasterKey(t, "k1")
	dataKey := randomBytes(t, 32)

	wrapped, err := engine.WrapDataKey(dataKey, k1, cryptoDomain.ChaCha20)
	require.NoError(t, err)

	k1.Revoked = true
	unwrapped, err := engine.UnwrapDataKey(wrapped, k1, cryptoDomain.ChaCha20)
	require.NoError(t, err)
	assert.Equal(t, dataKey, unwrapped)
}
