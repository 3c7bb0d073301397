package service

import (
	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
)

// cipherFactories holds one constructor per envelope algorithm. Every entry takes the
// same 32-byte key, so the size check lives in CreateCipher.
var cipherFactories = map[cryptoDomain.Algorithm]func(key []byte) (AEAD, error){
	cryptoDomain.AESGCM:   NewAESGCM,
	cryptoDomain.ChaCha20: NewChaCha20Poly1305,
}

// AEADManagerService builds ciphers for content encryption and data key wrapping.
type AEADManagerService struct{}

func NewAEADManager() *AEADManagerService {
	return &AEADManagerService{}
}

// CreateCipher returns ErrInvalidKeySize for keys other than 32 bytes and
// ErrUnsupportedAlgorithm for algorithms without a factory. A document row naming an
// unknown algorithm therefore fails as invalid input, never as an integrity error.
func (am *AEADManagerService) CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error) {
	factory, ok := cipherFactories[alg]
	if !ok {
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	return factory(key)
}
