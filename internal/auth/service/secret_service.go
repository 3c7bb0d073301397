package service

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/docvault/internal/errors"
)

const secretBytes = 32

// secretService hashes with Argon2id. Clients present their secret on every request, so
// the interactive policy keeps verification cheap enough to sit on the request path.
type secretService struct {
	hasher    *pwdhash.PasswordHasher
	decoyHash string
}

func (s *secretService) GenerateSecret() (string, string, error) {
	randomBytes := make([]byte, secretBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate random secret")
	}
	plainSecret := base64.RawURLEncoding.EncodeToString(randomBytes)

	hashedSecret, err := s.HashSecret(plainSecret)
	if err != nil {
		return "", "", err
	}
	return plainSecret, hashedSecret, nil
}

func (s *secretService) HashSecret(plainSecret string) (string, error) {
	hashedSecret, err := s.hasher.Hash([]byte(plainSecret))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash secret")
	}
	return hashedSecret, nil
}

func (s *secretService) CompareSecret(plainSecret string, hashedSecret string) bool {
	ok, err := s.hasher.Verify([]byte(plainSecret), hashedSecret)
	if err != nil {
		return false
	}
	return ok
}

func (s *secretService) BurnCompare(plainSecret string) {
	_ = s.CompareSecret(plainSecret, s.decoyHash)
}

// NewSecretService creates a SecretService using Argon2id with the interactive policy.
func NewSecretService() SecretService {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyInteractive))
	if err != nil {
		// Only reachable with an invalid built-in policy.
		panic(err)
	}

	s := &secretService{hasher: hasher}
	decoy, err := s.HashSecret("decoy")
	if err != nil {
		panic(err)
	}
	s.decoyHash = decoy
	return s
}
