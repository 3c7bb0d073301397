// Package service provides client secret generation and verification.
package service

// SecretService generates client secrets and verifies presented secrets against their
// stored hashes.
type SecretService interface {
	// GenerateSecret returns a new random secret and its hash. The plain secret is shown
	// once and never stored.
	GenerateSecret() (plainSecret string, hashedSecret string, err error)

	HashSecret(plainSecret string) (hashedSecret string, err error)

	// CompareSecret reports whether plainSecret matches hashedSecret. Malformed hashes
	// never match.
	CompareSecret(plainSecret string, hashedSecret string) bool

	// BurnCompare spends the cost of one comparison without a stored hash, so a lookup
	// miss takes as long as a wrong secret.
	BurnCompare(plainSecret string)
}
