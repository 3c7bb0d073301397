package domain

// Algorithm represents the AEAD used for content encryption and data key wrapping.
//
// Both supported algorithms use a 256-bit key, a 12-byte nonce and append a 16-byte
// authentication tag to the ciphertext, so they are interchangeable in the envelope format.
type Algorithm string

const (
	// AESGCM represents AES-256-GCM. Preferred on CPUs with AES-NI.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents ChaCha20-Poly1305. Preferred where AES hardware acceleration is absent.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// Envelope sizes shared by both algorithms.
const (
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16
)

// ParseAlgorithm validates a configured algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AESGCM, ChaCha20:
		return Algorithm(s), nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}
