package domain

// WrappedDataKey is a data key encrypted under a master key with its own nonce and tag.
// The content nonce is never reused for the wrap.
type WrappedDataKey struct {
	MasterKeyID string
	Wrapped     []byte
	IV          []byte
	Tag         []byte
}
