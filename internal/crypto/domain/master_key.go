package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// MasterKey is a long-lived 32-byte key used only to wrap and unwrap per-document data keys.
//
// Key material is never persisted. It is loaded into memory from MASTER_KEYS (optionally
// KMS-encrypted) while the Active and Revoked flags come from the master_keys table.
// A revoked key stays readable so existing wraps can still be unwrapped, but it must
// never be chosen for a new wrap.
type MasterKey struct {
	ID      string
	Key     []byte
	Active  bool
	Revoked bool
}

// MasterKeyState is the persisted lifecycle record of a master key. It carries no key material.
type MasterKeyState struct {
	ID            string
	Active        bool
	Revoked       bool
	RevokedReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MasterKeyChain holds the in-memory key material of every configured master key together
// with the ID of the active one.
//
// Thread safety: keys are stored in a sync.Map and the active pointer is guarded by a mutex,
// since SetActive can flip it at runtime after a registry update commits.
type MasterKeyChain struct {
	mu       sync.RWMutex
	activeID string
	keys     sync.Map
}

// NewMasterKeyChain builds a chain from already decoded keys. Each key is copied so the
// caller may zero its own buffers.
func NewMasterKeyChain(activeID string, keys ...*MasterKey) (*MasterKeyChain, error) {
	mkc := &MasterKeyChain{activeID: activeID}
	for _, k := range keys {
		if len(k.Key) != KeySize {
			mkc.Close()
			return nil, fmt.Errorf(
				"%w: master key %s must be %d bytes, got %d",
				ErrInvalidMasterKeySize,
				k.ID,
				KeySize,
				len(k.Key),
			)
		}
		mkc.keys.Store(k.ID, &MasterKey{ID: k.ID, Key: slices.Clone(k.Key)})
	}
	if activeID != "" {
		if _, ok := mkc.Get(activeID); !ok {
			mkc.Close()
			return nil, fmt.Errorf("%w: ACTIVE_MASTER_KEY_ID=%s", ErrActiveMasterKeyNotFound, activeID)
		}
	}
	return mkc, nil
}

// ActiveMasterKeyID returns the ID of the master key used for new wraps.
func (m *MasterKeyChain) ActiveMasterKeyID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeID
}

// SetActive moves the active pointer to id. The key must be present in the chain.
func (m *MasterKeyChain) SetActive(id string) error {
	if _, ok := m.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrMasterKeyMaterialMissing, id)
	}
	m.mu.Lock()
	m.activeID = id
	m.mu.Unlock()
	return nil
}

// Get retrieves a master key from the keychain by its ID.
func (m *MasterKeyChain) Get(id string) (*MasterKey, bool) {
	if masterKey, ok := m.keys.Load(id); ok {
		return masterKey.(*MasterKey), ok
	}

	return nil, false
}

// IDs returns the IDs of every key in the chain in lexical order.
func (m *MasterKeyChain) IDs() []string {
	var ids []string
	m.keys.Range(func(key, _ any) bool {
		ids = append(ids, key.(string))
		return true
	})
	slices.Sort(ids)
	return ids
}

// Close zeroes all key material and resets the keychain.
func (m *MasterKeyChain) Close() {
	m.keys.Range(func(_, value any) bool {
		Zero(value.(*MasterKey).Key)
		return true
	})
	m.keys.Clear()
	m.mu.Lock()
	m.activeID = ""
	m.mu.Unlock()
}

// KMSKeeper is the subset of *secrets.Keeper used to protect master keys at rest.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KMSService opens keepers for a KMS key URI.
type KMSService interface {
	OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error)
}

// MasterKeySource describes where master keys are read from.
type MasterKeySource struct {
	// MasterKeys is the raw "id:base64,id:base64" list.
	MasterKeys string
	// ActiveMasterKeyID is the key used for new wraps until the registry says otherwise.
	ActiveMasterKeyID string
	// KMSProvider and KMSKeyURI, when both set, mean every key value is KMS ciphertext.
	KMSProvider string
	KMSKeyURI   string
}

// MasterKeySourceFromEnv reads MASTER_KEYS, ACTIVE_MASTER_KEY_ID, KMS_PROVIDER and KMS_KEY_URI.
func MasterKeySourceFromEnv() MasterKeySource {
	return MasterKeySource{
		MasterKeys:        os.Getenv("MASTER_KEYS"),
		ActiveMasterKeyID: os.Getenv("ACTIVE_MASTER_KEY_ID"),
		KMSProvider:       os.Getenv("KMS_PROVIDER"),
		KMSKeyURI:         os.Getenv("KMS_KEY_URI"),
	}
}

// LoadMasterKeyChainFromEnv loads plaintext master keys from environment variables.
//
// Format example:
//
//	MASTER_KEYS="key1:YWJjZGVmZ2hpamtsbW5vcHFyc3R1dnd4eXoxMjM0NTY3OA==,key2:MTIzNDU2Nzg5MGFiY2RlZmdoaWprbG1ub3BxcnN0dXZ3eA=="
//	ACTIVE_MASTER_KEY_ID="key2"
func LoadMasterKeyChainFromEnv() (*MasterKeyChain, error) {
	src := MasterKeySourceFromEnv()
	src.KMSProvider, src.KMSKeyURI = "", ""
	return LoadMasterKeyChain(context.Background(), src, nil, nil)
}

// LoadMasterKeyChain parses src and, when a KMS is configured, decrypts every key through it.
// All failures are ErrConfiguration-wrapped: the process cannot wrap or unwrap anything without keys.
func LoadMasterKeyChain(
	ctx context.Context,
	src MasterKeySource,
	kmsService KMSService,
	logger *slog.Logger,
) (*MasterKeyChain, error) {
	if src.MasterKeys == "" {
		return nil, ErrMasterKeysNotSet
	}
	if src.ActiveMasterKeyID == "" {
		return nil, ErrActiveMasterKeyIDNotSet
	}

	var keeper KMSKeeper
	if src.KMSProvider != "" && src.KMSKeyURI != "" {
		if kmsService == nil {
			return nil, fmt.Errorf("%w: kms service unavailable", ErrKMSDecryptionFailed)
		}
		var err error
		keeper, err = kmsService.OpenKeeper(ctx, src.KMSKeyURI)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKMSDecryptionFailed, err)
		}
		defer func() {
			if closeErr := keeper.Close(); closeErr != nil && logger != nil {
				logger.Warn("failed to close kms keeper", slog.Any("error", closeErr))
			}
		}()
	}

	var keys []*MasterKey
	defer func() {
		for _, k := range keys {
			Zero(k.Key)
		}
	}()

	for part := range strings.SplitSeq(src.MasterKeys, ",") {
		p := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(p) != 2 || p[0] == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMasterKeysFormat, part)
		}
		id := p[0]
		raw, err := base64.StdEncoding.DecodeString(p[1])
		if err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrInvalidMasterKeyBase64, id, err)
		}
		if keeper != nil {
			plain, err := keeper.Decrypt(ctx, raw)
			if err != nil {
				return nil, fmt.Errorf("%w for %s: %v", ErrKMSDecryptionFailed, id, err)
			}
			raw = plain
		}
		keys = append(keys, &MasterKey{ID: id, Key: raw})
	}

	mkc, err := NewMasterKeyChain(src.ActiveMasterKeyID, keys...)
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("master key chain loaded",
			slog.Int("keys", len(keys)),
			slog.String("active_master_key_id", src.ActiveMasterKeyID),
			slog.Bool("kms", keeper != nil),
		)
	}
	return mkc, nil
}
