package service

import (
	"context"
	"fmt"
	"net/url"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"

	// Keeper drivers for every provider ValidateKMSConfig accepts.
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KMSService opens the keeper that protects master keys at rest.
type KMSService interface {
	// OpenKeeper opens the keeper for keyURI. The caller closes it.
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}

type kmsService struct {
	mux *secrets.URLMux
}

// NewKMSService returns a KMSService backed by the default gocloud.dev/secrets mux.
func NewKMSService() KMSService {
	return &kmsService{mux: secrets.DefaultURLMux()}
}

// OpenKeeper rejects URIs whose scheme has no registered keeper driver before dialing
// anything, so a typo in KMS_KEY_URI fails fast instead of timing out against a cloud API.
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	u, err := url.Parse(keyURI)
	if err != nil || u.Scheme == "" {
		return nil, fmt.Errorf("failed to open KMS keeper: %w: malformed key URI", cryptoDomain.ErrInvalidKMSConfig)
	}
	if !k.mux.ValidKeeperScheme(u.Scheme) {
		return nil, fmt.Errorf("failed to open KMS keeper: %w: no driver for scheme %q",
			cryptoDomain.ErrInvalidKMSConfig, u.Scheme)
	}

	keeper, err := k.mux.OpenKeeperURL(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}
