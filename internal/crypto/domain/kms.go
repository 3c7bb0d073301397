package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// kmsProviderSchemes maps KMS_PROVIDER values to the key URI scheme their keeper opens.
var kmsProviderSchemes = map[string]string{
	"localsecrets":  "base64key",
	"gcpkms":        "gcpkms",
	"awskms":        "awskms",
	"azurekeyvault": "azurekeyvault",
	"hashivault":    "hashivault",
}

// KMSProviders lists the supported KMS_PROVIDER values in sorted order.
func KMSProviders() []string {
	return slices.Sorted(maps.Keys(kmsProviderSchemes))
}

// ValidateKMSConfig checks that provider and keyURI are set together and that the URI
// scheme belongs to the provider. Both empty means master keys are configured in plaintext.
func ValidateKMSConfig(provider, keyURI string) error {
	if provider == "" && keyURI == "" {
		return nil
	}
	if provider == "" || keyURI == "" {
		return fmt.Errorf("%w: KMS_PROVIDER and KMS_KEY_URI must be set together", ErrInvalidKMSConfig)
	}
	scheme, ok := kmsProviderSchemes[provider]
	if !ok {
		return fmt.Errorf("%w: unsupported provider %q (supported: %s)",
			ErrInvalidKMSConfig, provider, strings.Join(KMSProviders(), ", "))
	}
	if !strings.HasPrefix(keyURI, scheme+"://") {
		return fmt.Errorf("%w: %s key URI must start with %s://", ErrInvalidKMSConfig, provider, scheme)
	}
	return nil
}
