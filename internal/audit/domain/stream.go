package domain

import (
	"fmt"
	"strings"
)

// Well-known stream keys.
const (
	StreamMasterKeys  = "master-keys"
	StreamRotation    = "key-rotation"
	StreamMigration   = "legacy-migration"
	StreamScan        = "malware-scan"
	StreamPermissions = "permissions"
	StreamClients     = "clients"
)

// Actions recorded by the core.
const (
	ActionMasterKeyActivated   = "master_key.activated"
	ActionMasterKeyRevoked     = "master_key.revoked"
	ActionMasterKeyRegistered  = "master_key.registered"
	ActionRotationBatch        = "rotation.batch"
	ActionMigrationBatch       = "migration.batch"
	ActionDocumentIngested     = "document.ingested"
	ActionDocumentRewrapped    = "document.rewrapped"
	ActionDocumentMigrated     = "document.migrated"
	ActionDocumentDownloaded   = "document.downloaded"
	ActionScanCompleted        = "scan.completed"
	ActionScanSkipped          = "scan.skipped"
	ActionScanHealed           = "scan.healed"
	ActionQuarantineOverride   = "quarantine.override_granted"
	ActionPermissionOverride   = "permission.override_set"
	ActionPermissionOverrideRm = "permission.override_deleted"
	ActionClientCreated        = "client.created"
	ActionClientDeactivated    = "client.deactivated"
)

const maxStreamKeyLength = 191

// DocumentStream returns the per-document stream key.
func DocumentStream(docID fmt.Stringer) string {
	return "document:" + docID.String()
}

// ValidateStreamKey rejects empty, oversized or whitespace-padded stream keys.
func ValidateStreamKey(key string) error {
	if key == "" || len(key) > maxStreamKeyLength || strings.TrimSpace(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidStreamKey, key)
	}
	return nil
}
