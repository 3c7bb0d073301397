package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"time"

	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	cryptoUseCase "github.com/allisson/docvault/internal/crypto/usecase"
)

// RunCreateMasterKey generates a 32-byte master key and prints the environment variables
// that load it. With kmsProvider and kmsKeyURI the key is encrypted by the KMS and the
// printed value is the ciphertext; without them the printed value is the plaintext key,
// which is only suitable for development. Key material is zeroed after encoding.
// If keyID is empty, a default ID "master-key-YYYY-MM-DD" is used.
func RunCreateMasterKey(
	ctx context.Context,
	kmsService cryptoDomain.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	keyID, kmsProvider, kmsKeyURI string,
) error {
	if err := cryptoDomain.ValidateKMSConfig(kmsProvider, kmsKeyURI); err != nil {
		return fmt.Errorf("--kms-provider/--kms-key-uri: %w", err)
	}
	if keyID == "" {
		keyID = fmt.Sprintf("master-key-%s", time.Now().UTC().Format("2006-01-02"))
	}

	masterKey := make([]byte, cryptoDomain.KeySize)
	defer cryptoDomain.Zero(masterKey)
	if _, err := rand.Read(masterKey); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}

	encoded := masterKey
	if kmsProvider != "" {
		keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
		if err != nil {
			return fmt.Errorf("failed to open KMS keeper: %w", err)
		}
		defer func() {
			if closeErr := keeper.Close(); closeErr != nil {
				logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
			}
		}()

		encoded, err = keeper.Encrypt(ctx, masterKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt master key with KMS: %w", err)
		}
	}
	value := base64.StdEncoding.EncodeToString(encoded)

	_, _ = fmt.Fprintln(writer, "# Master key configuration")
	if kmsProvider != "" {
		_, _ = fmt.Fprintf(writer, "KMS_PROVIDER=\"%s\"\n", kmsProvider)
		_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	} else {
		_, _ = fmt.Fprintln(writer, "# WARNING: plaintext key; use a KMS provider outside development")
	}
	_, _ = fmt.Fprintf(writer, "MASTER_KEYS=\"%s:%s\"\n", keyID, value)
	_, _ = fmt.Fprintf(writer, "ACTIVE_MASTER_KEY_ID=\"%s\"\n", keyID)
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintln(writer, "# To rotate, append the new key to MASTER_KEYS, restart, then run")
	_, _ = fmt.Fprintf(writer, "# activate-master-key --id <new-id> and rotate-doc-keys --from %s\n", keyID)

	logger.Info("master key generated", slog.String("master_key_id", keyID), slog.Bool("kms", kmsProvider != ""))
	return nil
}

// RunListMasterKeys prints the registry state of every master key.
func RunListMasterKeys(
	ctx context.Context,
	masterKeyUseCase cryptoUseCase.MasterKeyUseCase,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	states, err := masterKeyUseCase.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list master keys: %w", err)
	}

	if format == "json" {
		out := make([]map[string]any, 0, len(states))
		for _, s := range states {
			out = append(out, masterKeyStateJSON(s))
		}
		return writeJSON(writer, out)
	}

	if len(states) == 0 {
		_, _ = fmt.Fprintln(writer, "No master keys registered")
		return nil
	}
	for _, s := range states {
		status := "inactive"
		switch {
		case s.Revoked:
			status = "revoked"
		case s.Active:
			status = "active"
		}
		_, _ = fmt.Fprintf(writer, "%-32s %-8s %s\n", s.ID, status, s.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

// RunActivateMasterKey makes id the single active master key.
func RunActivateMasterKey(
	ctx context.Context,
	masterKeyUseCase cryptoUseCase.MasterKeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	id, reason, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	state, err := masterKeyUseCase.SetActive(ctx, id, reason)
	if err != nil {
		return fmt.Errorf("failed to activate master key: %w", err)
	}
	logger.Info("master key activated", slog.String("master_key_id", state.ID))
	return writeMasterKeyState(writer, state, format)
}

// RunRevokeMasterKey marks id revoked. Documents wrapped by it remain readable.
func RunRevokeMasterKey(
	ctx context.Context,
	masterKeyUseCase cryptoUseCase.MasterKeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	id, reason, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	state, err := masterKeyUseCase.Revoke(ctx, id, reason)
	if err != nil {
		return fmt.Errorf("failed to revoke master key: %w", err)
	}
	logger.Info("master key revoked", slog.String("master_key_id", state.ID))
	return writeMasterKeyState(writer, state, format)
}

func writeMasterKeyState(writer io.Writer, state *cryptoDomain.MasterKeyState, format string) error {
	if format == "json" {
		return writeJSON(writer, masterKeyStateJSON(state))
	}
	_, _ = fmt.Fprintf(writer, "Master key: %s\n", state.ID)
	_, _ = fmt.Fprintf(writer, "Active:     %t\n", state.Active)
	_, _ = fmt.Fprintf(writer, "Revoked:    %t\n", state.Revoked)
	if state.RevokedReason != "" {
		_, _ = fmt.Fprintf(writer, "Reason:     %s\n", state.RevokedReason)
	}
	return nil
}

func masterKeyStateJSON(s *cryptoDomain.MasterKeyState) map[string]any {
	return map[string]any{
		"id":             s.ID,
		"active":         s.Active,
		"revoked":        s.Revoked,
		"revoked_reason": s.RevokedReason,
		"created_at":     s.CreatedAt,
		"updated_at":     s.UpdatedAt,
	}
}
