package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	authDomain "github.com/allisson/docvault/internal/auth/domain"
	authUseCase "github.com/allisson/docvault/internal/auth/usecase"
	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
)

// RunCreateClient creates an API client and prints its credentials. The secret is shown
// only once; it is stored as an Argon2id hash.
func RunCreateClient(
	ctx context.Context,
	clientUseCase authUseCase.ClientUseCase,
	logger *slog.Logger,
	writer io.Writer,
	name, role string,
	isActive bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	parsedRole, err := rbacDomain.ParseRole(role)
	if err != nil {
		return fmt.Errorf("invalid role %q: %w", role, err)
	}

	output, err := clientUseCase.Create(ctx, &authDomain.CreateClientInput{
		Name:     name,
		Role:     parsedRole,
		IsActive: isActive,
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	logger.Info("client created",
		slog.String("client_id", output.ID.String()),
		slog.String("role", string(parsedRole)),
	)

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"client_id": output.ID.String(),
			"secret":    output.PlainSecret,
			"role":      parsedRole,
		})
	}

	_, _ = fmt.Fprintf(writer, "Client ID: %s\n", output.ID)
	_, _ = fmt.Fprintf(writer, "Secret:    %s\n", output.PlainSecret)
	_, _ = fmt.Fprintf(writer, "Role:      %s\n", parsedRole)
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintln(writer, "WARNING: Save the secret now. It cannot be retrieved later.")
	_, _ = fmt.Fprintln(writer, "Authenticate with HTTP Basic auth: <client id>:<secret>")
	return nil
}
