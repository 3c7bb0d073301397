package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
	rbacUseCase "github.com/allisson/docvault/internal/rbac/usecase"
)

func parseRolePermission(role, permission string) (rbacDomain.Role, rbacDomain.Permission, error) {
	r, err := rbacDomain.ParseRole(role)
	if err != nil {
		return "", "", fmt.Errorf("invalid role %q: %w", role, err)
	}
	p, err := rbacDomain.ParsePermission(permission)
	if err != nil {
		return "", "", fmt.Errorf("invalid permission %q: %w", permission, err)
	}
	return r, p, nil
}

// RunSetPermissionOverride grants or denies permission to role regardless of the default
// minimum role.
func RunSetPermissionOverride(
	ctx context.Context,
	resolver rbacUseCase.PermissionResolver,
	logger *slog.Logger,
	writer io.Writer,
	role, permission string,
	allowed bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	r, p, err := parseRolePermission(role, permission)
	if err != nil {
		return err
	}

	override, err := resolver.SetOverride(ctx, r, p, allowed)
	if err != nil {
		return fmt.Errorf("failed to set permission override: %w", err)
	}
	logger.Info("permission override set",
		slog.String("role", string(r)),
		slog.String("permission", string(p)),
		slog.Bool("allowed", allowed),
	)

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"role":       override.Role,
			"permission": override.Permission,
			"allowed":    override.Allowed,
			"updated_at": override.UpdatedAt,
		})
	}
	verdict := "denied"
	if override.Allowed {
		verdict = "allowed"
	}
	_, _ = fmt.Fprintf(writer, "%s is now %s for role %s\n", override.Permission, verdict, override.Role)
	return nil
}

// RunDeletePermissionOverride removes an override so the default minimum role applies again.
func RunDeletePermissionOverride(
	ctx context.Context,
	resolver rbacUseCase.PermissionResolver,
	logger *slog.Logger,
	writer io.Writer,
	role, permission string,
) error {
	r, p, err := parseRolePermission(role, permission)
	if err != nil {
		return err
	}
	if err := resolver.DeleteOverride(ctx, r, p); err != nil {
		return fmt.Errorf("failed to delete permission override: %w", err)
	}
	logger.Info("permission override deleted", slog.String("role", string(r)), slog.String("permission", string(p)))
	_, _ = fmt.Fprintf(writer, "Override removed; %s for role %s follows the default again\n", p, r)
	return nil
}
