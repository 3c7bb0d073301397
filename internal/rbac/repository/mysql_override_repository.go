package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/docvault/internal/database"
	apperrors "github.com/allisson/docvault/internal/errors"
	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
)

// MySQLOverrideRepository implements override persistence for MySQL.
type MySQLOverrideRepository struct {
	db *sql.DB
}

func (m *MySQLOverrideRepository) List(ctx context.Context) ([]*rbacDomain.Override, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT role, permission, allowed, updated_at FROM permission_overrides ORDER BY role, permission`

	return listOverrides(ctx, querier, query)
}

func (m *MySQLOverrideRepository) Fingerprint(ctx context.Context) (rbacDomain.OverrideFingerprint, error) {
	querier := database.GetTx(ctx, m.db)

	return fingerprint(ctx, querier, `SELECT COUNT(*), MAX(updated_at) FROM permission_overrides`)
}

func (m *MySQLOverrideRepository) Upsert(ctx context.Context, override *rbacDomain.Override) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO permission_overrides (role, permission, allowed, updated_at) 
			  VALUES (?, ?, ?, ?) 
			  ON DUPLICATE KEY UPDATE allowed = VALUES(allowed), updated_at = VALUES(updated_at)`

	_, err := querier.ExecContext(ctx, query, override.Role, override.Permission, override.Allowed, override.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert permission override")
	}
	return nil
}

func (m *MySQLOverrideRepository) Delete(
	ctx context.Context,
	role rbacDomain.Role,
	permission rbacDomain.Permission,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM permission_overrides WHERE role = ? AND permission = ?`

	result, err := querier.ExecContext(ctx, query, role, permission)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete permission override")
	}
	return deleted(result)
}

// NewMySQLOverrideRepository creates a new MySQL override repository.
func NewMySQLOverrideRepository(db *sql.DB) *MySQLOverrideRepository {
	return &MySQLOverrideRepository{db: db}
}
