// Package repository implements persistence of permission overrides.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/docvault/internal/database"
	apperrors "github.com/allisson/docvault/internal/errors"
	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
)

// PostgreSQLOverrideRepository implements override persistence for PostgreSQL.
type PostgreSQLOverrideRepository struct {
	db *sql.DB
}

func (p *PostgreSQLOverrideRepository) List(ctx context.Context) ([]*rbacDomain.Override, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT role, permission, allowed, updated_at FROM permission_overrides ORDER BY role, permission`

	return listOverrides(ctx, querier, query)
}

func (p *PostgreSQLOverrideRepository) Fingerprint(ctx context.Context) (rbacDomain.OverrideFingerprint, error) {
	querier := database.GetTx(ctx, p.db)

	return fingerprint(ctx, querier, `SELECT COUNT(*), MAX(updated_at) FROM permission_overrides`)
}

func (p *PostgreSQLOverrideRepository) Upsert(ctx context.Context, override *rbacDomain.Override) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO permission_overrides (role, permission, allowed, updated_at) 
			  VALUES ($1, $2, $3, $4) 
			  ON CONFLICT (role, permission) DO UPDATE SET allowed = EXCLUDED.allowed, updated_at = EXCLUDED.updated_at`

	_, err := querier.ExecContext(ctx, query, override.Role, override.Permission, override.Allowed, override.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert permission override")
	}
	return nil
}

func (p *PostgreSQLOverrideRepository) Delete(
	ctx context.Context,
	role rbacDomain.Role,
	permission rbacDomain.Permission,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM permission_overrides WHERE role = $1 AND permission = $2`

	result, err := querier.ExecContext(ctx, query, role, permission)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete permission override")
	}
	return deleted(result)
}

// NewPostgreSQLOverrideRepository creates a new PostgreSQL override repository.
func NewPostgreSQLOverrideRepository(db *sql.DB) *PostgreSQLOverrideRepository {
	return &PostgreSQLOverrideRepository{db: db}
}

func listOverrides(ctx context.Context, querier database.Querier, query string) ([]*rbacDomain.Override, error) {
	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list permission overrides")
	}
	defer func() {
		_ = rows.Close()
	}()

	overrides := make([]*rbacDomain.Override, 0)
	for rows.Next() {
		var o rbacDomain.Override
		var updatedAt time.Time
		if err := rows.Scan(&o.Role, &o.Permission, &o.Allowed, &updatedAt); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan permission override")
		}
		o.UpdatedAt = updatedAt
		overrides = append(overrides, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate permission overrides")
	}
	return overrides, nil
}

func fingerprint(ctx context.Context, querier database.Querier, query string) (rbacDomain.OverrideFingerprint, error) {
	var fp rbacDomain.OverrideFingerprint
	var lastUpdated sql.NullTime
	if err := querier.QueryRowContext(ctx, query).Scan(&fp.Count, &lastUpdated); err != nil {
		return rbacDomain.OverrideFingerprint{}, apperrors.Wrap(err, "failed to fingerprint permission overrides")
	}
	if lastUpdated.Valid {
		fp.LastUpdated = lastUpdated.Time.UTC()
	}
	return fp, nil
}

func deleted(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return rbacDomain.ErrOverrideNotFound
	}
	return nil
}
