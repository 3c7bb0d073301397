// Package repository implements persistence of master key lifecycle state.
//
// Only the registry record lives in the database: id, the active and revoked flags, and
// timestamps. Key material never leaves process memory. A unique partial index on the
// active column (a generated unique column on MySQL) makes two active rows impossible,
// so an activation that races another one fails instead of corrupting the registry.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	"github.com/allisson/docvault/internal/database"
	apperrors "github.com/allisson/docvault/internal/errors"
)

const masterKeyColumns = `id, active, revoked, revoked_reason, created_at, updated_at`

// PostgreSQLMasterKeyRepository implements master key state persistence for PostgreSQL.
type PostgreSQLMasterKeyRepository struct {
	db *sql.DB
}

func (p *PostgreSQLMasterKeyRepository) Create(ctx context.Context, state *cryptoDomain.MasterKeyState) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO master_keys (id, active, revoked, revoked_reason, created_at, updated_at) 
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		state.ID,
		state.Active,
		state.Revoked,
		state.RevokedReason,
		state.CreatedAt,
		state.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create master key")
	}
	return nil
}

func (p *PostgreSQLMasterKeyRepository) Get(ctx context.Context, id string) (*cryptoDomain.MasterKeyState, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + masterKeyColumns + ` FROM master_keys WHERE id = $1`

	return scanMasterKey(querier.QueryRowContext(ctx, query, id))
}

// GetActive returns ErrNoActiveMasterKey when no row is active.
func (p *PostgreSQLMasterKeyRepository) GetActive(ctx context.Context) (*cryptoDomain.MasterKeyState, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + masterKeyColumns + ` FROM master_keys WHERE active = TRUE`

	state, err := scanMasterKey(querier.QueryRowContext(ctx, query))
	if errors.Is(err, cryptoDomain.ErrMasterKeyNotFound) {
		return nil, cryptoDomain.ErrNoActiveMasterKey
	}
	return state, err
}

func (p *PostgreSQLMasterKeyRepository) List(ctx context.Context) ([]*cryptoDomain.MasterKeyState, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + masterKeyColumns + ` FROM master_keys ORDER BY created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list master keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanMasterKeys(rows)
}

// ClearActive deactivates whichever key is currently active.
func (p *PostgreSQLMasterKeyRepository) ClearActive(ctx context.Context, now time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE master_keys SET active = FALSE, updated_at = $1 WHERE active = TRUE`

	if _, err := querier.ExecContext(ctx, query, now); err != nil {
		return apperrors.Wrap(err, "failed to clear active master key")
	}
	return nil
}

// MarkActive activates id unless it is revoked. It reports whether a row changed.
func (p *PostgreSQLMasterKeyRepository) MarkActive(ctx context.Context, id string, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE master_keys SET active = TRUE, updated_at = $1 WHERE id = $2 AND revoked = FALSE`

	result, err := querier.ExecContext(ctx, query, now, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to activate master key")
	}
	return rowsChanged(result)
}

func (p *PostgreSQLMasterKeyRepository) Revoke(ctx context.Context, id, reason string, now time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE master_keys SET revoked = TRUE, revoked_reason = $1, updated_at = $2 WHERE id = $3`

	result, err := querier.ExecContext(ctx, query, reason, now, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to revoke master key")
	}
	changed, err := rowsChanged(result)
	if err != nil {
		return err
	}
	if !changed {
		return cryptoDomain.ErrMasterKeyNotFound
	}
	return nil
}

// NewPostgreSQLMasterKeyRepository creates a new PostgreSQL master key repository.
func NewPostgreSQLMasterKeyRepository(db *sql.DB) *PostgreSQLMasterKeyRepository {
	return &PostgreSQLMasterKeyRepository{db: db}
}

func scanMasterKey(row *sql.Row) (*cryptoDomain.MasterKeyState, error) {
	var state cryptoDomain.MasterKeyState
	err := row.Scan(
		&state.ID,
		&state.Active,
		&state.Revoked,
		&state.RevokedReason,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cryptoDomain.ErrMasterKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get master key")
	}
	return &state, nil
}

func scanMasterKeys(rows *sql.Rows) ([]*cryptoDomain.MasterKeyState, error) {
	states := make([]*cryptoDomain.MasterKeyState, 0)
	for rows.Next() {
		var state cryptoDomain.MasterKeyState
		err := rows.Scan(
			&state.ID,
			&state.Active,
			&state.Revoked,
			&state.RevokedReason,
			&state.CreatedAt,
			&state.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan master key")
		}
		states = append(states, &state)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate master keys")
	}
	return states, nil
}

func rowsChanged(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}
