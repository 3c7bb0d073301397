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

// MySQLMasterKeyRepository implements master key state persistence for MySQL.
type MySQLMasterKeyRepository struct {
	db *sql.DB
}

func (m *MySQLMasterKeyRepository) Create(ctx context.Context, state *cryptoDomain.MasterKeyState) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO master_keys (id, active, revoked, revoked_reason, created_at, updated_at) 
			  VALUES (?, ?, ?, ?, ?, ?)`

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

func (m *MySQLMasterKeyRepository) Get(ctx context.Context, id string) (*cryptoDomain.MasterKeyState, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + masterKeyColumns + ` FROM master_keys WHERE id = ?`

	return scanMasterKey(querier.QueryRowContext(ctx, query, id))
}

func (m *MySQLMasterKeyRepository) GetActive(ctx context.Context) (*cryptoDomain.MasterKeyState, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + masterKeyColumns + ` FROM master_keys WHERE active = TRUE`

	state, err := scanMasterKey(querier.QueryRowContext(ctx, query))
	if errors.Is(err, cryptoDomain.ErrMasterKeyNotFound) {
		return nil, cryptoDomain.ErrNoActiveMasterKey
	}
	return state, err
}

func (m *MySQLMasterKeyRepository) List(ctx context.Context) ([]*cryptoDomain.MasterKeyState, error) {
	querier := database.GetTx(ctx, m.db)

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

func (m *MySQLMasterKeyRepository) ClearActive(ctx context.Context, now time.Time) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE master_keys SET active = FALSE, updated_at = ? WHERE active = TRUE`

	if _, err := querier.ExecContext(ctx, query, now); err != nil {
		return apperrors.Wrap(err, "failed to clear active master key")
	}
	return nil
}

func (m *MySQLMasterKeyRepository) MarkActive(ctx context.Context, id string, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE master_keys SET active = TRUE, updated_at = ? WHERE id = ? AND revoked = FALSE`

	result, err := querier.ExecContext(ctx, query, now, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to activate master key")
	}
	return rowsChanged(result)
}

func (m *MySQLMasterKeyRepository) Revoke(ctx context.Context, id, reason string, now time.Time) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE master_keys SET revoked = TRUE, revoked_reason = ?, updated_at = ? WHERE id = ?`

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

// NewMySQLMasterKeyRepository creates a new MySQL master key repository.
func NewMySQLMasterKeyRepository(db *sql.DB) *MySQLMasterKeyRepository {
	return &MySQLMasterKeyRepository{db: db}
}
