// Package repository implements client persistence for PostgreSQL and MySQL.
//
// PostgreSQL uses native UUID types, MySQL uses BINARY(16). Both join an enclosing
// transaction through database.GetTx().
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	authDomain "github.com/allisson/docvault/internal/auth/domain"
	"github.com/allisson/docvault/internal/database"
	apperrors "github.com/allisson/docvault/internal/errors"
	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
)

// PostgreSQLClientRepository implements Client persistence for PostgreSQL.
type PostgreSQLClientRepository struct {
	db *sql.DB
}

// Create inserts a new Client.
func (p *PostgreSQLClientRepository) Create(ctx context.Context, client *authDomain.Client) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO clients (id, name, role, secret_hash, is_active, created_at) 
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		client.ID,
		client.Name,
		string(client.Role),
		client.SecretHash,
		client.IsActive,
		client.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create client")
	}
	return nil
}

// Get retrieves a Client by ID. Returns ErrClientNotFound if absent.
func (p *PostgreSQLClientRepository) Get(ctx context.Context, clientID uuid.UUID) (*authDomain.Client, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, name, role, secret_hash, is_active, created_at FROM clients WHERE id = $1`

	var client authDomain.Client
	var role string
	err := querier.QueryRowContext(ctx, query, clientID).Scan(
		&client.ID,
		&client.Name,
		&role,
		&client.SecretHash,
		&client.IsActive,
		&client.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authDomain.ErrClientNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get client")
	}
	client.Role = rbacDomain.Role(role)
	return &client, nil
}

// List returns clients ordered by id descending.
func (p *PostgreSQLClientRepository) List(ctx context.Context, offset, limit int) ([]*authDomain.Client, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, name, role, secret_hash, is_active, created_at FROM clients 
			  ORDER BY id DESC LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list clients")
	}
	defer func() { _ = rows.Close() }()

	clients := make([]*authDomain.Client, 0)
	for rows.Next() {
		var client authDomain.Client
		var role string
		if err := rows.Scan(
			&client.ID,
			&client.Name,
			&role,
			&client.SecretHash,
			&client.IsActive,
			&client.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan client")
		}
		client.Role = rbacDomain.Role(role)
		clients = append(clients, &client)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate clients")
	}
	return clients, nil
}

// SetActive flips is_active. Returns ErrClientNotFound if no row matched.
func (p *PostgreSQLClientRepository) SetActive(ctx context.Context, clientID uuid.UUID, active bool) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `UPDATE clients SET is_active = $1 WHERE id = $2`, active, clientID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update client")
	}
	return matched(result)
}

func matched(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if n == 0 {
		return authDomain.ErrClientNotFound
	}
	return nil
}

// NewPostgreSQLClientRepository creates a new PostgreSQL Client repository.
func NewPostgreSQLClientRepository(db *sql.DB) *PostgreSQLClientRepository {
	return &PostgreSQLClientRepository{db: db}
}
