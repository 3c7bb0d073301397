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

// MySQLClientRepository implements Client persistence for MySQL.
type MySQLClientRepository struct {
	db *sql.DB
}

// Create inserts a new Client.
func (m *MySQLClientRepository) Create(ctx context.Context, client *authDomain.Client) error {
	querier := database.GetTx(ctx, m.db)

	id, err := client.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal client id")
	}

	query := `INSERT INTO clients (id, name, role, secret_hash, is_active, created_at) 
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLClientRepository) Get(ctx context.Context, clientID uuid.UUID) (*authDomain.Client, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := clientID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal client id")
	}

	query := `SELECT id, name, role, secret_hash, is_active, created_at FROM clients WHERE id = ?`

	client, err := scanMySQLClient(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authDomain.ErrClientNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get client")
	}
	return client, nil
}

// List returns clients ordered by id descending.
func (m *MySQLClientRepository) List(ctx context.Context, offset, limit int) ([]*authDomain.Client, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, name, role, secret_hash, is_active, created_at FROM clients 
			  ORDER BY id DESC LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list clients")
	}
	defer func() { _ = rows.Close() }()

	clients := make([]*authDomain.Client, 0)
	for rows.Next() {
		client, err := scanMySQLClient(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan client")
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate clients")
	}
	return clients, nil
}

// SetActive flips is_active. Returns ErrClientNotFound if no row matched.
func (m *MySQLClientRepository) SetActive(ctx context.Context, clientID uuid.UUID, active bool) error {
	querier := database.GetTx(ctx, m.db)

	id, err := clientID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal client id")
	}

	// Without CLIENT_FOUND_ROWS MySQL reports changed rows, so setting the current value
	// affects nothing. A lookup tells that apart from a missing client.
	result, err := querier.ExecContext(ctx, `UPDATE clients SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update client")
	}
	if err := matched(result); err == nil {
		return nil
	}
	_, err = m.Get(ctx, clientID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMySQLClient(row rowScanner) (*authDomain.Client, error) {
	var client authDomain.Client
	var id []byte
	var role string
	if err := row.Scan(&id, &client.Name, &role, &client.SecretHash, &client.IsActive, &client.CreatedAt); err != nil {
		return nil, err
	}
	clientID, err := uuid.FromBytes(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal client id")
	}
	client.ID = clientID
	client.Role = rbacDomain.Role(role)
	return &client, nil
}

// NewMySQLClientRepository creates a new MySQL Client repository.
func NewMySQLClientRepository(db *sql.DB) *MySQLClientRepository {
	return &MySQLClientRepository{db: db}
}
