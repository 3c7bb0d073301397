// Package repository implements persistence of document metadata.
//
// Rotation and migration never read-modify-write a row across round trips: each change is
// a single UPDATE whose WHERE clause restates the state the caller read (wrapping key and
// epoch for rotation, legacy version and storage key for migration). A zero-row result
// means another writer got there first.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	"github.com/allisson/docvault/internal/database"
	documentDomain "github.com/allisson/docvault/internal/documents/domain"
	apperrors "github.com/allisson/docvault/internal/errors"
)

const documentColumns = `id, filename, content_type, size_bytes, storage_key, encryption_version, scan_status, ` +
	`algorithm, master_key_id, wrapped_key, wrap_iv, wrap_tag, content_iv, key_epoch, created_at, updated_at`

// PostgreSQLDocumentRepository implements document persistence for PostgreSQL.
type PostgreSQLDocumentRepository struct {
	db *sql.DB
}

func (p *PostgreSQLDocumentRepository) Create(ctx context.Context, doc *documentDomain.Document) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO documents (` + documentColumns + `) 
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	masterKeyID, wrapped, wrapIV, wrapTag := wrapArgs(doc.Wrap)
	_, err := querier.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.Filename,
		doc.ContentType,
		doc.SizeBytes,
		doc.StorageKey,
		doc.EncryptionVersion,
		doc.ScanStatus,
		doc.Algorithm,
		masterKeyID,
		wrapped,
		wrapIV,
		wrapTag,
		nullBytes(doc.ContentIV),
		doc.KeyEpoch,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create document")
	}
	return nil
}

func (p *PostgreSQLDocumentRepository) Get(ctx context.Context, id uuid.UUID) (*documentDomain.Document, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	doc, err := p.scanDocument(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, documentDomain.ErrDocumentNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get document")
	}
	return doc, nil
}

func (p *PostgreSQLDocumentRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*documentDomain.Document, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY id ASC LIMIT $1 OFFSET $2`

	return p.query(ctx, querier, query, limit, offset)
}

func (p *PostgreSQLDocumentRepository) ListByMasterKey(
	ctx context.Context,
	masterKeyID string,
	afterID uuid.UUID,
	limit int,
) ([]*documentDomain.Document, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + documentColumns + ` FROM documents 
			  WHERE encryption_version = 1 AND master_key_id = $1 AND id > $2 
			  ORDER BY id ASC 
			  LIMIT $3`

	return p.query(ctx, querier, query, masterKeyID, afterID, limit)
}

func (p *PostgreSQLDocumentRepository) UpdateWrap(
	ctx context.Context,
	id uuid.UUID,
	wrap *cryptoDomain.WrappedDataKey,
	expectedKeyID string,
	expectedEpoch int64,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE documents 
			  SET master_key_id = $1, wrapped_key = $2, wrap_iv = $3, wrap_tag = $4, 
			      key_epoch = key_epoch + 1, updated_at = $5 
			  WHERE id = $6 AND encryption_version = 1 AND master_key_id = $7 AND key_epoch = $8`

	result, err := querier.ExecContext(
		ctx,
		query,
		wrap.MasterKeyID,
		wrap.Wrapped,
		wrap.IV,
		wrap.Tag,
		now,
		id,
		expectedKeyID,
		expectedEpoch,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update document wrap")
	}
	return rowsChanged(result)
}

func (p *PostgreSQLDocumentRepository) ListLegacy(
	ctx context.Context,
	afterID uuid.UUID,
	limit int,
) ([]*documentDomain.Document, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + documentColumns + ` FROM documents 
			  WHERE encryption_version = 0 AND id > $1 
			  ORDER BY id ASC 
			  LIMIT $2`

	return p.query(ctx, querier, query, afterID, limit)
}

func (p *PostgreSQLDocumentRepository) SwapToEnvelope(
	ctx context.Context,
	doc *documentDomain.Document,
	legacyStorageKey string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE documents 
			  SET storage_key = $1, encryption_version = 1, algorithm = $2, master_key_id = $3, 
			      wrapped_key = $4, wrap_iv = $5, wrap_tag = $6, content_iv = $7, size_bytes = $8, 
			      key_epoch = key_epoch + 1, updated_at = $9 
			  WHERE id = $10 AND encryption_version = 0 AND storage_key = $11`

	masterKeyID, wrapped, wrapIV, wrapTag := wrapArgs(doc.Wrap)
	result, err := querier.ExecContext(
		ctx,
		query,
		doc.StorageKey,
		doc.Algorithm,
		masterKeyID,
		wrapped,
		wrapIV,
		wrapTag,
		nullBytes(doc.ContentIV),
		doc.SizeBytes,
		now,
		doc.ID,
		legacyStorageKey,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to swap document to envelope")
	}
	return rowsChanged(result)
}

// NewPostgreSQLDocumentRepository creates a new PostgreSQL document repository.
func NewPostgreSQLDocumentRepository(db *sql.DB) *PostgreSQLDocumentRepository {
	return &PostgreSQLDocumentRepository{db: db}
}

func (p *PostgreSQLDocumentRepository) query(
	ctx context.Context,
	querier database.Querier,
	query string,
	args ...any,
) ([]*documentDomain.Document, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list documents")
	}
	defer func() {
		_ = rows.Close()
	}()

	docs := make([]*documentDomain.Document, 0)
	for rows.Next() {
		doc, err := p.scanDocument(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan document")
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate documents")
	}
	return docs, nil
}

func (p *PostgreSQLDocumentRepository) scanDocument(row rowScanner) (*documentDomain.Document, error) {
	var doc documentDomain.Document
	var fields wrapFields

	err := row.Scan(
		&doc.ID,
		&doc.Filename,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.StorageKey,
		&doc.EncryptionVersion,
		&doc.ScanStatus,
		&doc.Algorithm,
		&fields.masterKeyID,
		&fields.wrapped,
		&fields.iv,
		&fields.tag,
		&doc.ContentIV,
		&doc.KeyEpoch,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Wrap = fields.toDomain()
	return &doc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// wrapFields holds the nullable wrap columns of a row.
type wrapFields struct {
	masterKeyID sql.NullString
	wrapped     []byte
	iv          []byte
	tag         []byte
}

func (w wrapFields) toDomain() *cryptoDomain.WrappedDataKey {
	if !w.masterKeyID.Valid {
		return nil
	}
	return &cryptoDomain.WrappedDataKey{
		MasterKeyID: w.masterKeyID.String,
		Wrapped:     w.wrapped,
		IV:          w.iv,
		Tag:         w.tag,
	}
}

// wrapArgs returns SQL NULLs for a document without a wrap.
func wrapArgs(wrap *cryptoDomain.WrappedDataKey) (masterKeyID, wrapped, iv, tag any) {
	if wrap == nil {
		return nil, nil, nil, nil
	}
	return wrap.MasterKeyID, wrap.Wrapped, wrap.IV, wrap.Tag
}

// nullBytes passes a nil slice as SQL NULL rather than an empty value.
func nullBytes(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}

func rowsChanged(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}
