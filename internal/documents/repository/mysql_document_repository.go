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

// MySQLDocumentRepository implements document persistence for MySQL. Document ids are
// stored as BINARY(16); byte order of version 7 ids follows creation time, so id cursors
// walk documents oldest first on both dialects.
type MySQLDocumentRepository struct {
	db *sql.DB
}

func (m *MySQLDocumentRepository) Create(ctx context.Context, doc *documentDomain.Document) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalID(doc.ID)
	if err != nil {
		return err
	}

	query := `INSERT INTO documents (` + documentColumns + `) 
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	masterKeyID, wrapped, wrapIV, wrapTag := wrapArgs(doc.Wrap)
	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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

func (m *MySQLDocumentRepository) Get(ctx context.Context, id uuid.UUID) (*documentDomain.Document, error) {
	querier := database.GetTx(ctx, m.db)

	binID, err := marshalID(id)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`

	doc, err := m.scanDocument(querier.QueryRowContext(ctx, query, binID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, documentDomain.ErrDocumentNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get document")
	}
	return doc, nil
}

func (m *MySQLDocumentRepository) List(ctx context.Context, offset, limit int) ([]*documentDomain.Document, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY id ASC LIMIT ? OFFSET ?`

	return m.query(ctx, querier, query, limit, offset)
}

func (m *MySQLDocumentRepository) ListByMasterKey(
	ctx context.Context,
	masterKeyID string,
	afterID uuid.UUID,
	limit int,
) ([]*documentDomain.Document, error) {
	querier := database.GetTx(ctx, m.db)

	after, err := marshalID(afterID)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + documentColumns + ` FROM documents 
			  WHERE encryption_version = 1 AND master_key_id = ? AND id > ? 
			  ORDER BY id ASC 
			  LIMIT ?`

	return m.query(ctx, querier, query, masterKeyID, after, limit)
}

func (m *MySQLDocumentRepository) UpdateWrap(
	ctx context.Context,
	id uuid.UUID,
	wrap *cryptoDomain.WrappedDataKey,
	expectedKeyID string,
	expectedEpoch int64,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	binID, err := marshalID(id)
	if err != nil {
		return false, err
	}

	query := `UPDATE documents 
			  SET master_key_id = ?, wrapped_key = ?, wrap_iv = ?, wrap_tag = ?, 
			      key_epoch = key_epoch + 1, updated_at = ? 
			  WHERE id = ? AND encryption_version = 1 AND master_key_id = ? AND key_epoch = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		wrap.MasterKeyID,
		wrap.Wrapped,
		wrap.IV,
		wrap.Tag,
		now,
		binID,
		expectedKeyID,
		expectedEpoch,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update document wrap")
	}
	return rowsChanged(result)
}

func (m *MySQLDocumentRepository) ListLegacy(
	ctx context.Context,
	afterID uuid.UUID,
	limit int,
) ([]*documentDomain.Document, error) {
	querier := database.GetTx(ctx, m.db)

	after, err := marshalID(afterID)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + documentColumns + ` FROM documents 
			  WHERE encryption_version = 0 AND id > ? 
			  ORDER BY id ASC 
			  LIMIT ?`

	return m.query(ctx, querier, query, after, limit)
}

func (m *MySQLDocumentRepository) SwapToEnvelope(
	ctx context.Context,
	doc *documentDomain.Document,
	legacyStorageKey string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	binID, err := marshalID(doc.ID)
	if err != nil {
		return false, err
	}

	query := `UPDATE documents 
			  SET storage_key = ?, encryption_version = 1, algorithm = ?, master_key_id = ?, 
			      wrapped_key = ?, wrap_iv = ?, wrap_tag = ?, content_iv = ?, size_bytes = ?, 
			      key_epoch = key_epoch + 1, updated_at = ? 
			  WHERE id = ? AND encryption_version = 0 AND storage_key = ?`

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
		binID,
		legacyStorageKey,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to swap document to envelope")
	}
	return rowsChanged(result)
}

// NewMySQLDocumentRepository creates a new MySQL document repository.
func NewMySQLDocumentRepository(db *sql.DB) *MySQLDocumentRepository {
	return &MySQLDocumentRepository{db: db}
}

func (m *MySQLDocumentRepository) query(
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
		doc, err := m.scanDocument(rows)
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

func (m *MySQLDocumentRepository) scanDocument(row rowScanner) (*documentDomain.Document, error) {
	var doc documentDomain.Document
	var id []byte
	var fields wrapFields

	err := row.Scan(
		&id,
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

	doc.ID, err = uuid.FromBytes(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal document id")
	}
	doc.Wrap = fields.toDomain()
	return &doc, nil
}

func marshalID(id uuid.UUID) ([]byte, error) {
	b, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal document id")
	}
	return b, nil
}
