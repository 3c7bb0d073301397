package usecase

import (
	"context"

	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	cryptoService "github.com/allisson/docvault/internal/crypto/service"
	cryptoUseCase "github.com/allisson/docvault/internal/crypto/usecase"
	documentDomain "github.com/allisson/docvault/internal/documents/domain"
	apperrors "github.com/allisson/docvault/internal/errors"
	"github.com/allisson/docvault/internal/storage"
)

// sealed is the envelope form of a piece of content.
type sealed struct {
	ciphertext []byte
	iv         []byte
	wrap       *cryptoDomain.WrappedDataKey
}

// activeKey returns the master key for new wraps, refusing a revoked one.
func activeKey(ctx context.Context, masterKeys cryptoUseCase.MasterKeyUseCase) (*cryptoDomain.MasterKey, error) {
	key, err := masterKeys.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if key.Revoked {
		return nil, apperrors.Wrapf(documentDomain.ErrActiveKeyRevoked, "master key %s", key.ID)
	}
	return key, nil
}

// seal encrypts plaintext under a fresh data key and wraps the data key under masterKey.
// The data key is zeroed before returning.
func seal(
	engine cryptoService.EnvelopeService,
	plaintext []byte,
	masterKey *cryptoDomain.MasterKey,
	alg cryptoDomain.Algorithm,
) (*sealed, error) {
	dataKey, err := engine.GenerateDataKey()
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(dataKey)

	iv, err := engine.GenerateIV()
	if err != nil {
		return nil, err
	}
	ciphertext, err := engine.Encrypt(plaintext, dataKey, iv, alg)
	if err != nil {
		return nil, err
	}
	wrap, err := engine.WrapDataKey(dataKey, masterKey, alg)
	if err != nil {
		return nil, err
	}
	return &sealed{ciphertext: ciphertext, iv: iv, wrap: wrap}, nil
}

// readPlaintext reads a document's blob and, for envelope documents, decrypts it.
func readPlaintext(
	ctx context.Context,
	doc *documentDomain.Document,
	blobs storage.BlobStore,
	engine cryptoService.EnvelopeService,
	masterKeys cryptoUseCase.MasterKeyUseCase,
) ([]byte, error) {
	content, err := blobs.Get(ctx, doc.StorageKey, 0)
	if err != nil {
		return nil, err
	}
	if !doc.IsEnvelope() {
		return content, nil
	}

	dataKey, err := unwrap(ctx, doc, engine, masterKeys)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(dataKey)

	return engine.Decrypt(content, dataKey, doc.ContentIV, doc.Algorithm)
}

// unwrap recovers a document's data key. Revoked master keys are accepted.
func unwrap(
	ctx context.Context,
	doc *documentDomain.Document,
	engine cryptoService.EnvelopeService,
	masterKeys cryptoUseCase.MasterKeyUseCase,
) ([]byte, error) {
	if doc.Wrap == nil {
		return nil, apperrors.Wrapf(documentDomain.ErrMissingWrap, "document %s", doc.ID)
	}
	masterKey, err := masterKeys.GetByID(ctx, doc.Wrap.MasterKeyID)
	if err != nil {
		return nil, err
	}
	return engine.UnwrapDataKey(doc.Wrap, masterKey, doc.Algorithm)
}
