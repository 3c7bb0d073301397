package app

import (
	"fmt"

	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	documentHTTP "github.com/allisson/docvault/internal/documents/http"
	documentRepository "github.com/allisson/docvault/internal/documents/repository"
	documentUseCase "github.com/allisson/docvault/internal/documents/usecase"
)

type documentComponents struct {
	repo             lazy[documentUseCase.DocumentRepository]
	useCase          lazy[documentUseCase.DocumentUseCase]
	rotationUseCase  lazy[documentUseCase.RotationUseCase]
	migrationUseCase lazy[documentUseCase.MigrationUseCase]
	handler          lazy[*documentHTTP.DocumentHandler]
	batchHandler     lazy[*documentHTTP.BatchHandler]
}

// documentConfig maps the application configuration onto the document use cases.
func (c *Container) documentConfig() (documentUseCase.Config, error) {
	alg, err := cryptoDomain.ParseAlgorithm(c.config.EnvelopeAlgorithm)
	if err != nil {
		return documentUseCase.Config{}, fmt.Errorf("invalid ENVELOPE_ALGORITHM %q: %w", c.config.EnvelopeAlgorithm, err)
	}
	return documentUseCase.Config{
		Algorithm:             alg,
		MaxUploadBytes:        c.config.MaxUploadBytes,
		RotationBatchSize:     c.config.RotationBatchSize,
		MigrationBatchSize:    c.config.MigrationBatchSize,
		MigrationMaxBytes:     c.config.MigrationMaxBytes,
		MigrationDeleteLegacy: c.config.MigrationDeleteLegacy,
	}, nil
}

// DocumentRepository returns the document repository for the configured driver.
func (c *Container) DocumentRepository() (documentUseCase.DocumentRepository, error) {
	return c.documents.repo.get(func() (documentUseCase.DocumentRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for document repository: %w", err)
		}

		switch c.config.DBDriver {
		case "postgres":
			return documentRepository.NewPostgreSQLDocumentRepository(db), nil
		case "mysql":
			return documentRepository.NewMySQLDocumentRepository(db), nil
		default:
			return nil, c.unsupportedDriver()
		}
	})
}

// DocumentUseCase returns the document ingestion and download use case.
func (c *Container) DocumentUseCase() (documentUseCase.DocumentUseCase, error) {
	return c.documents.useCase.get(func() (documentUseCase.DocumentUseCase, error) {
		cfg, err := c.documentConfig()
		if err != nil {
			return nil, err
		}
		txManager, err := c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("failed to get tx manager for document use case: %w", err)
		}
		repo, err := c.DocumentRepository()
		if err != nil {
			return nil, err
		}
		blobs, err := c.BlobStore()
		if err != nil {
			return nil, err
		}
		masterKeys, err := c.MasterKeyUseCase()
		if err != nil {
			return nil, err
		}
		scans, err := c.ScanUseCase()
		if err != nil {
			return nil, err
		}
		audit, err := c.AuditUseCase()
		if err != nil {
			return nil, err
		}

		useCase := documentUseCase.NewDocumentUseCase(
			txManager, repo, blobs, c.EnvelopeService(), masterKeys, scans, audit, cfg, c.Logger(),
		)
		if !c.config.MetricsEnabled {
			return useCase, nil
		}
		bm, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for document use case: %w", err)
		}
		return documentUseCase.NewDocumentUseCaseWithMetrics(useCase, bm), nil
	})
}

// RotationUseCase returns the key rotation coordinator.
func (c *Container) RotationUseCase() (documentUseCase.RotationUseCase, error) {
	return c.documents.rotationUseCase.get(func() (documentUseCase.RotationUseCase, error) {
		cfg, err := c.documentConfig()
		if err != nil {
			return nil, err
		}
		repo, err := c.DocumentRepository()
		if err != nil {
			return nil, err
		}
		masterKeys, err := c.MasterKeyUseCase()
		if err != nil {
			return nil, err
		}
		audit, err := c.AuditUseCase()
		if err != nil {
			return nil, err
		}

		useCase := documentUseCase.NewRotationUseCase(repo, c.EnvelopeService(), masterKeys, audit, cfg, c.Logger())
		if !c.config.MetricsEnabled {
			return useCase, nil
		}
		bm, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for rotation use case: %w", err)
		}
		return documentUseCase.NewRotationUseCaseWithMetrics(useCase, bm), nil
	})
}

// MigrationUseCase returns the legacy migration engine.
func (c *Container) MigrationUseCase() (documentUseCase.MigrationUseCase, error) {
	return c.documents.migrationUseCase.get(func() (documentUseCase.MigrationUseCase, error) {
		cfg, err := c.documentConfig()
		if err != nil {
			return nil, err
		}
		repo, err := c.DocumentRepository()
		if err != nil {
			return nil, err
		}
		blobs, err := c.BlobStore()
		if err != nil {
			return nil, err
		}
		masterKeys, err := c.MasterKeyUseCase()
		if err != nil {
			return nil, err
		}
		audit, err := c.AuditUseCase()
		if err != nil {
			return nil, err
		}

		useCase := documentUseCase.NewMigrationUseCase(
			repo, blobs, c.EnvelopeService(), masterKeys, audit, cfg, c.Logger(),
		)
		if !c.config.MetricsEnabled {
			return useCase, nil
		}
		bm, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for migration use case: %w", err)
		}
		return documentUseCase.NewMigrationUseCaseWithMetrics(useCase, bm), nil
	})
}

// DocumentHandler returns the document HTTP handler.
func (c *Container) DocumentHandler() (*documentHTTP.DocumentHandler, error) {
	return c.documents.handler.get(func() (*documentHTTP.DocumentHandler, error) {
		useCase, err := c.DocumentUseCase()
		if err != nil {
			return nil, err
		}
		return documentHTTP.NewDocumentHandler(useCase, c.config.MaxUploadBytes, c.Logger()), nil
	})
}

// BatchHandler returns the rotation and migration trigger handler.
func (c *Container) BatchHandler() (*documentHTTP.BatchHandler, error) {
	return c.documents.batchHandler.get(func() (*documentHTTP.BatchHandler, error) {
		rotation, err := c.RotationUseCase()
		if err != nil {
			return nil, err
		}
		migration, err := c.MigrationUseCase()
		if err != nil {
			return nil, err
		}
		return documentHTTP.NewBatchHandler(rotation, migration, c.Logger()), nil
	})
}
