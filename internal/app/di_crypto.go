package app

import (
	"context"
	"fmt"

	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	cryptoHTTP "github.com/allisson/docvault/internal/crypto/http"
	cryptoRepository "github.com/allisson/docvault/internal/crypto/repository"
	cryptoService "github.com/allisson/docvault/internal/crypto/service"
	cryptoUseCase "github.com/allisson/docvault/internal/crypto/usecase"
)

type cryptoComponents struct {
	kmsService       lazy[cryptoService.KMSService]
	masterKeyChain   lazy[*cryptoDomain.MasterKeyChain]
	aeadManager      lazy[cryptoService.AEADManager]
	envelope         lazy[cryptoService.EnvelopeService]
	masterKeyRepo    lazy[cryptoUseCase.MasterKeyRepository]
	masterKeyUseCase lazy[cryptoUseCase.MasterKeyUseCase]
	masterKeyHandler lazy[*cryptoHTTP.MasterKeyHandler]
}

// KMSService returns the KMS service used to decrypt master keys.
func (c *Container) KMSService() cryptoService.KMSService {
	kms, _ := c.crypto.kmsService.get(func() (cryptoService.KMSService, error) {
		return cryptoService.NewKMSService(), nil
	})
	return kms
}

// MasterKeyChain returns the master key material loaded from MASTER_KEYS, decrypted
// through the KMS when KMS_PROVIDER and KMS_KEY_URI are set.
func (c *Container) MasterKeyChain() (*cryptoDomain.MasterKeyChain, error) {
	return c.crypto.masterKeyChain.get(func() (*cryptoDomain.MasterKeyChain, error) {
		src := cryptoDomain.MasterKeySourceFromEnv()
		src.KMSProvider = c.config.KMSProvider
		src.KMSKeyURI = c.config.KMSKeyURI

		chain, err := cryptoDomain.LoadMasterKeyChain(context.Background(), src, c.KMSService(), c.Logger())
		if err != nil {
			return nil, fmt.Errorf("failed to load master key chain: %w", err)
		}
		return chain, nil
	})
}

// AEADManager returns the AEAD cipher factory.
func (c *Container) AEADManager() cryptoService.AEADManager {
	m, _ := c.crypto.aeadManager.get(func() (cryptoService.AEADManager, error) {
		return cryptoService.NewAEADManager(), nil
	})
	return m
}

// EnvelopeService returns the envelope encryption engine.
func (c *Container) EnvelopeService() cryptoService.EnvelopeService {
	e, _ := c.crypto.envelope.get(func() (cryptoService.EnvelopeService, error) {
		return cryptoService.NewEnvelopeEngine(c.AEADManager()), nil
	})
	return e
}

// MasterKeyRepository returns the master key registry repository for the configured driver.
func (c *Container) MasterKeyRepository() (cryptoUseCase.MasterKeyRepository, error) {
	return c.crypto.masterKeyRepo.get(func() (cryptoUseCase.MasterKeyRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for master key repository: %w", err)
		}

		switch c.config.DBDriver {
		case "postgres":
			return cryptoRepository.NewPostgreSQLMasterKeyRepository(db), nil
		case "mysql":
			return cryptoRepository.NewMySQLMasterKeyRepository(db), nil
		default:
			return nil, c.unsupportedDriver()
		}
	})
}

// MasterKeyUseCase returns the master key registry.
func (c *Container) MasterKeyUseCase() (cryptoUseCase.MasterKeyUseCase, error) {
	return c.crypto.masterKeyUseCase.get(func() (cryptoUseCase.MasterKeyUseCase, error) {
		txManager, err := c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("failed to get tx manager for master key use case: %w", err)
		}
		repo, err := c.MasterKeyRepository()
		if err != nil {
			return nil, err
		}
		chain, err := c.MasterKeyChain()
		if err != nil {
			return nil, err
		}
		audit, err := c.AuditUseCase()
		if err != nil {
			return nil, err
		}

		useCase := cryptoUseCase.NewMasterKeyUseCase(txManager, repo, chain, audit, c.Logger())
		if !c.config.MetricsEnabled {
			return useCase, nil
		}
		bm, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for master key use case: %w", err)
		}
		return cryptoUseCase.NewMasterKeyUseCaseWithMetrics(useCase, bm), nil
	})
}

// MasterKeyHandler returns the master key HTTP handler.
func (c *Container) MasterKeyHandler() (*cryptoHTTP.MasterKeyHandler, error) {
	return c.crypto.masterKeyHandler.get(func() (*cryptoHTTP.MasterKeyHandler, error) {
		useCase, err := c.MasterKeyUseCase()
		if err != nil {
			return nil, err
		}
		return cryptoHTTP.NewMasterKeyHandler(useCase, c.Logger()), nil
	})
}
