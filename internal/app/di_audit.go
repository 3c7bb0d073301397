package app

import (
	"fmt"

	auditHTTP "github.com/allisson/docvault/internal/audit/http"
	auditRepository "github.com/allisson/docvault/internal/audit/repository"
	auditService "github.com/allisson/docvault/internal/audit/service"
	auditUseCase "github.com/allisson/docvault/internal/audit/usecase"
)

type auditComponents struct {
	eventRepo lazy[auditUseCase.EventRepository]
	useCase   lazy[auditUseCase.AuditUseCase]
	handler   lazy[*auditHTTP.AuditHandler]
}

// AuditEventRepository returns the audit ledger repository for the configured driver.
func (c *Container) AuditEventRepository() (auditUseCase.EventRepository, error) {
	return c.audit.eventRepo.get(func() (auditUseCase.EventRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for audit repository: %w", err)
		}

		switch c.config.DBDriver {
		case "postgres":
			return auditRepository.NewPostgreSQLEventRepository(db), nil
		case "mysql":
			return auditRepository.NewMySQLEventRepository(db), nil
		default:
			return nil, c.unsupportedDriver()
		}
	})
}

// AuditUseCase returns the hash-chained audit ledger.
func (c *Container) AuditUseCase() (auditUseCase.AuditUseCase, error) {
	return c.audit.useCase.get(func() (auditUseCase.AuditUseCase, error) {
		txManager, err := c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("failed to get tx manager for audit use case: %w", err)
		}
		repo, err := c.AuditEventRepository()
		if err != nil {
			return nil, err
		}

		cfg := auditUseCase.Config{
			Strict:     c.config.AuditStrict,
			MaxRetries: uint64(max(c.config.AuditAppendMaxRetries, 0)),
		}
		useCase := auditUseCase.NewAuditUseCase(txManager, repo, auditService.NewChainHasher(), cfg, c.Logger())
		if !c.config.MetricsEnabled {
			return useCase, nil
		}
		bm, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for audit use case: %w", err)
		}
		return auditUseCase.NewAuditUseCaseWithMetrics(useCase, bm), nil
	})
}

// AuditHandler returns the audit HTTP handler.
func (c *Container) AuditHandler() (*auditHTTP.AuditHandler, error) {
	return c.audit.handler.get(func() (*auditHTTP.AuditHandler, error) {
		useCase, err := c.AuditUseCase()
		if err != nil {
			return nil, err
		}
		return auditHTTP.NewAuditHandler(useCase, c.Logger()), nil
	})
}
