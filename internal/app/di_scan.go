package app

import (
	"fmt"

	scanHTTP "github.com/allisson/docvault/internal/scan/http"
	scanRepository "github.com/allisson/docvault/internal/scan/repository"
	scanUseCase "github.com/allisson/docvault/internal/scan/usecase"
)

type scanComponents struct {
	jobRepo lazy[scanUseCase.JobRepository]
	useCase lazy[scanUseCase.ScanUseCase]
	handler lazy[*scanHTTP.ScanHandler]
}

// ScanJobRepository returns the scan queue repository for the configured driver.
func (c *Container) ScanJobRepository() (scanUseCase.JobRepository, error) {
	return c.scan.jobRepo.get(func() (scanUseCase.JobRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for scan job repository: %w", err)
		}

		switch c.config.DBDriver {
		case "postgres":
			return scanRepository.NewPostgreSQLJobRepository(db), nil
		case "mysql":
			return scanRepository.NewMySQLJobRepository(db), nil
		default:
			return nil, c.unsupportedDriver()
		}
	})
}

// ScanUseCase returns the malware scan queue.
func (c *Container) ScanUseCase() (scanUseCase.ScanUseCase, error) {
	return c.scan.useCase.get(func() (scanUseCase.ScanUseCase, error) {
		txManager, err := c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("failed to get tx manager for scan use case: %w", err)
		}
		repo, err := c.ScanJobRepository()
		if err != nil {
			return nil, err
		}
		audit, err := c.AuditUseCase()
		if err != nil {
			return nil, err
		}

		cfg := scanUseCase.Config{
			RunningTimeout: c.config.ScanRunningTimeout,
			MaxAttempts:    c.config.ScanMaxAttempts,
			RetryDelay:     c.config.ScanRetryDelay,
			HealLimit:      c.config.ScanHealLimit,
			EnqueueRetries: 3,
		}
		useCase := scanUseCase.NewScanUseCase(txManager, repo, audit, cfg, c.Logger())
		if !c.config.MetricsEnabled {
			return useCase, nil
		}
		bm, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for scan use case: %w", err)
		}
		return scanUseCase.NewScanUseCaseWithMetrics(useCase, bm), nil
	})
}

// ScanHandler returns the scan worker and heal HTTP handler.
func (c *Container) ScanHandler() (*scanHTTP.ScanHandler, error) {
	return c.scan.handler.get(func() (*scanHTTP.ScanHandler, error) {
		useCase, err := c.ScanUseCase()
		if err != nil {
			return nil, err
		}
		return scanHTTP.NewScanHandler(useCase, c.Logger()), nil
	})
}
