package app

import (
	"fmt"

	authHTTP "github.com/allisson/docvault/internal/auth/http"
	authRepository "github.com/allisson/docvault/internal/auth/repository"
	authService "github.com/allisson/docvault/internal/auth/service"
	authUseCase "github.com/allisson/docvault/internal/auth/usecase"
)

type authComponents struct {
	secretService lazy[authService.SecretService]
	clientRepo    lazy[authUseCase.ClientRepository]
	clientUseCase lazy[authUseCase.ClientUseCase]
	clientHandler lazy[*authHTTP.ClientHandler]
}

// SecretService returns the client secret hashing service.
func (c *Container) SecretService() authService.SecretService {
	s, _ := c.auth.secretService.get(func() (authService.SecretService, error) {
		return authService.NewSecretService(), nil
	})
	return s
}

// ClientRepository returns the API client repository for the configured driver.
func (c *Container) ClientRepository() (authUseCase.ClientRepository, error) {
	return c.auth.clientRepo.get(func() (authUseCase.ClientRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for client repository: %w", err)
		}

		switch c.config.DBDriver {
		case "postgres":
			return authRepository.NewPostgreSQLClientRepository(db), nil
		case "mysql":
			return authRepository.NewMySQLClientRepository(db), nil
		default:
			return nil, c.unsupportedDriver()
		}
	})
}

// ClientUseCase returns the API client use case.
func (c *Container) ClientUseCase() (authUseCase.ClientUseCase, error) {
	return c.auth.clientUseCase.get(func() (authUseCase.ClientUseCase, error) {
		txManager, err := c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("failed to get tx manager for client use case: %w", err)
		}
		repo, err := c.ClientRepository()
		if err != nil {
			return nil, err
		}
		audit, err := c.AuditUseCase()
		if err != nil {
			return nil, err
		}

		useCase := authUseCase.NewClientUseCase(txManager, repo, c.SecretService(), audit, c.Logger())
		if !c.config.MetricsEnabled {
			return useCase, nil
		}
		bm, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for client use case: %w", err)
		}
		return authUseCase.NewClientUseCaseWithMetrics(useCase, bm), nil
	})
}

// ClientHandler returns the API client HTTP handler.
func (c *Container) ClientHandler() (*authHTTP.ClientHandler, error) {
	return c.auth.clientHandler.get(func() (*authHTTP.ClientHandler, error) {
		useCase, err := c.ClientUseCase()
		if err != nil {
			return nil, err
		}
		return authHTTP.NewClientHandler(useCase, c.Logger()), nil
	})
}
