package app

import (
	"fmt"

	rbacHTTP "github.com/allisson/docvault/internal/rbac/http"
	rbacRepository "github.com/allisson/docvault/internal/rbac/repository"
	rbacUseCase "github.com/allisson/docvault/internal/rbac/usecase"
)

type rbacComponents struct {
	overrideRepo    lazy[rbacUseCase.OverrideRepository]
	resolver        lazy[rbacUseCase.PermissionResolver]
	overrideHandler lazy[*rbacHTTP.OverrideHandler]
}

// OverrideRepository returns the permission override repository for the configured driver.
func (c *Container) OverrideRepository() (rbacUseCase.OverrideRepository, error) {
	return c.rbac.overrideRepo.get(func() (rbacUseCase.OverrideRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for override repository: %w", err)
		}

		switch c.config.DBDriver {
		case "postgres":
			return rbacRepository.NewPostgreSQLOverrideRepository(db), nil
		case "mysql":
			return rbacRepository.NewMySQLOverrideRepository(db), nil
		default:
			return nil, c.unsupportedDriver()
		}
	})
}

// PermissionResolver returns the RBAC permission resolver.
func (c *Container) PermissionResolver() (rbacUseCase.PermissionResolver, error) {
	return c.rbac.resolver.get(func() (rbacUseCase.PermissionResolver, error) {
		repo, err := c.OverrideRepository()
		if err != nil {
			return nil, err
		}
		audit, err := c.AuditUseCase()
		if err != nil {
			return nil, err
		}

		cfg := rbacUseCase.Config{
			OverridesEnabled: c.config.RBACOverridesEnabled,
			CacheTTL:         c.config.RBACCacheTTL,
		}
		return rbacUseCase.NewPermissionResolver(repo, audit, cfg, c.Logger()), nil
	})
}

// OverrideHandler returns the permission override HTTP handler.
func (c *Container) OverrideHandler() (*rbacHTTP.OverrideHandler, error) {
	return c.rbac.overrideHandler.get(func() (*rbacHTTP.OverrideHandler, error) {
		resolver, err := c.PermissionResolver()
		if err != nil {
			return nil, err
		}
		return rbacHTTP.NewOverrideHandler(resolver, c.Logger()), nil
	})
}
