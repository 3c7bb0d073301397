// Package http provides the permission gate middleware and the permission override API.
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/allisson/docvault/internal/httputil"
	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
	rbacUseCase "github.com/allisson/docvault/internal/rbac/usecase"
)

// RequirePermission gates a route on a permission of the authenticated principal.
//
// It must run after the authentication middleware. A request without a principal gets
// 401, a denied permission gets 403, and a failure to load overrides gets 500 so the
// request is never let through on a broken resolver.
func RequirePermission(
	resolver rbacUseCase.PermissionResolver,
	permission rbacDomain.Permission,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := resolver.RequirePermission(c.Request.Context(), permission); err != nil {
			logger.Debug("permission denied",
				slog.String("permission", string(permission)),
				slog.String("path", c.FullPath()),
				slog.Any("error", err))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}
		c.Next()
	}
}
