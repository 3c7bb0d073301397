package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
	authDomain "github.com/allisson/docvault/internal/auth/domain"
	authUseCase "github.com/allisson/docvault/internal/auth/usecase"
	"github.com/allisson/docvault/internal/httputil"
	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
)

// AuthenticationMiddleware authenticates requests with HTTP Basic credentials: the client
// id as user name and the client secret as password.
//
// On success the request context carries the client, its rbac principal and its audit
// actor, so downstream permission checks and audit events need nothing else. Missing or
// wrong credentials get 401 with a Basic challenge; a deactivated client gets 403.
func AuthenticationMiddleware(clientUseCase authUseCase.ClientUseCase, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, secret, ok := c.Request.BasicAuth()
		if !ok || secret == "" {
			logger.Debug("authentication failed: missing basic credentials")
			unauthorized(c, authDomain.ErrInvalidCredentials, logger)
			return
		}

		clientID, err := uuid.Parse(user)
		if err != nil {
			logger.Debug("authentication failed: malformed client id")
			unauthorized(c, authDomain.ErrInvalidCredentials, logger)
			return
		}

		client, err := clientUseCase.Authenticate(c.Request.Context(), clientID, secret)
		if err != nil {
			logger.Debug("authentication failed",
				slog.String("client_id", clientID.String()),
				slog.Any("error", err))
			unauthorized(c, err, logger)
			return
		}

		principal := client.Principal()
		ctx := WithClient(c.Request.Context(), client)
		ctx = rbacDomain.WithPrincipal(ctx, principal)
		ctx = auditDomain.WithActor(ctx, principal.Actor())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func unauthorized(c *gin.Context, err error, logger *slog.Logger) {
	c.Header("WWW-Authenticate", `Basic realm="docvault"`)
	httputil.HandleErrorGin(c, err, logger)
	c.Abort()
}
