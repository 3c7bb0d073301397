package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
	authDomain "github.com/allisson/docvault/internal/auth/domain"
	"github.com/allisson/docvault/internal/auth/usecase/mocks"
	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, *mocks.MockClientUseCase, *context.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	uc := &mocks.MockClientUseCase{}
	seen := new(context.Context)
	router := gin.New()
	router.Use(AuthenticationMiddleware(uc, slog.New(slog.NewTextHandler(io.Discard, nil))))
	router.GET("/v1/documents", func(c *gin.Context) {
		*seen = c.Request.Context()
		c.Status(http.StatusOK)
	})
	return router, uc, seen
}

func TestAuthenticationMiddleware(t *testing.T) {
	client := &authDomain.Client{
		ID:       uuid.Must(uuid.NewV7()),
		Name:     "scheduler",
		Role:     rbacDomain.RoleAdmin,
		IsActive: true,
	}

	t.Run("success populates the context", func(t *testing.T) {
		router, uc, seen := setupAuthRouter(t)
		uc.On("Authenticate", mock.Anything, client.ID, "s3cret").Return(client, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
		req.SetBasicAuth(client.ID.String(), "s3cret")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		ctx := *seen
		got, ok := GetClient(ctx)
		assert.True(t, ok)
		assert.Equal(t, client, got)

		principal, ok := rbacDomain.PrincipalFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, rbacDomain.RoleAdmin, principal.Role)
		assert.Equal(t, "client:"+client.ID.String(), auditDomain.ActorFromContext(ctx))
	})

	t.Run("missing credentials", func(t *testing.T) {
		router, uc, _ := setupAuthRouter(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/documents", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")
		uc.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed client id", func(t *testing.T) {
		router, uc, _ := setupAuthRouter(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
		req.SetBasicAuth("scheduler", "s3cret")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		uc.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("wrong secret", func(t *testing.T) {
		router, uc, _ := setupAuthRouter(t)
		uc.On("Authenticate", mock.Anything, client.ID, "nope").Return(nil, authDomain.ErrInvalidCredentials).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
		req.SetBasicAuth(client.ID.String(), "nope")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("inactive client", func(t *testing.T) {
		router, uc, _ := setupAuthRouter(t)
		uc.On("Authenticate", mock.Anything, client.ID, "s3cret").Return(nil, authDomain.ErrClientInactive).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
		req.SetBasicAuth(client.ID.String(), "s3cret")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
