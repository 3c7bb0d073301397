package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditHTTP "github.com/allisson/docvault/internal/audit/http"
	authDomain "github.com/allisson/docvault/internal/auth/domain"
	authHTTP "github.com/allisson/docvault/internal/auth/http"
	authMocks "github.com/allisson/docvault/internal/auth/usecase/mocks"
	"github.com/allisson/docvault/internal/config"
	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	cryptoHTTP "github.com/allisson/docvault/internal/crypto/http"
	cryptoMocks "github.com/allisson/docvault/internal/crypto/usecase/mocks"
	documentHTTP "github.com/allisson/docvault/internal/documents/http"
	apperrors "github.com/allisson/docvault/internal/errors"
	"github.com/allisson/docvault/internal/metrics"
	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
	rbacHTTP "github.com/allisson/docvault/internal/rbac/http"
	rbacMocks "github.com/allisson/docvault/internal/rbac/usecase/mocks"
	scanHTTP "github.com/allisson/docvault/internal/scan/http"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// probeRouter mounts only the unauthenticated probes with the production middleware order.
func probeRouter(server *Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(newRequestID)))
	router.Use(CustomLoggerMiddleware(server.logger))
	router.GET("/health", server.healthHandler)
	router.GET("/ready", server.readinessHandler)
	return router
}

func TestProbes(t *testing.T) {
	newPingDB := func(t *testing.T, pingErr error) *sql.DB {
		t.Helper()
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		mock.ExpectPing().WillReturnError(pingErr)
		return db
	}

	tests := []struct {
		name       string
		db         func(t *testing.T) *sql.DB
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "health ignores the database",
			db:         func(*testing.T) *sql.DB { return nil },
			path:       "/health",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"healthy"}`,
		},
		{
			name:       "ready without a database",
			db:         func(*testing.T) *sql.DB { return nil },
			path:       "/ready",
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"not_ready","components":{"database":"error"}}`,
		},
		{
			name:       "ready when ping succeeds",
			db:         func(t *testing.T) *sql.DB { return newPingDB(t, nil) },
			path:       "/ready",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready","components":{"database":"ok"}}`,
		},
		{
			name:       "not ready when ping fails",
			db:         func(t *testing.T) *sql.DB { return newPingDB(t, errors.New("connection refused")) },
			path:       "/ready",
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"not_ready","components":{"database":"error"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer(tt.db(t), "localhost", 8080, discardLogger())

			w := httptest.NewRecorder()
			probeRouter(server).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestProbeRouter_UnknownPath(t *testing.T) {
	w := httptest.NewRecorder()
	probeRouter(NewServer(nil, "localhost", 8080, discardLogger())).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nonexistent", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCustomLoggerMiddleware(t *testing.T) {
	tests := []struct {
		status    int
		wantLevel string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusBadGateway, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			router := gin.New()
			router.Use(requestid.New(requestid.WithGenerator(newRequestID)))
			router.Use(CustomLoggerMiddleware(logger))
			router.GET("/documents", func(c *gin.Context) { c.Status(tt.status) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents?limit=5", nil))

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, "/documents?limit=5", entry["path"])
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Equal(t, w.Header().Get("X-Request-Id"), entry["request_id"])
		})
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	newRouter := func(timeout time.Duration) *gin.Engine {
		router := gin.New()
		router.Use(TimeoutMiddleware(timeout))
		router.GET("/batch", func(c *gin.Context) {
			_, hasDeadline := c.Request.Context().Deadline()
			c.JSON(http.StatusOK, gin.H{"deadline": hasDeadline})
		})
		return router
	}

	t.Run("sets deadline", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(time.Minute).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/batch", nil))
		assert.JSONEq(t, `{"deadline":true}`, w.Body.String())
	})

	t.Run("zero disables", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(0).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/batch", nil))
		assert.JSONEq(t, `{"deadline":false}`, w.Body.String())
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CustomLoggerMiddleware(discardLogger()))
	router.GET("/panic", func(c *gin.Context) {
		panic("handler bug")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := NewServer(nil, "127.0.0.1", 0, discardLogger())
	server.router = probeRouter(server)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(context.Background())
	}()

	// Give the listener time to bind.
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestNewRequestID(t *testing.T) {
	first, err := uuid.Parse(newRequestID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), first.Version())

	second, err := uuid.Parse(newRequestID())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestMetricsServer_Endpoints(t *testing.T) {
	logger := discardLogger()

	provider, err := metrics.NewProvider("docvault_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	t.Run("metrics", func(t *testing.T) {
		metricsServer := NewMetricsServer("localhost", 8081, logger, provider)

		w := httptest.NewRecorder()
		metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	})

	t.Run("health without provider", func(t *testing.T) {
		metricsServer := NewMetricsServer("localhost", 8081, logger, nil)

		w := httptest.NewRecorder()
		metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// newRoutedServer builds a server through SetupRouter with mocked auth and permission checks.
func newRoutedServer(
	t *testing.T,
	clientUC *authMocks.MockClientUseCase,
	resolver *rbacMocks.MockPermissionResolver,
	masterKeyUC *cryptoMocks.MockMasterKeyUseCase,
) *Server {
	t.Helper()
	logger := discardLogger()
	server := NewServer(nil, "localhost", 8080, logger)

	cfg := &config.Config{}
	server.SetupRouter(context.Background(), cfg, Handlers{
		Client:      authHTTP.NewClientHandler(clientUC, logger),
		MasterKey:   cryptoHTTP.NewMasterKeyHandler(masterKeyUC, logger),
		Document:    documentHTTP.NewDocumentHandler(nil, 1024, logger),
		Batch:       documentHTTP.NewBatchHandler(nil, nil, logger),
		Scan:        scanHTTP.NewScanHandler(nil, logger),
		Audit:       auditHTTP.NewAuditHandler(nil, logger),
		Override:    rbacHTTP.NewOverrideHandler(resolver, logger),
		ClientUC:    clientUC,
		Permissions: resolver,
	}, nil)
	return server
}

func TestSetupRouter(t *testing.T) {
	clientID := uuid.Must(uuid.NewV7())
	viewer := &authDomain.Client{
		ID:       clientID,
		Name:     "reporting",
		Role:     rbacDomain.RoleViewer,
		IsActive: true,
	}

	t.Run("health is public", func(t *testing.T) {
		server := newRoutedServer(t,
			&authMocks.MockClientUseCase{}, &rbacMocks.MockPermissionResolver{}, &cryptoMocks.MockMasterKeyUseCase{})

		w := httptest.NewRecorder()
		server.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	})

	t.Run("api requires credentials", func(t *testing.T) {
		clientUC := &authMocks.MockClientUseCase{}
		server := newRoutedServer(t, clientUC, &rbacMocks.MockPermissionResolver{}, &cryptoMocks.MockMasterKeyUseCase{})

		w := httptest.NewRecorder()
		server.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/master-keys", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")
		clientUC.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("permission denied stops the request", func(t *testing.T) {
		clientUC := &authMocks.MockClientUseCase{}
		resolver := &rbacMocks.MockPermissionResolver{}
		masterKeyUC := &cryptoMocks.MockMasterKeyUseCase{}
		server := newRoutedServer(t, clientUC, resolver, masterKeyUC)

		clientUC.On("Authenticate", mock.Anything, clientID, "s3cret").Return(viewer, nil)
		resolver.On("RequirePermission", mock.Anything, rbacDomain.PermKeysRead).
			Return(apperrors.ErrForbidden)

		req := httptest.NewRequest(http.MethodGet, "/v1/master-keys", nil)
		req.SetBasicAuth(clientID.String(), "s3cret")
		w := httptest.NewRecorder()
		server.GetHandler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		masterKeyUC.AssertNotCalled(t, "List", mock.Anything)
		resolver.AssertExpectations(t)
	})

	t.Run("permitted request reaches the handler", func(t *testing.T) {
		clientUC := &authMocks.MockClientUseCase{}
		resolver := &rbacMocks.MockPermissionResolver{}
		masterKeyUC := &cryptoMocks.MockMasterKeyUseCase{}
		server := newRoutedServer(t, clientUC, resolver, masterKeyUC)

		clientUC.On("Authenticate", mock.Anything, clientID, "s3cret").Return(viewer, nil)
		resolver.On("RequirePermission", mock.Anything, rbacDomain.PermKeysRead).Return(nil)
		masterKeyUC.On("List", mock.Anything).Return([]*cryptoDomain.MasterKeyState{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/master-keys", nil)
		req.SetBasicAuth(clientID.String(), "s3cret")
		w := httptest.NewRecorder()
		server.GetHandler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		masterKeyUC.AssertExpectations(t)
	})

	t.Run("metrics are not served on the api port", func(t *testing.T) {
		server := newRoutedServer(t,
			&authMocks.MockClientUseCase{}, &rbacMocks.MockPermissionResolver{}, &cryptoMocks.MockMasterKeyUseCase{})

		w := httptest.NewRecorder()
		server.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
