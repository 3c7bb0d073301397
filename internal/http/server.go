// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	auditHTTP "github.com/allisson/docvault/internal/audit/http"
	authHTTP "github.com/allisson/docvault/internal/auth/http"
	authUseCase "github.com/allisson/docvault/internal/auth/usecase"
	"github.com/allisson/docvault/internal/config"
	cryptoHTTP "github.com/allisson/docvault/internal/crypto/http"
	documentHTTP "github.com/allisson/docvault/internal/documents/http"
	"github.com/allisson/docvault/internal/metrics"
	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
	rbacHTTP "github.com/allisson/docvault/internal/rbac/http"
	rbacUseCase "github.com/allisson/docvault/internal/rbac/usecase"
	scanHTTP "github.com/allisson/docvault/internal/scan/http"
)

// Server is the authenticated docvault API listener.
type Server struct {
	listener
	db     *sql.DB
	router *gin.Engine
}

// Handlers groups the API handlers mounted under /v1.
type Handlers struct {
	Client      *authHTTP.ClientHandler
	MasterKey   *cryptoHTTP.MasterKeyHandler
	Document    *documentHTTP.DocumentHandler
	Batch       *documentHTTP.BatchHandler
	Scan        *scanHTTP.ScanHandler
	Audit       *auditHTTP.AuditHandler
	Override    *rbacHTTP.OverrideHandler
	ClientUC    authUseCase.ClientUseCase
	Permissions rbacUseCase.PermissionResolver
}

// NewServer creates a new HTTP server.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db: db,
		listener: listener{
			name:   "http server",
			logger: logger,
			server: &http.Server{
				Addr:              fmt.Sprintf("%s:%d", host, port),
				ReadHeaderTimeout: 10 * time.Second,
				// Uploads and downloads stream whole documents.
				ReadTimeout:  60 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  120 * time.Second,
			},
		},
	}
}

// SetupRouter builds the gin engine with the middleware chain and every API route.
// ctx bounds background work started by middleware (rate limiter sweeps).
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	h Handlers,
	meterProvider metric.MeterProvider,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(newRequestID)))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	if cfg.MetricsEnabled && meterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(meterProvider, cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	v1.Use(authHTTP.AuthenticationMiddleware(h.ClientUC, s.logger))
	if cfg.RateLimitEnabled {
		v1.Use(authHTTP.RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	perm := func(p rbacDomain.Permission) gin.HandlerFunc {
		return rbacHTTP.RequirePermission(h.Permissions, p, s.logger)
	}

	clients := v1.Group("/clients", perm(rbacDomain.PermPermissionsManage))
	{
		clients.POST("", h.Client.CreateHandler)
		clients.GET("", h.Client.ListHandler)
		clients.GET("/:id", h.Client.GetHandler)
		clients.DELETE("/:id", h.Client.DeactivateHandler)
	}

	keys := v1.Group("/master-keys")
	{
		keys.GET("", perm(rbacDomain.PermKeysRead), h.MasterKey.ListHandler)
		keys.POST("/:id/activate", perm(rbacDomain.PermKeysManage), h.MasterKey.ActivateHandler)
		keys.POST("/:id/revoke", perm(rbacDomain.PermKeysManage), h.MasterKey.RevokeHandler)
	}

	documents := v1.Group("/documents")
	{
		documents.POST("", perm(rbacDomain.PermDocumentsWrite), h.Document.UploadHandler)
		documents.GET("", perm(rbacDomain.PermDocumentsRead), h.Document.ListHandler)
		documents.GET("/:id", perm(rbacDomain.PermDocumentsRead), h.Document.GetHandler)
		documents.GET("/:id/content", perm(rbacDomain.PermDocumentsRead), h.Document.ContentHandler)
		documents.POST(
			"/:id/quarantine-override",
			perm(rbacDomain.PermQuarantineOverride),
			h.Document.QuarantineOverrideHandler,
		)
	}

	batch := v1.Group("/batch", TimeoutMiddleware(cfg.BatchTimeout))
	{
		batch.POST("/rotate", perm(rbacDomain.PermKeysRotate), h.Batch.RotateHandler)
		batch.POST("/migrate-legacy", perm(rbacDomain.PermDocumentsMigrate), h.Batch.MigrateLegacyHandler)
		batch.POST("/scan-heal", perm(rbacDomain.PermScanHeal), h.Scan.HealHandler)
	}

	scanJobs := v1.Group("/scan-jobs", perm(rbacDomain.PermScanReport))
	{
		scanJobs.POST("/claim", h.Scan.ClaimHandler)
		scanJobs.GET("/:doc_id", h.Scan.GetHandler)
		scanJobs.POST("/:doc_id/result", h.Scan.ResultHandler)
		scanJobs.POST("/:doc_id/skip", h.Scan.SkipHandler)
	}

	audit := v1.Group("/audit/streams")
	{
		audit.GET("", perm(rbacDomain.PermAuditRead), h.Audit.ListStreamsHandler)
		audit.GET("/:stream/events", perm(rbacDomain.PermAuditRead), h.Audit.ListEventsHandler)
		audit.GET("/:stream/verify", perm(rbacDomain.PermAuditVerify), h.Audit.VerifyHandler)
	}

	overrides := v1.Group("/permission-overrides", perm(rbacDomain.PermPermissionsManage))
	{
		overrides.GET("", h.Override.ListHandler)
		overrides.PUT("", h.Override.SetHandler)
		overrides.DELETE("/:role/:permission", h.Override.DeleteHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server. SetupRouter must run first unless the router was injected.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router
	return s.serve()
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.shutdown(ctx)
}

// newRequestID uses UUIDv7 so request ids sort by arrival in logs.
func newRequestID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports ready only when the database answers a ping.
func (s *Server) readinessHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("readiness check failed", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": "ok"},
	})
}
