// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	"github.com/allisson/docvault/internal/config"
	"github.com/allisson/docvault/internal/database"
	"github.com/allisson/docvault/internal/http"
	"github.com/allisson/docvault/internal/metrics"
	"github.com/allisson/docvault/internal/storage"
)

// lazy holds a component built on first access. A failed build is remembered and
// returned to every later caller.
type lazy[T any] struct {
	once  sync.Once
	done  atomic.Bool
	value T
	err   error
}

func (l *lazy[T]) get(build func() (T, error)) (T, error) {
	l.once.Do(func() {
		l.value, l.err = build()
		l.done.Store(true)
	})
	return l.value, l.err
}

// built returns the component only if an earlier get built it successfully.
func (l *lazy[T]) built() (T, bool) {
	if !l.done.Load() || l.err != nil {
		var zero T
		return zero, false
	}
	return l.value, true
}

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	config *config.Config

	// Infrastructure
	logger          lazy[*slog.Logger]
	db              lazy[*sql.DB]
	txManager       lazy[database.TxManager]
	metricsProvider lazy[*metrics.Provider]
	businessMetrics lazy[metrics.BusinessMetrics]
	blobStore       lazy[*storage.BucketStore]

	// Crypto
	crypto cryptoComponents

	// Domains
	audit     auditComponents
	auth      authComponents
	scan      scanComponents
	documents documentComponents
	rbac      rbacComponents

	// Servers
	httpServer    lazy[*http.Server]
	metricsServer lazy[*http.MetricsServer]

	// serverCtx bounds background work owned by the HTTP server (rate limiter sweeps).
	serverCtx    context.Context
	serverCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	return &Container{
		config:       cfg,
		serverCtx:    ctx,
		serverCancel: cancel,
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	logger, _ := c.logger.get(func() (*slog.Logger, error) {
		return c.initLogger(), nil
	})
	return logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	return c.db.get(c.initDB)
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	return c.txManager.get(func() (database.TxManager, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
		}
		return database.NewTxManager(db), nil
	})
}

// MetricsProvider returns the OpenTelemetry meter provider backed by Prometheus.
// It returns nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	return c.metricsProvider.get(func() (*metrics.Provider, error) {
		if !c.config.MetricsEnabled {
			return nil, nil
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics provider: %w", err)
		}
		return provider, nil
	})
}

// BusinessMetrics returns the business operation recorder, a no-op when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	return c.businessMetrics.get(func() (metrics.BusinessMetrics, error) {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, err
		}
		if provider == nil {
			return metrics.NewNoOpBusinessMetrics(), nil
		}
		bm, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			return nil, fmt.Errorf("failed to create business metrics: %w", err)
		}
		return bm, nil
	})
}

// BlobStore returns the document content store opened from BLOB_STORE_URL.
func (c *Container) BlobStore() (*storage.BucketStore, error) {
	return c.blobStore.get(func() (*storage.BucketStore, error) {
		store, err := storage.OpenBucketStore(context.Background(), c.config.BlobStoreURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open blob store: %w", err)
		}
		return store, nil
	})
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down. Calls after the first are no-ops.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.serverCancel()

	var result *multierror.Error

	if server, ok := c.httpServer.built(); ok && server != nil {
		if err := server.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("http server shutdown: %w", err))
		}
	}
	if server, ok := c.metricsServer.built(); ok && server != nil {
		if err := server.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if provider, ok := c.metricsProvider.built(); ok && provider != nil {
		if err := provider.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}
	if store, ok := c.blobStore.built(); ok && store != nil {
		if err := store.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("blob store close: %w", err))
		}
	}
	if chain, ok := c.crypto.masterKeyChain.built(); ok && chain != nil {
		chain.Close()
	}
	if db, ok := c.db.built(); ok && db != nil {
		if err := db.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("database close: %w", err))
		}
	}

	return result.ErrorOrNil()
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
		PingRetries:        3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// unsupportedDriver is returned by every repository factory for unknown DB_DRIVER values.
func (c *Container) unsupportedDriver() error {
	return fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
}
