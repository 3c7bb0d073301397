package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/allisson/docvault/internal/http"
	"github.com/allisson/docvault/internal/metrics"
)

// HTTPServer returns the API server with every route mounted.
func (c *Container) HTTPServer() (*http.Server, error) {
	return c.httpServer.get(c.initHTTPServer)
}

// MetricsServer returns the Prometheus scrape server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	return c.metricsServer.get(func() (*http.MetricsServer, error) {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, err
		}
		if provider == nil {
			return nil, nil
		}
		if err := c.registerScanQueueGauge(provider); err != nil {
			return nil, err
		}
		return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
	})
}

func (c *Container) initHTTPServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	var h http.Handlers
	if h.Client, err = c.ClientHandler(); err != nil {
		return nil, err
	}
	if h.MasterKey, err = c.MasterKeyHandler(); err != nil {
		return nil, err
	}
	if h.Document, err = c.DocumentHandler(); err != nil {
		return nil, err
	}
	if h.Batch, err = c.BatchHandler(); err != nil {
		return nil, err
	}
	if h.Scan, err = c.ScanHandler(); err != nil {
		return nil, err
	}
	if h.Audit, err = c.AuditHandler(); err != nil {
		return nil, err
	}
	if h.Override, err = c.OverrideHandler(); err != nil {
		return nil, err
	}
	if h.ClientUC, err = c.ClientUseCase(); err != nil {
		return nil, err
	}
	if h.Permissions, err = c.PermissionResolver(); err != nil {
		return nil, err
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	var meterProvider metric.MeterProvider
	if provider != nil {
		meterProvider = provider.MeterProvider()
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(c.serverCtx, c.config, h, meterProvider)
	return server, nil
}

// registerScanQueueGauge exports queue depth read from the scan job table on every scrape.
func (c *Container) registerScanQueueGauge(provider *metrics.Provider) error {
	repo, err := c.ScanJobRepository()
	if err != nil {
		return err
	}
	depth := func(ctx context.Context) (map[string]int64, error) {
		counts, err := repo.CountByStatus(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[string]int64, len(counts))
		for status, n := range counts {
			out[string(status)] = n
		}
		return out, nil
	}
	return metrics.RegisterScanQueueGauge(provider.MeterProvider(), provider.Namespace(), depth, c.Logger())
}
