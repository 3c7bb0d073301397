package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// scrapeQueryTimeout bounds the database query a gauge callback runs per scrape.
const scrapeQueryTimeout = 2 * time.Second

// QueueDepthFunc reports how many scan jobs sit in each status.
type QueueDepthFunc func(ctx context.Context) (map[string]int64, error)

// RegisterScanQueueGauge exports %s_scan_queue_jobs{status} read through depth on every
// collection. A failing read is logged and the scrape carries no queue series.
func RegisterScanQueueGauge(
	meterProvider metric.MeterProvider,
	namespace string,
	depth QueueDepthFunc,
	logger *slog.Logger,
) error {
	meter := meterProvider.Meter(namespace)

	gauge, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_scan_queue_jobs", namespace),
		metric.WithDescription("Scan jobs per status"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create scan queue gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		ctx, cancel := context.WithTimeout(ctx, scrapeQueryTimeout)
		defer cancel()

		counts, err := depth(ctx)
		if err != nil {
			logger.Warn("failed to read scan queue depth", slog.Any("error", err))
			return nil
		}
		for status, n := range counts {
			o.ObserveInt64(gauge, n, metric.WithAttributes(attribute.String("status", status)))
		}
		return nil
	}, gauge)
	if err != nil {
		return fmt.Errorf("failed to register scan queue callback: %w", err)
	}
	return nil
}
