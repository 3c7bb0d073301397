package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// unmatchedRoute labels requests that hit no route so scanners probing random paths
// cannot grow the path label without bound.
const unmatchedRoute = "unmatched"

// probePaths are scraped by orchestrators every few seconds and would drown real traffic.
var probePaths = map[string]bool{
	"/health": true,
	"/ready":  true,
}

type httpInstruments struct {
	requests    metric.Int64Counter
	duration    metric.Float64Histogram
	requestSize metric.Int64Histogram
}

func newHTTPInstruments(meter metric.Meter, namespace string) (*httpInstruments, error) {
	requests, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	requestSize, err := meter.Int64Histogram(
		fmt.Sprintf("%s_http_request_body_bytes", namespace),
		metric.WithDescription("Declared request body size; tracks document upload volume"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(1<<10, 64<<10, 1<<20, 8<<20, 32<<20, 128<<20),
	)
	if err != nil {
		return nil, err
	}
	return &httpInstruments{requests: requests, duration: duration, requestSize: requestSize}, nil
}

// HTTPMetricsMiddleware records request count, latency and body size labelled by method,
// route pattern and status code. If the instruments cannot be created the middleware
// passes requests through unrecorded.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	instruments, err := newHTTPInstruments(meterProvider.Meter(namespace), namespace)
	if err != nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if probePaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		opts := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", route),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)

		ctx := c.Request.Context()
		instruments.requests.Add(ctx, 1, opts)
		instruments.duration.Record(ctx, time.Since(start).Seconds(), opts)
		if c.Request.ContentLength > 0 {
			instruments.requestSize.Record(ctx, c.Request.ContentLength, opts)
		}
	}
}
