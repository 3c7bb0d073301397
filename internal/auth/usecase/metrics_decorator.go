package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/docvault/internal/auth/domain"
	apperrors "github.com/allisson/docvault/internal/errors"
	"github.com/allisson/docvault/internal/metrics"
)

const metricsDomain = "auth"

// clientUseCaseWithMetrics decorates ClientUseCase with metrics instrumentation.
type clientUseCaseWithMetrics struct {
	next    ClientUseCase
	metrics metrics.BusinessMetrics
}

// NewClientUseCaseWithMetrics wraps a ClientUseCase with metrics recording.
func NewClientUseCaseWithMetrics(useCase ClientUseCase, m metrics.BusinessMetrics) ClientUseCase {
	return &clientUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (c *clientUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, status string) {
	c.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	c.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *clientUseCaseWithMetrics) Create(
	ctx context.Context,
	input *authDomain.CreateClientInput,
) (*authDomain.CreateClientOutput, error) {
	start := time.Now()
	output, err := c.next.Create(ctx, input)
	c.record(ctx, "client_create", start, statusOf(err))
	return output, err
}

func (c *clientUseCaseWithMetrics) Get(ctx context.Context, clientID uuid.UUID) (*authDomain.Client, error) {
	start := time.Now()
	client, err := c.next.Get(ctx, clientID)
	c.record(ctx, "client_get", start, statusOf(err))
	return client, err
}

func (c *clientUseCaseWithMetrics) List(ctx context.Context, offset, limit int) ([]*authDomain.Client, error) {
	start := time.Now()
	clients, err := c.next.List(ctx, offset, limit)
	c.record(ctx, "client_list", start, statusOf(err))
	return clients, err
}

func (c *clientUseCaseWithMetrics) Deactivate(ctx context.Context, clientID uuid.UUID) error {
	start := time.Now()
	err := c.next.Deactivate(ctx, clientID)
	c.record(ctx, "client_deactivate", start, statusOf(err))
	return err
}

// Authenticate records rejected credentials as "denied" so they are not counted as
// server errors.
func (c *clientUseCaseWithMetrics) Authenticate(
	ctx context.Context,
	clientID uuid.UUID,
	secret string,
) (*authDomain.Client, error) {
	start := time.Now()
	client, err := c.next.Authenticate(ctx, clientID, secret)

	status := statusOf(err)
	if apperrors.Is(err, apperrors.ErrUnauthorized) || apperrors.Is(err, apperrors.ErrForbidden) {
		status = "denied"
	}
	c.record(ctx, "client_authenticate", start, status)
	return client, err
}
