package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
	"github.com/allisson/docvault/internal/metrics"
)

// masterKeyUseCaseWithMetrics decorates MasterKeyUseCase with metrics instrumentation.
// GetActive and GetByID sit on every encrypt and decrypt path and are recorded too.
type masterKeyUseCaseWithMetrics struct {
	next    MasterKeyUseCase
	metrics metrics.BusinessMetrics
}

// NewMasterKeyUseCaseWithMetrics wraps a MasterKeyUseCase with metrics recording.
func NewMasterKeyUseCaseWithMetrics(useCase MasterKeyUseCase, m metrics.BusinessMetrics) MasterKeyUseCase {
	return &masterKeyUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (m *masterKeyUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.metrics.RecordOperation(ctx, "keys", operation, status)
	m.metrics.RecordDuration(ctx, "keys", operation, time.Since(start), status)
}

func (m *masterKeyUseCaseWithMetrics) GetActive(ctx context.Context) (*cryptoDomain.MasterKey, error) {
	start := time.Now()
	key, err := m.next.GetActive(ctx)
	m.record(ctx, "master_key_get_active", start, err)
	return key, err
}

func (m *masterKeyUseCaseWithMetrics) GetByID(ctx context.Context, id string) (*cryptoDomain.MasterKey, error) {
	start := time.Now()
	key, err := m.next.GetByID(ctx, id)
	m.record(ctx, "master_key_get", start, err)
	return key, err
}

func (m *masterKeyUseCaseWithMetrics) SetActive(
	ctx context.Context,
	id, reason string,
) (*cryptoDomain.MasterKeyState, error) {
	start := time.Now()
	state, err := m.next.SetActive(ctx, id, reason)
	m.record(ctx, "master_key_activate", start, err)
	return state, err
}

func (m *masterKeyUseCaseWithMetrics) Revoke(
	ctx context.Context,
	id, reason string,
) (*cryptoDomain.MasterKeyState, error) {
	start := time.Now()
	state, err := m.next.Revoke(ctx, id, reason)
	m.record(ctx, "master_key_revoke", start, err)
	return state, err
}

func (m *masterKeyUseCaseWithMetrics) List(ctx context.Context) ([]*cryptoDomain.MasterKeyState, error) {
	start := time.Now()
	states, err := m.next.List(ctx)
	m.record(ctx, "master_key_list", start, err)
	return states, err
}

func (m *masterKeyUseCaseWithMetrics) Sync(ctx context.Context) error {
	start := time.Now()
	err := m.next.Sync(ctx)
	m.record(ctx, "master_key_sync", start, err)
	return err
}
