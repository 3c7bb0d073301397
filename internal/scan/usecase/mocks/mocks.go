// Package mocks provides mock implementations of the scan queue for testing.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	scanDomain "github.com/allisson/docvault/internal/scan/domain"
)

// MockScanUseCase is a mock implementation of ScanUseCase.
type MockScanUseCase struct {
	mock.Mock
}

func (m *MockScanUseCase) Enqueue(ctx context.Context, docID uuid.UUID, storageKey string) (*scanDomain.Job, error) {
	args := m.Called(ctx, docID, storageKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scanDomain.Job), args.Error(1)
}

func (m *MockScanUseCase) Get(ctx context.Context, docID uuid.UUID) (*scanDomain.Job, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scanDomain.Job), args.Error(1)
}

func (m *MockScanUseCase) ClaimNext(ctx context.Context) (*scanDomain.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scanDomain.Job), args.Error(1)
}

func (m *MockScanUseCase) Complete(
	ctx context.Context,
	docID uuid.UUID,
	result scanDomain.Status,
	errMsg string,
) (*scanDomain.Job, error) {
	args := m.Called(ctx, docID, result, errMsg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scanDomain.Job), args.Error(1)
}

func (m *MockScanUseCase) Skip(ctx context.Context, docID uuid.UUID, reason string) (*scanDomain.Job, error) {
	args := m.Called(ctx, docID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scanDomain.Job), args.Error(1)
}

func (m *MockScanUseCase) Heal(ctx context.Context, input scanDomain.HealInput) (*scanDomain.HealResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scanDomain.HealResult), args.Error(1)
}

func (m *MockScanUseCase) IsServable(ctx context.Context, docID uuid.UUID) (bool, error) {
	args := m.Called(ctx, docID)
	return args.Bool(0), args.Error(1)
}

func (m *MockScanUseCase) GrantQuarantineOverride(
	ctx context.Context,
	docID uuid.UUID,
	reason string,
	ttl time.Duration,
	grantedBy string,
) (*scanDomain.QuarantineOverride, error) {
	args := m.Called(ctx, docID, reason, ttl, grantedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scanDomain.QuarantineOverride), args.Error(1)
}
