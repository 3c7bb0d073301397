// Package mocks provides mock implementations of the audit use case for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
)

// MockAuditUseCase is a mock implementation of AuditUseCase.
type MockAuditUseCase struct {
	mock.Mock
}

func (m *MockAuditUseCase) Append(ctx context.Context, input *auditDomain.AppendInput) (*auditDomain.Event, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.Event), args.Error(1)
}

func (m *MockAuditUseCase) List(
	ctx context.Context,
	streamKey string,
	offset, limit int,
) ([]*auditDomain.Event, error) {
	args := m.Called(ctx, streamKey, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.Event), args.Error(1)
}

func (m *MockAuditUseCase) Verify(ctx context.Context, streamKey string) (*auditDomain.VerifyResult, error) {
	args := m.Called(ctx, streamKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.VerifyResult), args.Error(1)
}

func (m *MockAuditUseCase) ListStreams(ctx context.Context) ([]*auditDomain.Stream, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.Stream), args.Error(1)
}

func (m *MockAuditUseCase) VerifyAll(ctx context.Context) ([]*auditDomain.VerifyResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.VerifyResult), args.Error(1)
}

// Appended is a convenience for callers that only need Append to succeed.
func (m *MockAuditUseCase) Appended() *mock.Call {
	return m.On("Append", mock.Anything, mock.Anything).Return(&auditDomain.Event{}, nil)
}
