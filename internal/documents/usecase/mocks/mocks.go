// Package mocks provides mock implementations of the document use cases for testing.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	documentDomain "github.com/allisson/docvault/internal/documents/domain"
)

// MockDocumentUseCase is a mock implementation of DocumentUseCase.
type MockDocumentUseCase struct {
	mock.Mock
}

func (m *MockDocumentUseCase) Upload(
	ctx context.Context,
	input *documentDomain.UploadInput,
) (*documentDomain.Document, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*documentDomain.Document), args.Error(1)
}

func (m *MockDocumentUseCase) Get(ctx context.Context, id uuid.UUID) (*documentDomain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*documentDomain.Document), args.Error(1)
}

func (m *MockDocumentUseCase) List(ctx context.Context, offset, limit int) ([]*documentDomain.Document, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*documentDomain.Document), args.Error(1)
}

func (m *MockDocumentUseCase) Open(ctx context.Context, id uuid.UUID) (*documentDomain.Document, []byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	content, _ := args.Get(1).([]byte)
	return args.Get(0).(*documentDomain.Document), content, args.Error(2)
}

func (m *MockDocumentUseCase) ReadContent(
	ctx context.Context,
	id uuid.UUID,
) (*documentDomain.Document, []byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	content, _ := args.Get(1).([]byte)
	return args.Get(0).(*documentDomain.Document), content, args.Error(2)
}

func (m *MockDocumentUseCase) GrantQuarantineOverride(
	ctx context.Context,
	id uuid.UUID,
	reason string,
	ttl time.Duration,
) error {
	args := m.Called(ctx, id, reason, ttl)
	return args.Error(0)
}

// MockRotationUseCase is a mock implementation of RotationUseCase.
type MockRotationUseCase struct {
	mock.Mock
}

func (m *MockRotationUseCase) RotateDocKeys(
	ctx context.Context,
	input documentDomain.RotateInput,
) (*documentDomain.RotateResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*documentDomain.RotateResult), args.Error(1)
}

// MockMigrationUseCase is a mock implementation of MigrationUseCase.
type MockMigrationUseCase struct {
	mock.Mock
}

func (m *MockMigrationUseCase) MigrateLegacyBatch(
	ctx context.Context,
	input documentDomain.MigrateInput,
) (*documentDomain.MigrateResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*documentDomain.MigrateResult), args.Error(1)
}
