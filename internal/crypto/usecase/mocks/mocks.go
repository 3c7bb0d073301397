// Package mocks provides mock implementations of the master key registry for testing.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/allisson/docvault/internal/crypto/domain"
)

// MockMasterKeyRepository is a mock implementation of MasterKeyRepository.
type MockMasterKeyRepository struct {
	mock.Mock
}

func (m *MockMasterKeyRepository) Create(ctx context.Context, state *cryptoDomain.MasterKeyState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockMasterKeyRepository) Get(ctx context.Context, id string) (*cryptoDomain.MasterKeyState, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.MasterKeyState), args.Error(1)
}

func (m *MockMasterKeyRepository) GetActive(ctx context.Context) (*cryptoDomain.MasterKeyState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.MasterKeyState), args.Error(1)
}

func (m *MockMasterKeyRepository) List(ctx context.Context) ([]*cryptoDomain.MasterKeyState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cryptoDomain.MasterKeyState), args.Error(1)
}

func (m *MockMasterKeyRepository) ClearActive(ctx context.Context, now time.Time) error {
	args := m.Called(ctx, now)
	return args.Error(0)
}

func (m *MockMasterKeyRepository) MarkActive(ctx context.Context, id string, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockMasterKeyRepository) Revoke(ctx context.Context, id, reason string, now time.Time) error {
	args := m.Called(ctx, id, reason, now)
	return args.Error(0)
}

// MockMasterKeyUseCase is a mock implementation of MasterKeyUseCase.
type MockMasterKeyUseCase struct {
	mock.Mock
}

func (m *MockMasterKeyUseCase) GetActive(ctx context.Context) (*cryptoDomain.MasterKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.MasterKey), args.Error(1)
}

func (m *MockMasterKeyUseCase) GetByID(ctx context.Context, id string) (*cryptoDomain.MasterKey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.MasterKey), args.Error(1)
}

func (m *MockMasterKeyUseCase) SetActive(
	ctx context.Context,
	id, reason string,
) (*cryptoDomain.MasterKeyState, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.MasterKeyState), args.Error(1)
}

func (m *MockMasterKeyUseCase) Revoke(
	ctx context.Context,
	id, reason string,
) (*cryptoDomain.MasterKeyState, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.MasterKeyState), args.Error(1)
}

func (m *MockMasterKeyUseCase) List(ctx context.Context) ([]*cryptoDomain.MasterKeyState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cryptoDomain.MasterKeyState), args.Error(1)
}

func (m *MockMasterKeyUseCase) Sync(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
