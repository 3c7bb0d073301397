// Package mocks provides mock implementations of the rbac use case for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	rbacDomain "github.com/allisson/docvault/internal/rbac/domain"
)

// MockPermissionResolver is a mock implementation of PermissionResolver.
type MockPermissionResolver struct {
	mock.Mock
}

func (m *MockPermissionResolver) HasPermission(
	ctx context.Context,
	role rbacDomain.Role,
	permission rbacDomain.Permission,
) (bool, error) {
	args := m.Called(ctx, role, permission)
	return args.Bool(0), args.Error(1)
}

func (m *MockPermissionResolver) RequirePermission(ctx context.Context, permission rbacDomain.Permission) error {
	args := m.Called(ctx, permission)
	return args.Error(0)
}

func (m *MockPermissionResolver) SetOverride(
	ctx context.Context,
	role rbacDomain.Role,
	permission rbacDomain.Permission,
	allowed bool,
) (*rbacDomain.Override, error) {
	args := m.Called(ctx, role, permission, allowed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rbacDomain.Override), args.Error(1)
}

func (m *MockPermissionResolver) DeleteOverride(
	ctx context.Context,
	role rbacDomain.Role,
	permission rbacDomain.Permission,
) error {
	args := m.Called(ctx, role, permission)
	return args.Error(0)
}

func (m *MockPermissionResolver) ListOverrides(ctx context.Context) ([]*rbacDomain.Override, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rbacDomain.Override), args.Error(1)
}

func (m *MockPermissionResolver) Invalidate() {
	m.Called()
}
