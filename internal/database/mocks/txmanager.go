// Package mocks provides mock implementations of database abstractions for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTxManager is a mock implementation of database.TxManager. When the expectation
// returns nil the function runs with the same context, so repository mocks see the calls.
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, mock.Anything)
	if args.Get(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

func (m *MockTxManager) WithSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, mock.Anything)
	if args.Get(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

// PassThrough configures the manager to run every function.
func (m *MockTxManager) PassThrough() *MockTxManager {
	m.On("WithTx", mock.Anything, mock.Anything).Return(nil)
	m.On("WithSnapshot", mock.Anything, mock.Anything).Return(nil)
	return m
}
