package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	auditDomain "github.com/allisson/docvault/internal/audit/domain"
	"github.com/allisson/docvault/internal/audit/usecase"
	"github.com/allisson/docvault/internal/audit/usecase/mocks"
)

type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func (m *mockBusinessMetrics) RecordBatchItems(ctx context.Context, domain, operation, outcome string, count int) {
	m.Called(ctx, domain, operation, outcome, count)
}

func expectMetric(m *mockBusinessMetrics, ctx context.Context, operation, status string) {
	m.On("RecordOperation", ctx, "audit", operation, status).Return().Once()
	m.On("RecordDuration", ctx, "audit", operation, mock.AnythingOfType("time.Duration"), status).Return().Once()
}

func TestAuditUseCaseWithMetrics_Append(t *testing.T) {
	ctx := context.Background()
	input := &auditDomain.AppendInput{StreamKey: "s", Action: "a"}

	tests := []struct {
		name   string
		event  *auditDomain.Event
		err    error
		status string
	}{
		{name: "success", event: &auditDomain.Event{Seq: 1}, status: "success"},
		{name: "dropped", event: nil, status: "dropped"},
		{name: "error", err: errors.New("boom"), status: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &mocks.MockAuditUseCase{}
			m := &mockBusinessMetrics{}
			uc := usecase.NewAuditUseCaseWithMetrics(next, m)

			if tt.event != nil {
				next.On("Append", ctx, input).Return(tt.event, tt.err).Once()
			} else {
				next.On("Append", ctx, input).Return(nil, tt.err).Once()
			}
			expectMetric(m, ctx, "event_append", tt.status)

			_, err := uc.Append(ctx, input)
			assert.Equal(t, tt.err, err)
			next.AssertExpectations(t)
			m.AssertExpectations(t)
		})
	}
}

func TestAuditUseCaseWithMetrics_Verify(t *testing.T) {
	ctx := context.Background()
	next := &mocks.MockAuditUseCase{}
	m := &mockBusinessMetrics{}
	uc := usecase.NewAuditUseCaseWithMetrics(next, m)

	next.On("Verify", ctx, "ok").Return(&auditDomain.VerifyResult{OK: true}, nil).Once()
	expectMetric(m, ctx, "stream_verify", "success")
	next.On("Verify", ctx, "bad").Return(&auditDomain.VerifyResult{OK: false}, nil).Once()
	expectMetric(m, ctx, "stream_verify", "broken")

	_, err := uc.Verify(ctx, "ok")
	assert.NoError(t, err)
	_, err = uc.Verify(ctx, "bad")
	assert.NoError(t, err)

	next.AssertExpectations(t)
	m.AssertExpectations(t)
}

func TestAuditUseCaseWithMetrics_ListStreams(t *testing.T) {
	ctx := context.Background()
	next := &mocks.MockAuditUseCase{}
	m := &mockBusinessMetrics{}
	uc := usecase.NewAuditUseCaseWithMetrics(next, m)

	next.On("ListStreams", ctx).Return(nil, errors.New("db down")).Once()
	expectMetric(m, ctx, "stream_list", "error")

	_, err := uc.ListStreams(ctx)
	assert.Error(t, err)
	next.AssertExpectations(t)
	m.AssertExpectations(t)
}
