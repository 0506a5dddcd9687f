// test/mock/audit.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/clearops/clearance/audit"
	"github.com/clearops/clearance/evidence"
	"github.com/clearops/clearance/model"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Append(ctx context.Context, input audit.AppendInput) (model.EvidenceEntryV1, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(model.EvidenceEntryV1), args.Error(1)
}

func (m *MockAuditService) ListEntries(ctx context.Context, approvalID string) ([]model.EvidenceEntryV1, error) {
	args := m.Called(ctx, approvalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EvidenceEntryV1), args.Error(1)
}

func (m *MockAuditService) CountEntries(ctx context.Context, approvalID string) (int, error) {
	args := m.Called(ctx, approvalID)
	return args.Int(0), args.Error(1)
}

func (m *MockAuditService) VerifyChain(ctx context.Context, approvalID string) ([]evidence.ChainViolation, error) {
	args := m.Called(ctx, approvalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]evidence.ChainViolation), args.Error(1)
}
