// test/mock/services.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/clearops/clearance/delegation"
	"github.com/clearops/clearance/model"
	"github.com/clearops/clearance/service"
)

// MockApprovalService is a mock implementation of service.IApprovalService
type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) CreateRun(ctx context.Context, run model.Run, userID string) (*model.Run, error) {
	args := m.Called(ctx, run, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *MockApprovalService) TransitionRun(ctx context.Context, runID string, to model.RunStatus) error {
	args := m.Called(ctx, runID, to)
	return args.Error(0)
}

func (m *MockApprovalService) CreateApproval(ctx context.Context, approval model.Approval, userID string) (*model.Approval, error) {
	args := m.Called(ctx, approval, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Approval), args.Error(1)
}

func (m *MockApprovalService) GetApproval(ctx context.Context, approvalID string) (*model.Approval, error) {
	args := m.Called(ctx, approvalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Approval), args.Error(1)
}

func (m *MockApprovalService) ListApprovals(ctx context.Context, workspaceID string, limit, offset int) ([]*model.Approval, error) {
	args := m.Called(ctx, workspaceID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Approval), args.Error(1)
}

func (m *MockApprovalService) AssignApproval(ctx context.Context, approvalID string, approverUserIDs []string, userID string) error {
	args := m.Called(ctx, approvalID, approverUserIDs, userID)
	return args.Error(0)
}

func (m *MockApprovalService) StartReview(ctx context.Context, approvalID string, userID string) error {
	args := m.Called(ctx, approvalID, userID)
	return args.Error(0)
}

func (m *MockApprovalService) ReopenApproval(ctx context.Context, approvalID string, userID string) error {
	args := m.Called(ctx, approvalID, userID)
	return args.Error(0)
}

func (m *MockApprovalService) RecordDecision(ctx context.Context, decision model.DecisionRecord) (*model.DecisionRecord, error) {
	args := m.Called(ctx, decision)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DecisionRecord), args.Error(1)
}

func (m *MockApprovalService) CaptureSnapshots(ctx context.Context, approvalID string, subjects []service.SnapshotSubject) (*model.SnapshotSet, error) {
	args := m.Called(ctx, approvalID, subjects)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SnapshotSet), args.Error(1)
}

func (m *MockApprovalService) VerifySnapshots(ctx context.Context, approvalID string, currentContents map[string]any) (*model.SnapshotSetVerification, error) {
	args := m.Called(ctx, approvalID, currentContents)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SnapshotSetVerification), args.Error(1)
}

func (m *MockApprovalService) GetApprovalContext(ctx context.Context, approvalID string, callerUserID string) (*model.ApprovalContextV1, error) {
	args := m.Called(ctx, approvalID, callerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ApprovalContextV1), args.Error(1)
}

// MockPolicyService is a mock implementation of service.IPolicyService
type MockPolicyService struct {
	mock.Mock
}

func (m *MockPolicyService) CreateRule(ctx context.Context, workspaceID string, rule model.PolicyRule, userID string) (*model.PolicyRule, error) {
	args := m.Called(ctx, workspaceID, rule, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PolicyRule), args.Error(1)
}

func (m *MockPolicyService) GetRule(ctx context.Context, ruleID string) (*model.PolicyRule, error) {
	args := m.Called(ctx, ruleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PolicyRule), args.Error(1)
}

func (m *MockPolicyService) ListRules(ctx context.Context, workspaceID string) ([]model.PolicyRule, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PolicyRule), args.Error(1)
}

func (m *MockPolicyService) DeleteRule(ctx context.Context, ruleID string, userID string) error {
	args := m.Called(ctx, ruleID, userID)
	return args.Error(0)
}

func (m *MockPolicyService) Evaluate(ctx context.Context, workspaceID string, decisionCtx model.DecisionContext, deadlineAtIso string) (*model.PolicySetEvaluation, error) {
	args := m.Called(ctx, workspaceID, decisionCtx, deadlineAtIso)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PolicySetEvaluation), args.Error(1)
}

// MockTokenService is a mock implementation of service.ITokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) IssueToken(ctx context.Context, approvalID, issuedToUserID string, actions []model.OffPlatformAction) (*model.OffPlatformDecisionTokenV1, error) {
	args := m.Called(ctx, approvalID, issuedToUserID, actions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OffPlatformDecisionTokenV1), args.Error(1)
}

func (m *MockTokenService) ConsumeToken(ctx context.Context, tokenID string, attempt model.ConsumptionAttempt) (*model.ConsumptionResult, error) {
	args := m.Called(ctx, tokenID, attempt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConsumptionResult), args.Error(1)
}

func (m *MockTokenService) RevokeToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

// MockDelegationService is a mock implementation of service.IDelegationService
type MockDelegationService struct {
	mock.Mock
}

func (m *MockDelegationService) CreateGrant(ctx context.Context, input delegation.GrantInput) (*model.DelegationGrantV1, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DelegationGrantV1), args.Error(1)
}

func (m *MockDelegationService) GetGrant(ctx context.Context, grantID string) (*model.DelegationGrantV1, error) {
	args := m.Called(ctx, grantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DelegationGrantV1), args.Error(1)
}

func (m *MockDelegationService) RevokeGrant(ctx context.Context, grantID, revokedByUserID, reason string) (*model.DelegationGrantV1, error) {
	args := m.Called(ctx, grantID, revokedByUserID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DelegationGrantV1), args.Error(1)
}

func (m *MockDelegationService) ListGrantsForDelegate(ctx context.Context, delegateUserID string) ([]model.DelegationGrantV1, error) {
	args := m.Called(ctx, delegateUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DelegationGrantV1), args.Error(1)
}
