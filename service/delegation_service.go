package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clearops/clearance/dao"
	"github.com/clearops/clearance/delegation"
	logger "github.com/clearops/clearance/logging"
	"github.com/clearops/clearance/model"
	"github.com/clearops/clearance/util"
)

type IDelegationService interface {
	CreateGrant(ctx context.Context, input delegation.GrantInput) (*model.DelegationGrantV1, error)
	GetGrant(ctx context.Context, grantID string) (*model.DelegationGrantV1, error)
	RevokeGrant(ctx context.Context, grantID, revokedByUserID, reason string) (*model.DelegationGrantV1, error)
	ListGrantsForDelegate(ctx context.Context, delegateUserID string) ([]model.DelegationGrantV1, error)
}

// DelegationService handles business logic for delegation grants
type DelegationService struct {
	delegationDAO *dao.DelegationDAO
	eventBus      *util.EventBus
}

// NewDelegationService creates a new instance of DelegationService
func NewDelegationService(delegationDAO *dao.DelegationDAO, eventBus *util.EventBus) *DelegationService {
	return &DelegationService{
		delegationDAO: delegationDAO,
		eventBus:      eventBus,
	}
}

// CreateGrant validates and persists a delegation grant
func (s *DelegationService) CreateGrant(ctx context.Context, input delegation.GrantInput) (*model.DelegationGrantV1, error) {
	if input.GrantID == "" {
		input.GrantID = uuid.New().String()
	}

	grant, err := delegation.CreateGrant(input)
	if err != nil {
		return nil, err
	}

	grantID, err := s.delegationDAO.CreateGrant(ctx, grant)
	if err != nil {
		logger.Error("Error creating delegation grant",
			zap.Error(err),
			zap.String("delegator", grant.DelegatorUserID))
		return nil, fmt.Errorf("failed to create delegation grant: %w", err)
	}
	grant.GrantID = grantID

	s.eventBus.Publish(ctx, util.TopicDelegationCreated, grant)

	logger.Info("Delegation grant created successfully",
		zap.String("grantID", grantID),
		zap.String("delegator", grant.DelegatorUserID),
		zap.String("delegate", grant.DelegateUserID))
	return &grant, nil
}

func (s *DelegationService) GetGrant(ctx context.Context, grantID string) (*model.DelegationGrantV1, error) {
	return s.delegationDAO.GetGrant(ctx, grantID)
}

// RevokeGrant revokes a grant exactly once. Revocation is irreversible.
func (s *DelegationService) RevokeGrant(ctx context.Context, grantID, revokedByUserID, reason string) (*model.DelegationGrantV1, error) {
	stored, err := s.delegationDAO.GetGrant(ctx, grantID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	revoked, err := delegation.RevokeGrant(*stored, revokedByUserID, now, reason)
	if err != nil {
		return nil, err
	}

	if err := s.delegationDAO.SaveRevocation(ctx, grantID, *revoked.Revocation); err != nil {
		logger.Error("Error saving grant revocation",
			zap.Error(err),
			zap.String("grantID", grantID))
		return nil, err
	}

	s.eventBus.Publish(ctx, util.TopicDelegationRevoked, revoked)

	logger.Info("Delegation grant revoked",
		zap.String("grantID", grantID),
		zap.String("revokedBy", revokedByUserID))
	return &revoked, nil
}

func (s *DelegationService) ListGrantsForDelegate(ctx context.Context, delegateUserID string) ([]model.DelegationGrantV1, error) {
	return s.delegationDAO.ListGrantsForDelegate(ctx, delegateUserID)
}
