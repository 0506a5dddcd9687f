// util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/clearops/clearance/logging"
	"github.com/clearops/clearance/model"
)

type NotificationService struct {
	// Delivery goes through the log until a message queue client lands here.
}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

func (n *NotificationService) NotifyApprovalChange(ctx context.Context, changeType string, approval model.Approval) error {
	switch changeType {
	case "created":
		logger.Info("NOTIFICATION: New approval opened",
			zap.String("approvalID", approval.ID),
			zap.String("runID", approval.RunID))
	case "assigned":
		logger.Info("NOTIFICATION: Approval assigned",
			zap.String("approvalID", approval.ID),
			zap.Strings("approvers", approval.ApproverUserIDs))
	case "decided":
		logger.Info("NOTIFICATION: Approval decided",
			zap.String("approvalID", approval.ID))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}
	return nil
}

func (n *NotificationService) NotifyEscalation(ctx context.Context, approvalID string, step model.EscalationStep) error {
	logger.Info("NOTIFICATION: Approval escalated",
		zap.String("approvalID", approvalID),
		zap.Int("stepOrder", step.StepOrder),
		zap.String("escalateTo", step.EscalateToUserID))
	return nil
}

func (n *NotificationService) NotifyTokenIssued(ctx context.Context, tok model.OffPlatformDecisionTokenV1) error {
	logger.Info("NOTIFICATION: Off-platform decision token issued",
		zap.String("tokenID", tok.TokenID),
		zap.String("approvalID", tok.ApprovalID),
		zap.String("issuedTo", tok.IssuedToUserID))
	return nil
}
