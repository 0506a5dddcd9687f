package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/clearops/clearance/dao"
	"github.com/clearops/clearance/db"
	clearance_errors "github.com/clearops/clearance/errors"
	"github.com/clearops/clearance/hashing"
	logger "github.com/clearops/clearance/logging"
	"github.com/clearops/clearance/model"
	"github.com/clearops/clearance/token"
	"github.com/clearops/clearance/util"
)

type ITokenService interface {
	IssueToken(ctx context.Context, approvalID, issuedToUserID string, actions []model.OffPlatformAction) (*model.OffPlatformDecisionTokenV1, error)
	ConsumeToken(ctx context.Context, tokenID string, attempt model.ConsumptionAttempt) (*model.ConsumptionResult, error)
	RevokeToken(ctx context.Context, tokenID string) error
}

// TokenService issues and consumes off-platform decision tokens. The
// token core decides whether an attempt is acceptable; this service owns
// the payload-hash binding and the atomic single-use transition.
type TokenService struct {
	approvalDAO     *dao.ApprovalDAO
	approvalSvc     IApprovalService
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
	tokenTTL        time.Duration
}

// NewTokenService creates a new instance of TokenService
func NewTokenService(approvalDAO *dao.ApprovalDAO, approvalSvc IApprovalService, notificationSvc *util.NotificationService, eventBus *util.EventBus) *TokenService {
	return &TokenService{
		approvalDAO:     approvalDAO,
		approvalSvc:     approvalSvc,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
		tokenTTL:        viper.GetDuration("approval.tokenTTL"),
	}
}

// payloadHash fingerprints the approval as the approver currently sees
// it. Tokens are bound to this hash at issue time.
func (s *TokenService) payloadHash(ctx context.Context, approvalID string) (string, error) {
	approval, err := s.approvalDAO.GetApproval(ctx, approvalID)
	if err != nil {
		return "", err
	}
	hash, err := hashing.HashCanonical(hashing.SHA256Hex, approval)
	if err != nil {
		return "", fmt.Errorf("failed to hash approval payload: %w", err)
	}
	return hash, nil
}

// IssueToken mints a single-use decision token bound to one recipient
// and to the approval payload as it stands right now.
func (s *TokenService) IssueToken(ctx context.Context, approvalID, issuedToUserID string, actions []model.OffPlatformAction) (*model.OffPlatformDecisionTokenV1, error) {
	if issuedToUserID == "" {
		return nil, fmt.Errorf("token recipient cannot be empty")
	}
	if len(actions) == 0 {
		actions = []model.OffPlatformAction{model.ActionApprove, model.ActionReject}
	}

	boundHash, err := s.payloadHash(ctx, approvalID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tok := model.OffPlatformDecisionTokenV1{
		TokenID:          uuid.New().String(),
		ApprovalID:       approvalID,
		IssuedToUserID:   issuedToUserID,
		BoundPayloadHash: boundHash,
		PermittedActions: actions,
		IssuedAtIso:      now.Format(time.RFC3339),
		ExpiresAtIso:     now.Add(s.tokenTTL).Format(time.RFC3339),
		Status:           model.TokenActive,
	}

	if err := db.StoreToken(ctx, &tok); err != nil {
		logger.Error("Failed to store decision token",
			zap.Error(err), zap.String("approvalID", approvalID))
		return nil, err
	}

	s.eventBus.Publish(ctx, util.TopicTokenIssued, tok)

	if err := s.notificationSvc.NotifyTokenIssued(ctx, tok); err != nil {
		logger.Warn("Failed to send token notification",
			zap.Error(err), zap.String("tokenID", tok.TokenID))
	}

	logger.Info("Decision token issued",
		zap.String("tokenID", tok.TokenID),
		zap.String("approvalID", approvalID),
		zap.String("issuedTo", issuedToUserID))
	return &tok, nil
}

// ConsumeToken validates a consumption attempt and, when every check
// passes, atomically retires the token and feeds the validated decision
// into the normal decision pipeline. The compare-and-swap on the token
// status guarantees a token decides an approval at most once no matter
// how many attempts race.
func (s *TokenService) ConsumeToken(ctx context.Context, tokenID string, attempt model.ConsumptionAttempt) (*model.ConsumptionResult, error) {
	tok, err := db.GetToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	if attempt.NowIso == "" {
		attempt.NowIso = time.Now().UTC().Format(time.RFC3339)
	}
	if attempt.CurrentPayloadHash == "" {
		currentHash, err := s.payloadHash(ctx, tok.ApprovalID)
		if err != nil {
			return nil, err
		}
		attempt.CurrentPayloadHash = currentHash
	}

	result, err := token.ValidateConsumption(*tok, attempt)
	if err != nil {
		return nil, err
	}
	if !result.OK {
		logger.Info("Decision token consumption rejected",
			zap.String("tokenID", tokenID),
			zap.String("reason", string(result.Reason)))
		return &result, nil
	}

	if _, err := db.TransitionTokenStatus(ctx, tokenID, model.TokenActive, model.TokenConsumed); err != nil {
		if errors.Is(err, clearance_errors.ErrTokenConflict) {
			// Another attempt won the race between validation and
			// consumption.
			lost := model.ConsumptionResult{
				OK:      false,
				Reason:  model.RejectAlreadyConsumed,
				Message: "This decision link has already been used.",
			}
			return &lost, nil
		}
		return nil, err
	}

	decision := model.DecisionRecord{
		ApprovalID:      result.Validated.ApprovalID,
		DecidedByUserID: result.Validated.DecidedByUserID,
		Decision:        decisionForAction(result.Validated.Action),
		Rationale:       result.Validated.Rationale,
	}
	if _, err := s.approvalSvc.RecordDecision(ctx, decision); err != nil {
		logger.Error("Token consumed but decision could not be recorded",
			zap.Error(err),
			zap.String("tokenID", tokenID),
			zap.String("approvalID", decision.ApprovalID))
		return nil, err
	}

	s.eventBus.Publish(ctx, util.TopicTokenConsumed, *result.Validated)

	logger.Info("Decision token consumed",
		zap.String("tokenID", tokenID),
		zap.String("approvalID", decision.ApprovalID),
		zap.String("action", string(result.Validated.Action)))
	return &result, nil
}

// RevokeToken retires an active token before anyone can use it.
func (s *TokenService) RevokeToken(ctx context.Context, tokenID string) error {
	if _, err := db.TransitionTokenStatus(ctx, tokenID, model.TokenActive, model.TokenRevoked); err != nil {
		return err
	}
	logger.Info("Decision token revoked", zap.String("tokenID", tokenID))
	return nil
}

func decisionForAction(action model.OffPlatformAction) string {
	switch action {
	case model.ActionApprove:
		return "approved"
	case model.ActionReject:
		return "rejected"
	case model.ActionRequestChanges:
		return "changes_requested"
	default:
		return string(action)
	}
}
