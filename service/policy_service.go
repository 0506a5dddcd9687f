package service

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/clearops/clearance/dao"
	logger "github.com/clearops/clearance/logging"
	"github.com/clearops/clearance/model"
	"github.com/clearops/clearance/policy"
	"github.com/clearops/clearance/util"
)

type IPolicyService interface {
	CreateRule(ctx context.Context, workspaceID string, rule model.PolicyRule, userID string) (*model.PolicyRule, error)
	GetRule(ctx context.Context, ruleID string) (*model.PolicyRule, error)
	ListRules(ctx context.Context, workspaceID string) ([]model.PolicyRule, error)
	DeleteRule(ctx context.Context, ruleID string, userID string) error
	Evaluate(ctx context.Context, workspaceID string, decisionCtx model.DecisionContext, deadlineAtIso string) (*model.PolicySetEvaluation, error)
}

// PolicyService handles business logic for policy rule operations
type PolicyService struct {
	ruleDAO        *dao.PolicyRuleDAO
	validationUtil *util.ValidationUtil
	eventBus       *util.EventBus

	riskThreshold    model.RiskLevel
	minEvidenceCount int
}

// NewPolicyService creates a new instance of PolicyService
func NewPolicyService(ruleDAO *dao.PolicyRuleDAO, validationUtil *util.ValidationUtil, eventBus *util.EventBus) *PolicyService {
	service := &PolicyService{
		ruleDAO:          ruleDAO,
		validationUtil:   validationUtil,
		eventBus:         eventBus,
		riskThreshold:    model.RiskLevel(viper.GetString("approval.riskThreshold")),
		minEvidenceCount: viper.GetInt("approval.minEvidenceCount"),
	}

	eventBus.Subscribe(util.TopicPolicyRuleCreated, service.handleRuleCreated)
	eventBus.Subscribe(util.TopicPolicyRuleDeleted, service.handleRuleDeleted)

	return service
}

func (s *PolicyService) handleRuleCreated(ctx context.Context, event util.Event) error {
	rule, ok := event.Payload.(model.PolicyRule)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Info("Policy rule created event received", zap.String("ruleID", rule.ID))
	return nil
}

func (s *PolicyService) handleRuleDeleted(ctx context.Context, event util.Event) error {
	ruleID, ok := event.Payload.(string)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Info("Policy rule deleted event received", zap.String("ruleID", ruleID))
	return nil
}

// CreateRule handles the creation of a new policy rule
func (s *PolicyService) CreateRule(ctx context.Context, workspaceID string, rule model.PolicyRule, userID string) (*model.PolicyRule, error) {
	if err := s.validationUtil.ValidatePolicyRule(rule); err != nil {
		return nil, fmt.Errorf("invalid policy rule: %w", err)
	}

	ruleID, err := s.ruleDAO.CreateRule(ctx, workspaceID, rule)
	if err != nil {
		logger.Error("Error creating policy rule", zap.Error(err), zap.String("userID", userID))
		return nil, fmt.Errorf("failed to create policy rule: %w", err)
	}
	rule.ID = ruleID

	s.eventBus.Publish(ctx, util.TopicPolicyRuleCreated, rule)

	logger.Info("Policy rule created successfully",
		zap.String("ruleID", ruleID),
		zap.String("userID", userID))
	return &rule, nil
}

func (s *PolicyService) GetRule(ctx context.Context, ruleID string) (*model.PolicyRule, error) {
	return s.ruleDAO.GetRule(ctx, ruleID)
}

func (s *PolicyService) ListRules(ctx context.Context, workspaceID string) ([]model.PolicyRule, error) {
	return s.ruleDAO.ListRules(ctx, workspaceID)
}

// DeleteRule removes a stored policy rule
func (s *PolicyService) DeleteRule(ctx context.Context, ruleID string, userID string) error {
	if err := s.ruleDAO.DeleteRule(ctx, ruleID); err != nil {
		logger.Error("Error deleting policy rule", zap.Error(err), zap.String("ruleID", ruleID))
		return err
	}

	s.eventBus.Publish(ctx, util.TopicPolicyRuleDeleted, ruleID)

	logger.Info("Policy rule deleted successfully",
		zap.String("ruleID", ruleID),
		zap.String("userID", userID))
	return nil
}

// Evaluate runs the built-in gating rules plus every stored rule for the
// workspace against one decision context. All rules run; nothing
// short-circuits.
func (s *PolicyService) Evaluate(ctx context.Context, workspaceID string, decisionCtx model.DecisionContext, deadlineAtIso string) (*model.PolicySetEvaluation, error) {
	stored, err := s.ruleDAO.ListRules(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy rules: %w", err)
	}

	rules := []policy.Rule{
		policy.NewRiskThresholdRule(s.riskThreshold),
		policy.NewSeparationOfDutiesRule(),
		policy.NewEvidenceRequiredRule(s.minEvidenceCount),
	}
	if deadlineAtIso != "" {
		rules = append(rules, policy.NewExpiryCheckRule(deadlineAtIso))
	}
	rules = append(rules, policy.RulesFromModels(stored)...)

	if decisionCtx.NowIso == "" {
		decisionCtx.NowIso = time.Now().UTC().Format(time.RFC3339)
	}

	evaluation, err := policy.EvaluateRuleSet(rules, decisionCtx)
	if err != nil {
		return nil, err
	}
	return &evaluation, nil
}
