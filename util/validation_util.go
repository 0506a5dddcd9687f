// util/validation_util.go

package util

import (
	"fmt"

	"github.com/clearops/clearance/model"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidateApproval(approval model.Approval) error {
	if approval.ID == "" {
		return fmt.Errorf("approval ID cannot be empty")
	}
	if approval.WorkspaceID == "" {
		return fmt.Errorf("approval workspace cannot be empty")
	}
	if approval.RequestedByUserID == "" {
		return fmt.Errorf("approval must have a requesting user")
	}
	switch approval.RiskLevel {
	case model.RiskLow, model.RiskMedium, model.RiskHigh, model.RiskCritical:
	default:
		return fmt.Errorf("unknown risk level: %s", approval.RiskLevel)
	}
	return nil
}

func (v *ValidationUtil) ValidatePolicyRule(rule model.PolicyRule) error {
	if rule.ID == "" {
		return fmt.Errorf("rule ID cannot be empty")
	}
	if rule.Condition == "" {
		return fmt.Errorf("rule condition cannot be empty")
	}
	switch rule.Effect {
	case model.EffectAllow, model.EffectDeny:
	default:
		return fmt.Errorf("rule effect must be either 'allow' or 'deny'")
	}
	return nil
}

func (v *ValidationUtil) ValidateDecision(decision model.DecisionRecord) error {
	if decision.ApprovalID == "" {
		return fmt.Errorf("decision must reference an approval")
	}
	if decision.DecidedByUserID == "" {
		return fmt.Errorf("decision must have a deciding user")
	}
	switch decision.Decision {
	case "approved", "rejected", "changes_requested":
	default:
		return fmt.Errorf("unknown decision outcome: %s", decision.Decision)
	}
	return nil
}
