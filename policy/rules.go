// policy/rules.go
package policy

import (
	"time"

	"github.com/clearops/clearance/model"
)

// Built-in rule constructors for the gating predicates the DSL cannot
// express. Each one is a pure Rule like any DSL rule.

// RiskThresholdRule demands a human at or above a risk level.
type RiskThresholdRule struct {
	Threshold model.RiskLevel
}

// NewRiskThresholdRule returns a rule producing NeedsHuman for any
// context whose risk level is at or above the threshold.
func NewRiskThresholdRule(threshold model.RiskLevel) *RiskThresholdRule {
	return &RiskThresholdRule{Threshold: threshold}
}

func (r *RiskThresholdRule) ID() string               { return "risk-threshold" }
func (r *RiskThresholdRule) Effect() model.RuleEffect { return model.EffectDeny }

func (r *RiskThresholdRule) Evaluate(ctx model.DecisionContext) model.PolicyRuleEvaluation {
	t := &trace{}
	outcome := model.OutcomePass

	rank := model.RiskRank(ctx.RiskLevel)
	thresholdRank := model.RiskRank(r.Threshold)
	switch {
	case rank < 0:
		t.add(model.TraceError, "risk level %q is not a known level", ctx.RiskLevel)
		outcome = model.OutcomeNeedsHuman
	case rank >= thresholdRank:
		t.add(model.TraceFail, "risk level %q is at or above threshold %q, human review required", ctx.RiskLevel, r.Threshold)
		outcome = model.OutcomeNeedsHuman
	default:
		t.add(model.TracePass, "risk level %q is below threshold %q", ctx.RiskLevel, r.Threshold)
	}

	return model.PolicyRuleEvaluation{RuleID: r.ID(), Effect: r.Effect(), Outcome: outcome, Trace: t.entries}
}

// SeparationOfDutiesRule fails a context in which the requester is the
// only person who could approve their own change.
type SeparationOfDutiesRule struct{}

// NewSeparationOfDutiesRule returns the SoD rule.
func NewSeparationOfDutiesRule() *SeparationOfDutiesRule {
	return &SeparationOfDutiesRule{}
}

func (r *SeparationOfDutiesRule) ID() string               { return "separation-of-duties" }
func (r *SeparationOfDutiesRule) Effect() model.RuleEffect { return model.EffectDeny }

func (r *SeparationOfDutiesRule) Evaluate(ctx model.DecisionContext) model.PolicyRuleEvaluation {
	t := &trace{}
	outcome := model.OutcomePass

	switch {
	case len(ctx.ApproverUserIDs) == 0:
		t.add(model.TraceSkip, "no approvers assigned, separation of duties not applicable yet")
	case soleApprover(ctx):
		t.add(model.TraceFail, "requester %q is the sole approver, separation of duties violated", ctx.RequestedByUserID)
		outcome = model.OutcomeFail
	default:
		t.add(model.TracePass, "at least one approver differs from requester %q", ctx.RequestedByUserID)
	}

	return model.PolicyRuleEvaluation{RuleID: r.ID(), Effect: r.Effect(), Outcome: outcome, Trace: t.entries}
}

func soleApprover(ctx model.DecisionContext) bool {
	for _, approver := range ctx.ApproverUserIDs {
		if approver != ctx.RequestedByUserID {
			return false
		}
	}
	return true
}

// EvidenceRequiredRule fails a context carrying too little evidence.
type EvidenceRequiredRule struct {
	MinimumCount int
}

// NewEvidenceRequiredRule returns a rule failing below a minimum
// evidence count or when decisive evidence is missing entirely.
func NewEvidenceRequiredRule(minimumCount int) *EvidenceRequiredRule {
	return &EvidenceRequiredRule{MinimumCount: minimumCount}
}

func (r *EvidenceRequiredRule) ID() string               { return "evidence-required" }
func (r *EvidenceRequiredRule) Effect() model.RuleEffect { return model.EffectDeny }

func (r *EvidenceRequiredRule) Evaluate(ctx model.DecisionContext) model.PolicyRuleEvaluation {
	t := &trace{}
	outcome := model.OutcomePass

	if ctx.EvidenceCount < r.MinimumCount {
		t.add(model.TraceFail, "evidence count %d is below the required minimum %d", ctx.EvidenceCount, r.MinimumCount)
		outcome = model.OutcomeFail
	} else {
		t.add(model.TracePass, "evidence count %d meets the required minimum %d", ctx.EvidenceCount, r.MinimumCount)
	}

	if ctx.DecisiveEvidenceCount == 0 {
		t.add(model.TraceFail, "no decisive evidence has been recorded")
		outcome = model.OutcomeFail
	} else {
		t.add(model.TracePass, "%d decisive evidence entries recorded", ctx.DecisiveEvidenceCount)
	}

	return model.PolicyRuleEvaluation{RuleID: r.ID(), Effect: r.Effect(), Outcome: outcome, Trace: t.entries}
}

// ExpiryCheckRule fails a context evaluated at or after a deadline.
type ExpiryCheckRule struct {
	DeadlineAtIso string
}

// NewExpiryCheckRule returns a rule failing at or after the given
// RFC3339 deadline.
func NewExpiryCheckRule(deadlineAtIso string) *ExpiryCheckRule {
	return &ExpiryCheckRule{DeadlineAtIso: deadlineAtIso}
}

func (r *ExpiryCheckRule) ID() string               { return "expiry-check" }
func (r *ExpiryCheckRule) Effect() model.RuleEffect { return model.EffectDeny }

func (r *ExpiryCheckRule) Evaluate(ctx model.DecisionContext) model.PolicyRuleEvaluation {
	t := &trace{}
	outcome := model.OutcomePass

	deadline, err := time.Parse(time.RFC3339, r.DeadlineAtIso)
	if err != nil {
		t.add(model.TraceError, "deadline %q is not a valid RFC3339 timestamp: %v", r.DeadlineAtIso, err)
		return model.PolicyRuleEvaluation{RuleID: r.ID(), Effect: r.Effect(), Outcome: model.OutcomeNeedsHuman, Trace: t.entries}
	}
	now, err := time.Parse(time.RFC3339, ctx.NowIso)
	if err != nil {
		t.add(model.TraceError, "evaluation time %q is not a valid RFC3339 timestamp: %v", ctx.NowIso, err)
		return model.PolicyRuleEvaluation{RuleID: r.ID(), Effect: r.Effect(), Outcome: model.OutcomeNeedsHuman, Trace: t.entries}
	}

	if !now.Before(deadline) {
		t.add(model.TraceFail, "approval deadline %s has passed", r.DeadlineAtIso)
		outcome = model.OutcomeFail
	} else {
		t.add(model.TracePass, "approval deadline %s has not passed", r.DeadlineAtIso)
	}

	return model.PolicyRuleEvaluation{RuleID: r.ID(), Effect: r.Effect(), Outcome: outcome, Trace: t.entries}
}
