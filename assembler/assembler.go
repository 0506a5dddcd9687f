// assembler/assembler.go
package assembler

import (
	"fmt"

	"github.com/clearops/clearance/delegation"
	"github.com/clearops/clearance/escalation"
	"github.com/clearops/clearance/lifecycle"
	"github.com/clearops/clearance/model"
)

// Input carries already-constructed value objects from every upstream
// component. The assembler composes them; it never performs I/O and
// never mutates its inputs.
type Input struct {
	ApprovalID           string
	LifecycleStatus      model.ApprovalStatus
	SnapshotVerification *model.SnapshotSetVerification
	PolicyEvaluation     *model.PolicySetEvaluation
	DecisionRecord       *model.DecisionRecord
	Delegations          []model.DelegationGrantV1
	DelegationContext    model.DelegationScopeContext
	EscalationChain      []model.EscalationStep
	ElapsedHours         float64
	NowIso               string
}

// AssembleContext composes the full approval context and derives its
// readiness verdict. A decision is possible only while the lifecycle
// status is decidable and the policy evaluation, when present, has not
// failed; blocking reasons for lifecycle, policy and snapshot problems
// may co-occur. Escalation and NeedsHuman are informational, not
// blockers.
func AssembleContext(input Input) (model.ApprovalContextV1, error) {
	readiness := model.Readiness{
		CanDecide:       true,
		BlockingReasons: []string{},
	}

	if !lifecycle.IsDecidableApprovalStatus(input.LifecycleStatus) {
		readiness.CanDecide = false
		readiness.BlockingReasons = append(readiness.BlockingReasons,
			fmt.Sprintf("approval is in terminal status %q and can no longer be decided", input.LifecycleStatus))
	}

	if input.PolicyEvaluation != nil {
		switch input.PolicyEvaluation.AggregateOutcome {
		case model.OutcomeFail:
			readiness.CanDecide = false
			readiness.BlockingReasons = append(readiness.BlockingReasons,
				"one or more policy rules failed; see the policy evaluation trace")
		case model.OutcomeNeedsHuman:
			readiness.PoliciesNeedHuman = true
		}
	}

	if input.SnapshotVerification != nil {
		readiness.SnapshotVerified = input.SnapshotVerification.AllVerified
		for _, result := range input.SnapshotVerification.Results {
			if result.Status == model.SnapshotDrifted {
				readiness.BlockingReasons = append(readiness.BlockingReasons,
					fmt.Sprintf("snapshot subject %q has drifted since capture", result.SubjectLabel))
			}
		}
	}

	applicable := make([]model.DelegationGrantV1, 0, len(input.Delegations))
	for _, grant := range input.Delegations {
		status, err := delegation.GetStatus(grant, input.NowIso)
		if err != nil {
			return model.ApprovalContextV1{}, err
		}
		if status != model.DelegationActive {
			continue
		}
		if delegation.IsApplicable(grant, input.DelegationContext) {
			applicable = append(applicable, grant)
		}
	}

	context := model.ApprovalContextV1{
		ApprovalID:            input.ApprovalID,
		LifecycleStatus:       input.LifecycleStatus,
		SnapshotVerification:  input.SnapshotVerification,
		PolicyEvaluation:      input.PolicyEvaluation,
		DecisionRecord:        input.DecisionRecord,
		ApplicableDelegations: applicable,
	}

	if len(input.EscalationChain) > 0 {
		evaluation := escalation.EvaluateEscalation(input.EscalationChain, input.ElapsedHours)
		context.EscalationEvaluation = &evaluation
		readiness.IsEscalated = evaluation.ActiveStep != nil
	}

	context.Readiness = readiness
	return context, nil
}
