// escalation/escalation.go
package escalation

import (
	"fmt"
	"sort"

	"github.com/clearops/clearance/model"
)

// NormalizeChain sorts a chain ascending by afterHours and renumbers
// step order. Negative thresholds and duplicate escalation targets at
// the same threshold are configuration bugs and are rejected.
func NormalizeChain(steps []model.EscalationStep) ([]model.EscalationStep, error) {
	normalized := make([]model.EscalationStep, len(steps))
	copy(normalized, steps)

	for _, step := range normalized {
		if step.AfterHours < 0 {
			return nil, fmt.Errorf("escalation step to %q has a negative threshold %v", step.EscalateToUserID, step.AfterHours)
		}
		if step.EscalateToUserID == "" {
			return nil, fmt.Errorf("escalation step at %v hours has no escalation target", step.AfterHours)
		}
	}

	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].AfterHours < normalized[j].AfterHours
	})
	for i := range normalized {
		normalized[i].StepOrder = i
	}
	return normalized, nil
}

// EvaluateEscalation computes which step of the chain is active after
// the given elapsed time. The active step is the last step whose
// threshold has been reached; the chain is fully escalated once the
// final threshold has been reached. The chain must already be sorted
// ascending by afterHours (NormalizeChain does this).
func EvaluateEscalation(chain []model.EscalationStep, elapsedHours float64) model.EscalationEvaluation {
	evaluation := model.EscalationEvaluation{ElapsedHours: elapsedHours}
	if len(chain) == 0 {
		return evaluation
	}

	for i := range chain {
		if elapsedHours >= chain[i].AfterHours {
			step := chain[i]
			evaluation.ActiveStep = &step
		}
	}
	evaluation.FullyEscalated = elapsedHours >= chain[len(chain)-1].AfterHours
	return evaluation
}
