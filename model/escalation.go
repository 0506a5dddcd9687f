// model/escalation.go
package model

// EscalationStep routes an undecided approval to a further approver once
// the approval has been waiting longer than AfterHours.
type EscalationStep struct {
	StepOrder        int     `json:"stepOrder"`
	EscalateToUserID string  `json:"escalateToUserId"`
	AfterHours       float64 `json:"afterHours"`
}

// EscalationEvaluation reports which step of a chain is currently
// active. ActiveStep is nil while no threshold has been reached.
type EscalationEvaluation struct {
	ActiveStep     *EscalationStep `json:"activeStep,omitempty"`
	ElapsedHours   float64         `json:"elapsedHours"`
	FullyEscalated bool            `json:"fullyEscalated"`
}
