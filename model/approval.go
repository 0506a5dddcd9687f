// model/approval.go
package model

// RunStatus is the lifecycle status of a run (a deployment, job or
// workflow execution whose gated step is governed by an approval).
type RunStatus string

const (
	RunDraft             RunStatus = "draft"
	RunQueued            RunStatus = "queued"
	RunRunning           RunStatus = "running"
	RunAwaitingApproval  RunStatus = "awaiting_approval"
	RunCompleted         RunStatus = "completed"
	RunFailed            RunStatus = "failed"
	RunCancelled         RunStatus = "cancelled"
)

// Run is the persisted run aggregate. A run parks in awaiting_approval
// while its gated step waits for a decision.
type Run struct {
	ID           string    `json:"id"`
	WorkspaceID  string    `json:"workspaceId"`
	Kind         string    `json:"kind"`
	Status       RunStatus `json:"status"`
	CreatedAtIso string    `json:"createdAtIso"`
	UpdatedAtIso string    `json:"updatedAtIso"`
}

// ApprovalStatus is the lifecycle status of an approval request.
type ApprovalStatus string

const (
	ApprovalOpen        ApprovalStatus = "open"
	ApprovalAssigned    ApprovalStatus = "assigned"
	ApprovalUnderReview ApprovalStatus = "under_review"
	ApprovalDecided     ApprovalStatus = "decided"
)

// RiskLevel orders the blast radius of the change under approval.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// RiskRank returns the ordinal position of a risk level, or -1 for an
// unknown level so that comparisons against it never match a threshold.
func RiskRank(level RiskLevel) int {
	rank, ok := riskRank[level]
	if !ok {
		return -1
	}
	return rank
}

// Approval is the persisted approval aggregate. The decision core never
// mutates it; services load it, derive value objects from it and persist
// new records.
type Approval struct {
	ID                string           `json:"id"`
	RunID             string           `json:"runId,omitempty"`
	WorkspaceID       string           `json:"workspaceId"`
	Title             string           `json:"title"`
	SubjectKind       string           `json:"subjectKind"`
	RiskLevel         RiskLevel        `json:"riskLevel"`
	Status            ApprovalStatus   `json:"status"`
	RequestedByUserID string           `json:"requestedByUserId"`
	ApproverUserIDs   []string         `json:"approverUserIds"`
	DeadlineAtIso     string           `json:"deadlineAtIso,omitempty"`
	EscalationChain   []EscalationStep `json:"escalationChain,omitempty"`
	CreatedAtIso      string           `json:"createdAtIso"`
	UpdatedAtIso      string           `json:"updatedAtIso"`
}

// DecisionRecord captures a recorded decision on an approval.
type DecisionRecord struct {
	DecisionID      string `json:"decisionId"`
	ApprovalID      string `json:"approvalId"`
	DecidedByUserID string `json:"decidedByUserId"`
	Decision        string `json:"decision"` // "approved" | "rejected" | "changes_requested"
	Rationale       string `json:"rationale,omitempty"`
	DecidedAtIso    string `json:"decidedAtIso"`
}

// Readiness is the assembler's verdict on whether an approval can be
// decided right now, and why not when it cannot. It is derived, never
// set independently.
type Readiness struct {
	CanDecide         bool     `json:"canDecide"`
	SnapshotVerified  bool     `json:"snapshotVerified"`
	BlockingReasons   []string `json:"blockingReasons"`
	IsEscalated       bool     `json:"isEscalated"`
	PoliciesNeedHuman bool     `json:"policiesNeedHuman"`
}

// ApprovalContextV1 is the composed decision snapshot handed to the
// presentation layer. Every field is a value object; the struct is
// assembled on demand and never persisted as mutable state.
type ApprovalContextV1 struct {
	ApprovalID            string                     `json:"approvalId"`
	LifecycleStatus       ApprovalStatus             `json:"lifecycleStatus"`
	SnapshotVerification  *SnapshotSetVerification   `json:"snapshotVerification,omitempty"`
	PolicyEvaluation      *PolicySetEvaluation       `json:"policyEvaluation,omitempty"`
	DecisionRecord        *DecisionRecord            `json:"decisionRecord,omitempty"`
	ApplicableDelegations []DelegationGrantV1        `json:"applicableDelegations"`
	EscalationEvaluation  *EscalationEvaluation      `json:"escalationEvaluation,omitempty"`
	Readiness             Readiness                  `json:"readiness"`
}
