// model/evidence.go
package model

// ApprovalAuditEventKind enumerates the canonical approval audit events.
type ApprovalAuditEventKind string

const (
	EventApprovalOpened   ApprovalAuditEventKind = "approval_opened"
	EventPolicyEvaluated  ApprovalAuditEventKind = "policy_evaluated"
	EventApprovalAssigned ApprovalAuditEventKind = "approval_assigned"
	EventDecisionRecorded ApprovalAuditEventKind = "decision_recorded"
	EventChangesRequested ApprovalAuditEventKind = "changes_requested"
	EventApprovalReopened ApprovalAuditEventKind = "approval_reopened"
	EventApprovalExecuted ApprovalAuditEventKind = "approval_executed"
	EventEffectsApplied   ApprovalAuditEventKind = "effects_applied"
	EventRollbackExecuted ApprovalAuditEventKind = "rollback_executed"
	EventApprovalExpired  ApprovalAuditEventKind = "approval_expired"
)

// EvidenceEntryV1 is one immutable record of the hash-linked evidence
// ledger. HashSha256 covers the entry's own content; PreviousHash links
// to the predecessor's HashSha256 and is empty only for the chain head.
// Altering any entry breaks the link for every subsequent entry.
type EvidenceEntryV1 struct {
	EvidenceID    string                 `json:"evidenceId"`
	ApprovalID    string                 `json:"approvalId"`
	Category      ApprovalAuditEventKind `json:"category"`
	Summary       string                 `json:"summary"`
	ActorUserID   string                 `json:"actorUserId"`
	Links         []string               `json:"links,omitempty"`
	OccurredAtIso string                 `json:"occurredAtIso"`
	HashSha256    string                 `json:"hashSha256"`
	PreviousHash  string                 `json:"previousHash,omitempty"`
}

// RetentionClass grades how long and how strictly evidence is kept.
type RetentionClass string

const (
	RetentionOperational RetentionClass = "operational"
	RetentionCompliance  RetentionClass = "compliance"
	RetentionForensic    RetentionClass = "forensic"
)

// TamperEvidenceLevel grades how strongly stored evidence resists
// undetected modification.
type TamperEvidenceLevel string

const (
	TamperHashOnly    TamperEvidenceLevel = "hash-only"
	TamperChainHash   TamperEvidenceLevel = "chain-hash"
	TamperSignedChain TamperEvidenceLevel = "signed-chain"
)

// DeletionPolicyMode states when (if ever) entries may be deleted.
type DeletionPolicyMode string

const (
	DeletionProhibited     DeletionPolicyMode = "prohibited"
	DeletionAfterRetention DeletionPolicyMode = "after-retention"
	DeletionOnRequest      DeletionPolicyMode = "on-request"
)

// EvidenceDurabilityPolicyV1 governs retention, export and deletion for
// one retention class. Structurally invalid combinations are rejected at
// parse time, so a misconfigured policy cannot be constructed.
type EvidenceDurabilityPolicyV1 struct {
	RetentionClass            RetentionClass      `json:"retentionClass"`
	TamperEvidenceLevel       TamperEvidenceLevel `json:"tamperEvidenceLevel"`
	RetentionDays             int                 `json:"retentionDays"`
	DeletionPolicy            DeletionPolicyMode  `json:"deletionPolicy"`
	LegalHoldSuspendsDeletion bool                `json:"legalHoldSuspendsDeletion"`
	ExportPermitted           bool                `json:"exportPermitted"`
}
