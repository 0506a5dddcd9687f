// model/delegation.go
package model

// DelegationStatus is the evaluated status of a grant at a point in time.
type DelegationStatus string

const (
	DelegationActive  DelegationStatus = "active"
	DelegationExpired DelegationStatus = "expired"
	DelegationRevoked DelegationStatus = "revoked"
)

// DelegationScope bounds where delegated authority applies. A zero
// dimension means that dimension is unconstrained.
type DelegationScope struct {
	WorkspaceID  string    `json:"workspaceId,omitempty"`
	MaxRiskLevel RiskLevel `json:"maxRiskLevel,omitempty"`
	SubjectKinds []string  `json:"subjectKinds,omitempty"`
}

// DelegationRevocation records the one-time, irreversible revocation of
// a grant.
type DelegationRevocation struct {
	RevokedByUserID string `json:"revokedByUserId"`
	RevokedAtIso    string `json:"revokedAtIso"`
	Reason          string `json:"reason,omitempty"`
}

// DelegationGrantV1 transfers decision authority from one user to
// another for a bounded time window and scope. Self-delegation is
// forbidden by construction.
type DelegationGrantV1 struct {
	GrantID         string                `json:"grantId"`
	DelegatorUserID string                `json:"delegatorUserId"`
	DelegateUserID  string                `json:"delegateUserId"`
	Reason          string                `json:"reason"`
	StartsAtIso     string                `json:"startsAtIso"`
	ExpiresAtIso    string                `json:"expiresAtIso"`
	Scope           DelegationScope       `json:"scope"`
	Revocation      *DelegationRevocation `json:"revocation,omitempty"`
}

// DelegationScopeContext carries the dimensions of the approval a grant
// is being matched against. Absent dimensions are not checked.
type DelegationScopeContext struct {
	WorkspaceID string    `json:"workspaceId,omitempty"`
	RiskLevel   RiskLevel `json:"riskLevel,omitempty"`
	SubjectKind string    `json:"subjectKind,omitempty"`
}
