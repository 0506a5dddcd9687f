// model/token.go
package model

// TokenStatus is the lifecycle of an off-platform decision token. Every
// transition out of active is terminal.
type TokenStatus string

const (
	TokenActive   TokenStatus = "active"
	TokenConsumed TokenStatus = "consumed"
	TokenExpired  TokenStatus = "expired"
	TokenRevoked  TokenStatus = "revoked"
)

// OffPlatformAction is a decision action a token may authorize.
type OffPlatformAction string

const (
	ActionApprove        OffPlatformAction = "approve"
	ActionReject         OffPlatformAction = "reject"
	ActionRequestChanges OffPlatformAction = "request_changes"
)

// TokenRejectionReason tags why a consumption attempt was refused.
type TokenRejectionReason string

const (
	RejectAlreadyConsumed    TokenRejectionReason = "already_consumed"
	RejectRevoked            TokenRejectionReason = "revoked"
	RejectExpired            TokenRejectionReason = "expired"
	RejectWrongRecipient     TokenRejectionReason = "wrong_recipient"
	RejectActionNotPermitted TokenRejectionReason = "action_not_permitted"
	RejectPayloadChanged     TokenRejectionReason = "payload_changed"
)

// OffPlatformDecisionTokenV1 is a single-use authorization to decide an
// approval outside the primary surface (email, chat). It is bound to one
// recipient and to the payload hash of the approval at issue time.
type OffPlatformDecisionTokenV1 struct {
	TokenID          string              `json:"tokenId"`
	ApprovalID       string              `json:"approvalId"`
	IssuedToUserID   string              `json:"issuedToUserId"`
	BoundPayloadHash string              `json:"boundPayloadHash"`
	PermittedActions []OffPlatformAction `json:"permittedActions"`
	IssuedAtIso      string              `json:"issuedAtIso"`
	ExpiresAtIso     string              `json:"expiresAtIso"`
	Status           TokenStatus         `json:"status"`
}

// ConsumptionAttempt describes one attempt to use a token.
type ConsumptionAttempt struct {
	AttemptedByUserID  string            `json:"attemptedByUserId"`
	AttemptedAction    OffPlatformAction `json:"attemptedAction"`
	CurrentPayloadHash string            `json:"currentPayloadHash"`
	NowIso             string            `json:"nowIso"`
	Rationale          string            `json:"rationale,omitempty"`
}

// ValidatedOffPlatformDecisionV1 is the approved hand-off into the
// normal decision pipeline once every consumption check passed. Marking
// the token consumed is the caller's responsibility.
type ValidatedOffPlatformDecisionV1 struct {
	TokenID         string            `json:"tokenId"`
	ApprovalID      string            `json:"approvalId"`
	DecidedByUserID string            `json:"decidedByUserId"`
	Action          OffPlatformAction `json:"action"`
	PayloadHash     string            `json:"payloadHash"`
	Rationale       string            `json:"rationale,omitempty"`
	ValidatedAtIso  string            `json:"validatedAtIso"`
}

// ConsumptionResult is the evaluation-time outcome of a consumption
// attempt: either Validated is set, or Reason and an approver-facing
// Message explain the rejection. Rejections are returned, never thrown.
type ConsumptionResult struct {
	OK        bool                            `json:"ok"`
	Validated *ValidatedOffPlatformDecisionV1 `json:"validated,omitempty"`
	Reason    TokenRejectionReason            `json:"reason,omitempty"`
	Message   string                          `json:"message,omitempty"`
}
