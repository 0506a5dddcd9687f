// delegation/grant.go
package delegation

import (
	"time"

	clearance_errors "github.com/clearops/clearance/errors"
	"github.com/clearops/clearance/model"
)

// GrantInput is the raw material for a delegation grant.
type GrantInput struct {
	GrantID         string                `json:"grantId,omitempty"`
	DelegatorUserID string                `json:"delegatorUserId"`
	DelegateUserID  string                `json:"delegateUserId"`
	Reason          string                `json:"reason"`
	StartsAtIso     string                `json:"startsAtIso"`
	ExpiresAtIso    string                `json:"expiresAtIso"`
	Scope           model.DelegationScope `json:"scope,omitempty"`
}

// CreateGrant validates and constructs a delegation grant. Structurally
// invalid grants are rejected with a DelegationValidationError before
// they can be stored.
func CreateGrant(input GrantInput) (model.DelegationGrantV1, error) {
	if input.GrantID == "" {
		return model.DelegationGrantV1{}, &clearance_errors.DelegationValidationError{
			Field: "grantId", Message: "grant id cannot be empty",
		}
	}
	if input.DelegatorUserID == "" || input.DelegateUserID == "" {
		return model.DelegationGrantV1{}, &clearance_errors.DelegationValidationError{
			Field: "delegatorUserId", Value: input.DelegatorUserID,
			Message: "delegator and delegate must both be set",
		}
	}
	if input.DelegatorUserID == input.DelegateUserID {
		return model.DelegationGrantV1{}, &clearance_errors.DelegationValidationError{
			Field: "delegateUserId", Value: input.DelegateUserID,
			Message: "self-delegation is forbidden",
		}
	}
	if input.Reason == "" {
		return model.DelegationGrantV1{}, &clearance_errors.DelegationValidationError{
			Field: "reason", Message: "reason cannot be empty",
		}
	}

	startsAt, err := time.Parse(time.RFC3339, input.StartsAtIso)
	if err != nil {
		return model.DelegationGrantV1{}, &clearance_errors.DelegationValidationError{
			Field: "startsAtIso", Value: input.StartsAtIso,
			Message: "start time is not a valid RFC3339 timestamp",
		}
	}
	expiresAt, err := time.Parse(time.RFC3339, input.ExpiresAtIso)
	if err != nil {
		return model.DelegationGrantV1{}, &clearance_errors.DelegationValidationError{
			Field: "expiresAtIso", Value: input.ExpiresAtIso,
			Message: "expiry time is not a valid RFC3339 timestamp",
		}
	}
	if !startsAt.Before(expiresAt) {
		return model.DelegationGrantV1{}, &clearance_errors.DelegationValidationError{
			Field: "expiresAtIso", Value: input.ExpiresAtIso,
			Message: "expiry must be after start",
		}
	}

	return model.DelegationGrantV1{
		GrantID:         input.GrantID,
		DelegatorUserID: input.DelegatorUserID,
		DelegateUserID:  input.DelegateUserID,
		Reason:          input.Reason,
		StartsAtIso:     input.StartsAtIso,
		ExpiresAtIso:    input.ExpiresAtIso,
		Scope:           input.Scope,
	}, nil
}

// RevokeGrant returns a new grant value carrying the revocation.
// Revoking is allowed exactly once and is irreversible.
func RevokeGrant(grant model.DelegationGrantV1, revokedByUserID, revokedAtIso, reason string) (model.DelegationGrantV1, error) {
	if grant.Revocation != nil {
		return model.DelegationGrantV1{}, &clearance_errors.DelegationValidationError{
			Field: "revocation", Value: grant.GrantID,
			Message: "grant is already revoked",
		}
	}
	if _, err := time.Parse(time.RFC3339, revokedAtIso); err != nil {
		return model.DelegationGrantV1{}, &clearance_errors.DelegationValidationError{
			Field: "revokedAtIso", Value: revokedAtIso,
			Message: "revocation time is not a valid RFC3339 timestamp",
		}
	}

	revoked := grant
	revoked.Revocation = &model.DelegationRevocation{
		RevokedByUserID: revokedByUserID,
		RevokedAtIso:    revokedAtIso,
		Reason:          reason,
	}
	return revoked, nil
}

// GetStatus evaluates the grant's status at a point in time. Revocation
// wins unconditionally; the validity window is half-open: active at
// exactly startsAt, expired at exactly expiresAt.
func GetStatus(grant model.DelegationGrantV1, atIso string) (model.DelegationStatus, error) {
	if grant.Revocation != nil {
		return model.DelegationRevoked, nil
	}

	at, err := time.Parse(time.RFC3339, atIso)
	if err != nil {
		return "", &clearance_errors.DelegationValidationError{
			Field: "atIso", Value: atIso,
			Message: "status time is not a valid RFC3339 timestamp",
		}
	}
	startsAt, err := time.Parse(time.RFC3339, grant.StartsAtIso)
	if err != nil {
		return "", &clearance_errors.DelegationValidationError{
			Field: "startsAtIso", Value: grant.StartsAtIso,
			Message: "start time is not a valid RFC3339 timestamp",
		}
	}
	expiresAt, err := time.Parse(time.RFC3339, grant.ExpiresAtIso)
	if err != nil {
		return "", &clearance_errors.DelegationValidationError{
			Field: "expiresAtIso", Value: grant.ExpiresAtIso,
			Message: "expiry time is not a valid RFC3339 timestamp",
		}
	}

	if at.Before(startsAt) || !at.Before(expiresAt) {
		return model.DelegationExpired, nil
	}
	return model.DelegationActive, nil
}

// IsApplicable reports whether the grant's scope covers the given
// approval dimensions. Only dimensions the context supplies are checked;
// absent dimensions never constrain.
func IsApplicable(grant model.DelegationGrantV1, ctx model.DelegationScopeContext) bool {
	if ctx.WorkspaceID != "" && grant.Scope.WorkspaceID != "" && grant.Scope.WorkspaceID != ctx.WorkspaceID {
		return false
	}
	if ctx.RiskLevel != "" && grant.Scope.MaxRiskLevel != "" {
		if model.RiskRank(ctx.RiskLevel) > model.RiskRank(grant.Scope.MaxRiskLevel) {
			return false
		}
	}
	if ctx.SubjectKind != "" && len(grant.Scope.SubjectKinds) > 0 {
		allowed := false
		for _, kind := range grant.Scope.SubjectKinds {
			if kind == ctx.SubjectKind {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return true
}
