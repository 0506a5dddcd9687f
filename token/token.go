// token/token.go
package token

import (
	"fmt"
	"time"

	"github.com/clearops/clearance/model"
)

// Rejection messages are phrased for the approver holding the link, not
// for operators.
const (
	msgAlreadyConsumed    = "This decision link has already been used."
	msgRevoked            = "This decision link has been revoked."
	msgExpired            = "This decision link has expired."
	msgWrongRecipient     = "This decision link was issued to a different person."
	msgActionNotPermitted = "This decision link does not permit that action."
	msgPayloadChanged     = "The approval changed after this link was issued. Review the latest version before deciding."
)

// ValidateConsumption checks a consumption attempt against the token.
// Checks run in strict order and short-circuit on the first failure:
// status, expiry, identity, permitted action, payload hash. The payload
// check is the TOCTOU guard: a token bound to a stale payload is
// rejected even when everything else is valid.
//
// This is a pure check. On success the caller feeds the validated
// decision into the normal pipeline and is responsible for atomically
// marking the token consumed.
func ValidateConsumption(tok model.OffPlatformDecisionTokenV1, attempt model.ConsumptionAttempt) (model.ConsumptionResult, error) {
	switch tok.Status {
	case model.TokenActive:
	case model.TokenConsumed:
		return reject(model.RejectAlreadyConsumed, msgAlreadyConsumed), nil
	case model.TokenRevoked:
		return reject(model.RejectRevoked, msgRevoked), nil
	case model.TokenExpired:
		return reject(model.RejectExpired, msgExpired), nil
	default:
		return model.ConsumptionResult{}, fmt.Errorf("unknown token status %q", tok.Status)
	}

	// The stored status may lag behind the clock; the expiry time wins.
	now, err := time.Parse(time.RFC3339, attempt.NowIso)
	if err != nil {
		return model.ConsumptionResult{}, fmt.Errorf("attempt time %q is not a valid RFC3339 timestamp: %w", attempt.NowIso, err)
	}
	expiresAt, err := time.Parse(time.RFC3339, tok.ExpiresAtIso)
	if err != nil {
		return model.ConsumptionResult{}, fmt.Errorf("token expiry %q is not a valid RFC3339 timestamp: %w", tok.ExpiresAtIso, err)
	}
	if !now.Before(expiresAt) {
		return reject(model.RejectExpired, msgExpired), nil
	}

	if attempt.AttemptedByUserID != tok.IssuedToUserID {
		return reject(model.RejectWrongRecipient, msgWrongRecipient), nil
	}

	permitted := false
	for _, action := range tok.PermittedActions {
		if action == attempt.AttemptedAction {
			permitted = true
			break
		}
	}
	if !permitted {
		return reject(model.RejectActionNotPermitted, msgActionNotPermitted), nil
	}

	if attempt.CurrentPayloadHash != tok.BoundPayloadHash {
		return reject(model.RejectPayloadChanged, msgPayloadChanged), nil
	}

	return model.ConsumptionResult{
		OK: true,
		Validated: &model.ValidatedOffPlatformDecisionV1{
			TokenID:         tok.TokenID,
			ApprovalID:      tok.ApprovalID,
			DecidedByUserID: attempt.AttemptedByUserID,
			Action:          attempt.AttemptedAction,
			PayloadHash:     attempt.CurrentPayloadHash,
			Rationale:       attempt.Rationale,
			ValidatedAtIso:  attempt.NowIso,
		},
	}, nil
}

func reject(reason model.TokenRejectionReason, message string) model.ConsumptionResult {
	return model.ConsumptionResult{OK: false, Reason: reason, Message: message}
}
