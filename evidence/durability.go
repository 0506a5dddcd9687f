// evidence/durability.go
package evidence

import (
	clearance_errors "github.com/clearops/clearance/errors"
	"github.com/clearops/clearance/model"
)

// DeletionRequest carries the runtime facts a deletion decision depends
// on. Everything else is structural and fixed at parse time.
type DeletionRequest struct {
	RetentionExpired bool
	LegalHoldActive  bool
}

// ParseDurabilityPolicy validates a durability policy configuration.
// Forensic retention must prohibit deletion, and any deletion mode other
// than prohibited requires legal-hold suspension support. These are
// structural invariants: a policy violating them cannot be constructed
// at all.
func ParseDurabilityPolicy(raw model.EvidenceDurabilityPolicyV1) (model.EvidenceDurabilityPolicyV1, error) {
	switch raw.RetentionClass {
	case model.RetentionOperational, model.RetentionCompliance, model.RetentionForensic:
	default:
		return model.EvidenceDurabilityPolicyV1{}, &clearance_errors.EvidenceDurabilityPolicyParseError{
			Field: "retentionClass", Value: string(raw.RetentionClass),
			Message: "retention class must be operational, compliance or forensic",
		}
	}

	switch raw.TamperEvidenceLevel {
	case model.TamperHashOnly, model.TamperChainHash, model.TamperSignedChain:
	default:
		return model.EvidenceDurabilityPolicyV1{}, &clearance_errors.EvidenceDurabilityPolicyParseError{
			Field: "tamperEvidenceLevel", Value: string(raw.TamperEvidenceLevel),
			Message: "tamper evidence level must be hash-only, chain-hash or signed-chain",
		}
	}

	switch raw.DeletionPolicy {
	case model.DeletionProhibited, model.DeletionAfterRetention, model.DeletionOnRequest:
	default:
		return model.EvidenceDurabilityPolicyV1{}, &clearance_errors.EvidenceDurabilityPolicyParseError{
			Field: "deletionPolicy", Value: string(raw.DeletionPolicy),
			Message: "deletion policy must be prohibited, after-retention or on-request",
		}
	}

	if raw.RetentionClass == model.RetentionForensic && raw.DeletionPolicy != model.DeletionProhibited {
		return model.EvidenceDurabilityPolicyV1{}, &clearance_errors.EvidenceDurabilityPolicyParseError{
			Field: "deletionPolicy", Value: string(raw.DeletionPolicy),
			Message: "forensic retention requires a prohibited deletion policy",
		}
	}

	if raw.DeletionPolicy != model.DeletionProhibited && !raw.LegalHoldSuspendsDeletion {
		return model.EvidenceDurabilityPolicyV1{}, &clearance_errors.EvidenceDurabilityPolicyParseError{
			Field: "legalHoldSuspendsDeletion", Value: "false",
			Message: "deletion-permitting policies must suspend deletion under legal hold",
		}
	}

	if raw.RetentionDays < 0 {
		return model.EvidenceDurabilityPolicyV1{}, &clearance_errors.EvidenceDurabilityPolicyParseError{
			Field: "retentionDays", Value: "",
			Message: "retention days cannot be negative",
		}
	}

	return raw, nil
}

// IsDeletionPermitted decides whether entries under this policy may be
// deleted right now. Deletion is refused when the policy prohibits it,
// when an active legal hold suspends it, or when retention has not yet
// expired.
func IsDeletionPermitted(policy model.EvidenceDurabilityPolicyV1, request DeletionRequest) bool {
	if policy.DeletionPolicy == model.DeletionProhibited {
		return false
	}
	if request.LegalHoldActive && policy.LegalHoldSuspendsDeletion {
		return false
	}
	if !request.RetentionExpired {
		return false
	}
	return true
}
