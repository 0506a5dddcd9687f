// evidence/chain.go
package evidence

import (
	"fmt"

	"github.com/clearops/clearance/hashing"
	"github.com/clearops/clearance/model"
)

// summaryTemplates maps each canonical event kind to its fixed summary.
// The %s slot takes the acting user.
var summaryTemplates = map[model.ApprovalAuditEventKind]string{
	model.EventApprovalOpened:   "Approval opened by %s",
	model.EventPolicyEvaluated:  "Policy set evaluated on behalf of %s",
	model.EventApprovalAssigned: "Approval assigned by %s",
	model.EventDecisionRecorded: "Decision recorded by %s",
	model.EventChangesRequested: "Changes requested by %s",
	model.EventApprovalReopened: "Approval reopened by %s",
	model.EventApprovalExecuted: "Approved change executed by %s",
	model.EventEffectsApplied:   "Effects applied on behalf of %s",
	model.EventRollbackExecuted: "Rollback executed by %s",
	model.EventApprovalExpired:  "Approval expired, noted by %s",
}

// IsApprovalAuditEventKind reports whether kind is one of the ten
// canonical approval audit event kinds.
func IsApprovalAuditEventKind(kind model.ApprovalAuditEventKind) bool {
	_, ok := summaryTemplates[kind]
	return ok
}

// EntryInput is everything needed to build one chain entry. When
// PreviousEntry is nil the entry is a chain head.
type EntryInput struct {
	EvidenceID    string
	ApprovalID    string
	Kind          model.ApprovalAuditEventKind
	ActorUserID   string
	Links         []string
	OccurredAtIso string
	PreviousEntry *model.EvidenceEntryV1
}

// BuildAuditEntry builds one immutable ledger entry. The entry's hash
// covers its own content; PreviousHash copies the predecessor's hash, so
// altering any earlier entry breaks the link for every entry after it.
func BuildAuditEntry(h hashing.Hasher, input EntryInput) (model.EvidenceEntryV1, error) {
	template, ok := summaryTemplates[input.Kind]
	if !ok {
		return model.EvidenceEntryV1{}, fmt.Errorf("unknown approval audit event kind %q", input.Kind)
	}

	entry := model.EvidenceEntryV1{
		EvidenceID:    input.EvidenceID,
		ApprovalID:    input.ApprovalID,
		Category:      input.Kind,
		Summary:       fmt.Sprintf(template, input.ActorUserID),
		ActorUserID:   input.ActorUserID,
		Links:         input.Links,
		OccurredAtIso: input.OccurredAtIso,
	}
	if input.PreviousEntry != nil {
		entry.PreviousHash = input.PreviousEntry.HashSha256
	}

	hash, err := entryContentHash(h, entry)
	if err != nil {
		return model.EvidenceEntryV1{}, err
	}
	entry.HashSha256 = hash
	return entry, nil
}

// entryContentHash hashes the entry content in canonical form. The hash
// field itself is excluded; the previous hash is included so the link is
// part of what the hash certifies.
func entryContentHash(h hashing.Hasher, entry model.EvidenceEntryV1) (string, error) {
	return hashing.HashCanonical(h, map[string]any{
		"evidenceId":    entry.EvidenceID,
		"approvalId":    entry.ApprovalID,
		"category":      string(entry.Category),
		"summary":       entry.Summary,
		"actorUserId":   entry.ActorUserID,
		"links":         entry.Links,
		"occurredAtIso": entry.OccurredAtIso,
		"previousHash":  entry.PreviousHash,
	})
}

// ChainViolation describes one broken entry found by VerifyChain.
type ChainViolation struct {
	Index      int    `json:"index"`
	EvidenceID string `json:"evidenceId"`
	Detail     string `json:"detail"`
}

// VerifyChain recomputes every entry hash and every link of a stored
// chain, in order. An empty violation list means the chain is intact.
func VerifyChain(h hashing.Hasher, entries []model.EvidenceEntryV1) ([]ChainViolation, error) {
	var violations []ChainViolation

	for i, entry := range entries {
		expected, err := entryContentHash(h, entry)
		if err != nil {
			return nil, err
		}
		if entry.HashSha256 != expected {
			violations = append(violations, ChainViolation{
				Index:      i,
				EvidenceID: entry.EvidenceID,
				Detail:     "entry content does not match its recorded hash",
			})
		}

		if i == 0 {
			if entry.PreviousHash != "" {
				violations = append(violations, ChainViolation{
					Index:      i,
					EvidenceID: entry.EvidenceID,
					Detail:     "chain head must not carry a previous hash",
				})
			}
			continue
		}
		if entry.PreviousHash != entries[i-1].HashSha256 {
			violations = append(violations, ChainViolation{
				Index:      i,
				EvidenceID: entry.EvidenceID,
				Detail:     "previous hash does not match the preceding entry",
			})
		}
	}

	return violations, nil
}
