// snapshot/set.go
package snapshot

import (
	"sort"
	"strings"

	"github.com/clearops/clearance/hashing"
	"github.com/clearops/clearance/model"
)

// CreateSnapshotSet groups bindings for one decision. Bindings are
// sorted by subject label before the compound hash is computed, so the
// order the caller supplied them in never affects the result.
func CreateSnapshotSet(h hashing.Hasher, bindings []model.SnapshotBinding) model.SnapshotSet {
	sorted := make([]model.SnapshotBinding, len(bindings))
	copy(sorted, bindings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].SubjectLabel < sorted[j].SubjectLabel
	})

	var b strings.Builder
	for _, binding := range sorted {
		b.WriteString(binding.SubjectLabel)
		b.WriteString(":")
		b.WriteString(binding.ContentHash)
		b.WriteString("\n")
	}

	return model.SnapshotSet{
		Bindings:     sorted,
		CompoundHash: h(b.String()),
	}
}

// VerifySnapshotSet checks every binding of a set against the current
// contents, keyed by subject label. A subject missing from
// currentContents counts as drifted: content that can no longer be
// produced cannot be proven unchanged.
func VerifySnapshotSet(h hashing.Hasher, set model.SnapshotSet, currentContents map[string]any, verifiedAtIso string) (model.SnapshotSetVerification, error) {
	verification := model.SnapshotSetVerification{
		AllVerified:   true,
		Results:       make([]model.SnapshotVerificationResult, 0, len(set.Bindings)),
		VerifiedAtIso: verifiedAtIso,
	}

	for _, binding := range set.Bindings {
		content, present := currentContents[binding.SubjectLabel]
		if !present {
			verification.AllVerified = false
			verification.Results = append(verification.Results, model.SnapshotVerificationResult{
				SubjectLabel:  binding.SubjectLabel,
				Status:        model.SnapshotDrifted,
				VerifiedAtIso: verifiedAtIso,
			})
			continue
		}

		result, err := VerifyBinding(h, binding, content, verifiedAtIso)
		if err != nil {
			return model.SnapshotSetVerification{}, err
		}
		if result.Status != model.SnapshotVerified {
			verification.AllVerified = false
		}
		verification.Results = append(verification.Results, result)
	}

	return verification, nil
}
