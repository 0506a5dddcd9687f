// snapshot/binding.go
package snapshot

import (
	"github.com/clearops/clearance/hashing"
	"github.com/clearops/clearance/model"
)

// CreateBinding fingerprints content for one subject. The content is
// canonicalized before hashing, so two semantically identical objects
// bind to the same hash regardless of field order.
func CreateBinding(h hashing.Hasher, content any, subjectKind, subjectLabel, capturedAtIso string) (model.SnapshotBinding, error) {
	contentHash, err := hashing.HashCanonical(h, content)
	if err != nil {
		return model.SnapshotBinding{}, err
	}
	return model.SnapshotBinding{
		SubjectKind:   subjectKind,
		SubjectLabel:  subjectLabel,
		ContentHash:   contentHash,
		CapturedAtIso: capturedAtIso,
	}, nil
}

// VerifyBinding recomputes the content hash and reports drift. The
// stored binding is never modified.
func VerifyBinding(h hashing.Hasher, binding model.SnapshotBinding, currentContent any, verifiedAtIso string) (model.SnapshotVerificationResult, error) {
	currentHash, err := hashing.HashCanonical(h, currentContent)
	if err != nil {
		return model.SnapshotVerificationResult{}, err
	}

	result := model.SnapshotVerificationResult{
		SubjectLabel:  binding.SubjectLabel,
		Status:        model.SnapshotVerified,
		VerifiedAtIso: verifiedAtIso,
	}
	if currentHash != binding.ContentHash {
		result.Status = model.SnapshotDrifted
		result.CurrentHash = currentHash
	}
	return result, nil
}
