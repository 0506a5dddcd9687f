// model/snapshot.go
package model

// SnapshotStatus is the outcome of a drift check.
type SnapshotStatus string

const (
	SnapshotVerified SnapshotStatus = "verified"
	SnapshotDrifted  SnapshotStatus = "drifted"
)

// SnapshotBinding fingerprints the content of one subject at capture
// time. ContentHash is computed over the canonical JSON form of the
// content, so key order never affects the hash.
type SnapshotBinding struct {
	SubjectKind   string `json:"subjectKind"`
	SubjectLabel  string `json:"subjectLabel"`
	ContentHash   string `json:"contentHash"`
	CapturedAtIso string `json:"capturedAtIso"`
}

// SnapshotSet groups the bindings for one decision. Bindings are sorted
// by subject label and CompoundHash is independent of the order the
// bindings were supplied in.
type SnapshotSet struct {
	Bindings     []SnapshotBinding `json:"bindings"`
	CompoundHash string            `json:"compoundHash"`
}

// SnapshotVerificationResult is the drift check outcome for one subject.
// CurrentHash is set only when the subject drifted.
type SnapshotVerificationResult struct {
	SubjectLabel  string         `json:"subjectLabel"`
	Status        SnapshotStatus `json:"status"`
	CurrentHash   string         `json:"currentHash,omitempty"`
	VerifiedAtIso string         `json:"verifiedAtIso"`
}

// SnapshotSetVerification reports per-subject results for a whole set.
type SnapshotSetVerification struct {
	AllVerified   bool                         `json:"allVerified"`
	Results       []SnapshotVerificationResult `json:"results"`
	VerifiedAtIso string                       `json:"verifiedAtIso"`
}
