package evidence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearops/clearance/evidence"
	"github.com/clearops/clearance/hashing"
	"github.com/clearops/clearance/model"
)

func buildChain(t *testing.T, kinds []model.ApprovalAuditEventKind) []model.EvidenceEntryV1 {
	t.Helper()
	var entries []model.EvidenceEntryV1
	var previous *model.EvidenceEntryV1
	for i, kind := range kinds {
		entry, err := evidence.BuildAuditEntry(hashing.SHA256Hex, evidence.EntryInput{
			EvidenceID:    string(rune('a' + i)),
			ApprovalID:    "approval-1",
			Kind:          kind,
			ActorUserID:   "alice",
			OccurredAtIso: "2026-02-01T10:00:00Z",
			PreviousEntry: previous,
		})
		require.NoError(t, err)
		entries = append(entries, entry)
		previous = &entries[len(entries)-1]
	}
	return entries
}

func TestBuildAuditEntry(t *testing.T) {
	t.Run("BuildAuditEntry_ChainHeadHasNoPreviousHash", func(t *testing.T) {
		entry, err := evidence.BuildAuditEntry(hashing.SHA256Hex, evidence.EntryInput{
			EvidenceID:    "ev-1",
			ApprovalID:    "approval-1",
			Kind:          model.EventApprovalOpened,
			ActorUserID:   "alice",
			OccurredAtIso: "2026-02-01T10:00:00Z",
		})
		require.NoError(t, err)

		assert.Empty(t, entry.PreviousHash)
		assert.Len(t, entry.HashSha256, 64)
		assert.Equal(t, "Approval opened by alice", entry.Summary)
	})

	t.Run("BuildAuditEntry_LinksToPredecessor", func(t *testing.T) {
		entries := buildChain(t, []model.ApprovalAuditEventKind{
			model.EventApprovalOpened,
			model.EventApprovalAssigned,
			model.EventDecisionRecorded,
		})

		assert.Equal(t, entries[0].HashSha256, entries[1].PreviousHash)
		assert.Equal(t, entries[1].HashSha256, entries[2].PreviousHash)
	})

	t.Run("BuildAuditEntry_HashesArePairwiseDistinct", func(t *testing.T) {
		entries := buildChain(t, []model.ApprovalAuditEventKind{
			model.EventApprovalOpened,
			model.EventApprovalAssigned,
			model.EventDecisionRecorded,
		})

		seen := map[string]bool{}
		for _, entry := range entries {
			assert.False(t, seen[entry.HashSha256])
			seen[entry.HashSha256] = true
		}
	})

	t.Run("BuildAuditEntry_UnknownKindRejected", func(t *testing.T) {
		_, err := evidence.BuildAuditEntry(hashing.SHA256Hex, evidence.EntryInput{
			EvidenceID:    "ev-1",
			ApprovalID:    "approval-1",
			Kind:          model.ApprovalAuditEventKind("approval_teleported"),
			ActorUserID:   "alice",
			OccurredAtIso: "2026-02-01T10:00:00Z",
		})
		assert.Error(t, err)
	})

	t.Run("BuildAuditEntry_SummaryFollowsKindTemplate", func(t *testing.T) {
		entry, err := evidence.BuildAuditEntry(hashing.SHA256Hex, evidence.EntryInput{
			EvidenceID:    "ev-1",
			ApprovalID:    "approval-1",
			Kind:          model.EventRollbackExecuted,
			ActorUserID:   "bob",
			OccurredAtIso: "2026-02-01T10:00:00Z",
		})
		require.NoError(t, err)
		assert.Equal(t, "Rollback executed by bob", entry.Summary)
	})
}

func TestIsApprovalAuditEventKind(t *testing.T) {
	t.Run("IsApprovalAuditEventKind_CanonicalKinds", func(t *testing.T) {
		assert.True(t, evidence.IsApprovalAuditEventKind(model.EventPolicyEvaluated))
		assert.True(t, evidence.IsApprovalAuditEventKind(model.EventApprovalExpired))
		assert.False(t, evidence.IsApprovalAuditEventKind("approval_teleported"))
	})
}

func TestVerifyChain(t *testing.T) {
	t.Run("VerifyChain_IntactChain", func(t *testing.T) {
		entries := buildChain(t, []model.ApprovalAuditEventKind{
			model.EventApprovalOpened,
			model.EventPolicyEvaluated,
			model.EventDecisionRecorded,
		})

		violations, err := evidence.VerifyChain(hashing.SHA256Hex, entries)
		require.NoError(t, err)
		assert.Empty(t, violations)
	})

	t.Run("VerifyChain_TamperedContentDetected", func(t *testing.T) {
		entries := buildChain(t, []model.ApprovalAuditEventKind{
			model.EventApprovalOpened,
			model.EventApprovalAssigned,
		})
		entries[0].ActorUserID = "mallory"

		violations, err := evidence.VerifyChain(hashing.SHA256Hex, entries)
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, 0, violations[0].Index)
	})

	t.Run("VerifyChain_BrokenLinkDetected", func(t *testing.T) {
		entries := buildChain(t, []model.ApprovalAuditEventKind{
			model.EventApprovalOpened,
			model.EventApprovalAssigned,
			model.EventDecisionRecorded,
		})
		// Rewrite the middle entry wholesale, hash included, so only the
		// successor's link breaks.
		replacement, err := evidence.BuildAuditEntry(hashing.SHA256Hex, evidence.EntryInput{
			EvidenceID:    "forged",
			ApprovalID:    "approval-1",
			Kind:          model.EventApprovalAssigned,
			ActorUserID:   "mallory",
			OccurredAtIso: "2026-02-01T10:30:00Z",
			PreviousEntry: &entries[0],
		})
		require.NoError(t, err)
		entries[1] = replacement

		violations, err := evidence.VerifyChain(hashing.SHA256Hex, entries)
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, 2, violations[0].Index)
	})

	t.Run("VerifyChain_HeadWithPreviousHashRejected", func(t *testing.T) {
		entries := buildChain(t, []model.ApprovalAuditEventKind{
			model.EventApprovalOpened,
			model.EventApprovalAssigned,
		})

		violations, err := evidence.VerifyChain(hashing.SHA256Hex, entries[1:])
		require.NoError(t, err)
		require.NotEmpty(t, violations)
		assert.Equal(t, 0, violations[0].Index)
	})

	t.Run("VerifyChain_EmptyChainIntact", func(t *testing.T) {
		violations, err := evidence.VerifyChain(hashing.SHA256Hex, nil)
		require.NoError(t, err)
		assert.Empty(t, violations)
	})
}
