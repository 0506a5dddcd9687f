package snapshot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearops/clearance/hashing"
	"github.com/clearops/clearance/model"
	"github.com/clearops/clearance/snapshot"
)

func mustBinding(t *testing.T, content any, kind, label string) model.SnapshotBinding {
	t.Helper()
	binding, err := snapshot.CreateBinding(hashing.SHA256Hex, content, kind, label, "2026-02-01T10:00:00Z")
	require.NoError(t, err)
	return binding
}

func TestCreateSnapshotSet(t *testing.T) {
	t.Run("CreateSnapshotSet_OrderIndependentCompoundHash", func(t *testing.T) {
		diff := mustBinding(t, map[string]any{"files": 2}, "diff", "change-1")
		config := mustBinding(t, map[string]any{"replicas": 3}, "config", "deploy-cfg")

		forward := snapshot.CreateSnapshotSet(hashing.SHA256Hex, []model.SnapshotBinding{diff, config})
		reversed := snapshot.CreateSnapshotSet(hashing.SHA256Hex, []model.SnapshotBinding{config, diff})

		assert.Equal(t, forward.CompoundHash, reversed.CompoundHash)
		require.Len(t, forward.Bindings, 2)
		assert.Equal(t, "change-1", forward.Bindings[0].SubjectLabel)
		assert.Equal(t, "deploy-cfg", forward.Bindings[1].SubjectLabel)
	})

	t.Run("CreateSnapshotSet_ContentChangesCompoundHash", func(t *testing.T) {
		before := snapshot.CreateSnapshotSet(hashing.SHA256Hex, []model.SnapshotBinding{
			mustBinding(t, map[string]any{"files": 2}, "diff", "change-1"),
		})
		after := snapshot.CreateSnapshotSet(hashing.SHA256Hex, []model.SnapshotBinding{
			mustBinding(t, map[string]any{"files": 3}, "diff", "change-1"),
		})

		assert.NotEqual(t, before.CompoundHash, after.CompoundHash)
	})
}

func TestVerifySnapshotSet(t *testing.T) {
	diffContent := map[string]any{"files": 2}
	configContent := map[string]any{"replicas": 3}
	set := snapshot.CreateSnapshotSet(hashing.SHA256Hex, []model.SnapshotBinding{
		mustBinding(t, diffContent, "diff", "change-1"),
		mustBinding(t, configContent, "config", "deploy-cfg"),
	})

	t.Run("VerifySnapshotSet_AllUnchanged", func(t *testing.T) {
		verification, err := snapshot.VerifySnapshotSet(hashing.SHA256Hex, set, map[string]any{
			"change-1":   diffContent,
			"deploy-cfg": configContent,
		}, "2026-02-01T12:00:00Z")
		require.NoError(t, err)

		assert.True(t, verification.AllVerified)
		require.Len(t, verification.Results, 2)
		for _, result := range verification.Results {
			assert.Equal(t, model.SnapshotVerified, result.Status)
		}
	})

	t.Run("VerifySnapshotSet_OneSubjectDrifted", func(t *testing.T) {
		verification, err := snapshot.VerifySnapshotSet(hashing.SHA256Hex, set, map[string]any{
			"change-1":   map[string]any{"files": 9},
			"deploy-cfg": configContent,
		}, "2026-02-01T12:00:00Z")
		require.NoError(t, err)

		assert.False(t, verification.AllVerified)
		require.Len(t, verification.Results, 2)
		assert.Equal(t, model.SnapshotDrifted, verification.Results[0].Status)
		assert.Equal(t, model.SnapshotVerified, verification.Results[1].Status)
	})

	t.Run("VerifySnapshotSet_MissingSubjectDrifted", func(t *testing.T) {
		verification, err := snapshot.VerifySnapshotSet(hashing.SHA256Hex, set, map[string]any{
			"change-1": diffContent,
		}, "2026-02-01T12:00:00Z")
		require.NoError(t, err)

		assert.False(t, verification.AllVerified)
		require.Len(t, verification.Results, 2)
		assert.Equal(t, model.SnapshotDrifted, verification.Results[1].Status)
		assert.Empty(t, verification.Results[1].CurrentHash)
	})
}
