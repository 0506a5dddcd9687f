package audit_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearops/clearance/audit"
	"github.com/clearops/clearance/hashing"
	"github.com/clearops/clearance/model"
)

// memoryRepository is an in-memory Repository for exercising the
// service's chaining logic without Elasticsearch.
type memoryRepository struct {
	mu      sync.Mutex
	entries map[string][]model.EvidenceEntryV1
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{entries: make(map[string][]model.EvidenceEntryV1)}
}

func (r *memoryRepository) AppendEntry(_ context.Context, entry model.EvidenceEntryV1) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ApprovalID] = append(r.entries[entry.ApprovalID], entry)
	return nil
}

func (r *memoryRepository) ListEntries(_ context.Context, approvalID string) ([]model.EvidenceEntryV1, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EvidenceEntryV1, len(r.entries[approvalID]))
	copy(out, r.entries[approvalID])
	return out, nil
}

func (r *memoryRepository) LatestEntry(_ context.Context, approvalID string) (*model.EvidenceEntryV1, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain := r.entries[approvalID]
	if len(chain) == 0 {
		return nil, nil
	}
	latest := chain[len(chain)-1]
	return &latest, nil
}

func (r *memoryRepository) CountEntries(_ context.Context, approvalID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries[approvalID]), nil
}

func TestAuditService(t *testing.T) {
	ctx := context.Background()

	t.Run("Append_ChainsEntriesInOrder", func(t *testing.T) {
		service := audit.NewService(newMemoryRepository(), hashing.SHA256Hex)

		first, err := service.Append(ctx, audit.AppendInput{
			ApprovalID: "approval-1", Kind: model.EventApprovalOpened, ActorUserID: "alice",
		})
		require.NoError(t, err)
		second, err := service.Append(ctx, audit.AppendInput{
			ApprovalID: "approval-1", Kind: model.EventApprovalAssigned, ActorUserID: "alice",
		})
		require.NoError(t, err)

		assert.Empty(t, first.PreviousHash)
		assert.Equal(t, first.HashSha256, second.PreviousHash)
	})

	t.Run("Append_SeparateApprovalsSeparateChains", func(t *testing.T) {
		service := audit.NewService(newMemoryRepository(), hashing.SHA256Hex)

		_, err := service.Append(ctx, audit.AppendInput{
			ApprovalID: "approval-1", Kind: model.EventApprovalOpened, ActorUserID: "alice",
		})
		require.NoError(t, err)
		other, err := service.Append(ctx, audit.AppendInput{
			ApprovalID: "approval-2", Kind: model.EventApprovalOpened, ActorUserID: "bob",
		})
		require.NoError(t, err)

		assert.Empty(t, other.PreviousHash)
	})

	t.Run("Append_UnknownKindRejected", func(t *testing.T) {
		service := audit.NewService(newMemoryRepository(), hashing.SHA256Hex)

		_, err := service.Append(ctx, audit.AppendInput{
			ApprovalID: "approval-1", Kind: "approval_teleported", ActorUserID: "alice",
		})
		assert.Error(t, err)
	})

	t.Run("Append_ConcurrentWritersKeepChainIntact", func(t *testing.T) {
		service := audit.NewService(newMemoryRepository(), hashing.SHA256Hex)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := service.Append(ctx, audit.AppendInput{
					ApprovalID: "approval-1", Kind: model.EventEffectsApplied, ActorUserID: "alice",
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		violations, err := service.VerifyChain(ctx, "approval-1")
		require.NoError(t, err)
		assert.Empty(t, violations)

		count, err := service.CountEntries(ctx, "approval-1")
		require.NoError(t, err)
		assert.Equal(t, 16, count)
	})

	t.Run("VerifyChain_DetectsTamperedRepositoryContent", func(t *testing.T) {
		repo := newMemoryRepository()
		service := audit.NewService(repo, hashing.SHA256Hex)

		_, err := service.Append(ctx, audit.AppendInput{
			ApprovalID: "approval-1", Kind: model.EventApprovalOpened, ActorUserID: "alice",
		})
		require.NoError(t, err)
		_, err = service.Append(ctx, audit.AppendInput{
			ApprovalID: "approval-1", Kind: model.EventDecisionRecorded, ActorUserID: "bob",
		})
		require.NoError(t, err)

		repo.entries["approval-1"][0].ActorUserID = "mallory"

		violations, err := service.VerifyChain(ctx, "approval-1")
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, 0, violations[0].Index)
	})

	t.Run("ListEntries_ReturnsAppendOrder", func(t *testing.T) {
		service := audit.NewService(newMemoryRepository(), hashing.SHA256Hex)

		kinds := []model.ApprovalAuditEventKind{
			model.EventApprovalOpened,
			model.EventPolicyEvaluated,
			model.EventApprovalAssigned,
		}
		for _, kind := range kinds {
			_, err := service.Append(ctx, audit.AppendInput{
				ApprovalID: "approval-1", Kind: kind, ActorUserID: "alice",
			})
			require.NoError(t, err)
		}

		entries, err := service.ListEntries(ctx, "approval-1")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		for i, kind := range kinds {
			assert.Equal(t, kind, entries[i].Category)
		}
	})
}
