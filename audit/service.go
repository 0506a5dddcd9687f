// audit/service.go
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clearops/clearance/evidence"
	"github.com/clearops/clearance/hashing"
	"github.com/clearops/clearance/model"
)

// AppendInput names the event to record. The service fills in evidence
// id, timestamp and chain linkage.
type AppendInput struct {
	ApprovalID  string
	Kind        model.ApprovalAuditEventKind
	ActorUserID string
	Links       []string
}

type Service interface {
	Append(ctx context.Context, input AppendInput) (model.EvidenceEntryV1, error)
	ListEntries(ctx context.Context, approvalID string) ([]model.EvidenceEntryV1, error)
	CountEntries(ctx context.Context, approvalID string) (int, error)
	VerifyChain(ctx context.Context, approvalID string) ([]evidence.ChainViolation, error)
}

type service struct {
	repo   Repository
	hasher hashing.Hasher

	// Appends must be serialized per approval so previousHash is never
	// computed against a stale tail. One mutex per approval id.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(repo Repository, hasher hashing.Hasher) Service {
	return &service{
		repo:   repo,
		hasher: hasher,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *service) approvalLock(approvalID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[approvalID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[approvalID] = lock
	}
	return lock
}

// Append builds the next chain entry for an approval and persists it.
// The per-approval lock is the single-writer guarantee: the tail read
// and the append happen under the same critical section.
func (s *service) Append(ctx context.Context, input AppendInput) (model.EvidenceEntryV1, error) {
	lock := s.approvalLock(input.ApprovalID)
	lock.Lock()
	defer lock.Unlock()

	previous, err := s.repo.LatestEntry(ctx, input.ApprovalID)
	if err != nil {
		return model.EvidenceEntryV1{}, err
	}

	entry, err := evidence.BuildAuditEntry(s.hasher, evidence.EntryInput{
		EvidenceID:    uuid.New().String(),
		ApprovalID:    input.ApprovalID,
		Kind:          input.Kind,
		ActorUserID:   input.ActorUserID,
		Links:         input.Links,
		OccurredAtIso: time.Now().UTC().Format(time.RFC3339Nano),
		PreviousEntry: previous,
	})
	if err != nil {
		return model.EvidenceEntryV1{}, err
	}

	if err := s.repo.AppendEntry(ctx, entry); err != nil {
		return model.EvidenceEntryV1{}, err
	}
	return entry, nil
}

func (s *service) ListEntries(ctx context.Context, approvalID string) ([]model.EvidenceEntryV1, error) {
	return s.repo.ListEntries(ctx, approvalID)
}

func (s *service) CountEntries(ctx context.Context, approvalID string) (int, error) {
	return s.repo.CountEntries(ctx, approvalID)
}

// VerifyChain loads an approval's full ledger and re-checks every hash
// and link.
func (s *service) VerifyChain(ctx context.Context, approvalID string) ([]evidence.ChainViolation, error) {
	entries, err := s.repo.ListEntries(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	return evidence.VerifyChain(s.hasher, entries)
}
