package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clearops/clearance/assembler"
	"github.com/clearops/clearance/audit"
	"github.com/clearops/clearance/dao"
	"github.com/clearops/clearance/escalation"
	"github.com/clearops/clearance/hashing"
	"github.com/clearops/clearance/lifecycle"
	logger "github.com/clearops/clearance/logging"
	"github.com/clearops/clearance/model"
	"github.com/clearops/clearance/snapshot"
	"github.com/clearops/clearance/util"
	helper_util "github.com/clearops/clearance/util/helper"
)

type IApprovalService interface {
	CreateRun(ctx context.Context, run model.Run, userID string) (*model.Run, error)
	TransitionRun(ctx context.Context, runID string, to model.RunStatus) error
	CreateApproval(ctx context.Context, approval model.Approval, userID string) (*model.Approval, error)
	GetApproval(ctx context.Context, approvalID string) (*model.Approval, error)
	ListApprovals(ctx context.Context, workspaceID string, limit, offset int) ([]*model.Approval, error)
	AssignApproval(ctx context.Context, approvalID string, approverUserIDs []string, userID string) error
	StartReview(ctx context.Context, approvalID string, userID string) error
	ReopenApproval(ctx context.Context, approvalID string, userID string) error
	RecordDecision(ctx context.Context, decision model.DecisionRecord) (*model.DecisionRecord, error)
	CaptureSnapshots(ctx context.Context, approvalID string, subjects []SnapshotSubject) (*model.SnapshotSet, error)
	VerifySnapshots(ctx context.Context, approvalID string, currentContents map[string]any) (*model.SnapshotSetVerification, error)
	GetApprovalContext(ctx context.Context, approvalID string, callerUserID string) (*model.ApprovalContextV1, error)
}

// SnapshotSubject is one piece of content an approval decision is made
// against.
type SnapshotSubject struct {
	Kind    string `json:"kind"`
	Label   string `json:"label"`
	Content any    `json:"content"`
}

// ApprovalService handles business logic for runs, approvals and
// decisions
type ApprovalService struct {
	runDAO          *dao.RunDAO
	approvalDAO     *dao.ApprovalDAO
	delegationDAO   *dao.DelegationDAO
	policySvc       IPolicyService
	auditSvc        audit.Service
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

// NewApprovalService creates a new instance of ApprovalService
func NewApprovalService(
	runDAO *dao.RunDAO,
	approvalDAO *dao.ApprovalDAO,
	delegationDAO *dao.DelegationDAO,
	policySvc IPolicyService,
	auditSvc audit.Service,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) *ApprovalService {
	service := &ApprovalService{
		runDAO:          runDAO,
		approvalDAO:     approvalDAO,
		delegationDAO:   delegationDAO,
		policySvc:       policySvc,
		auditSvc:        auditSvc,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	eventBus.Subscribe(util.TopicApprovalCreated, service.handleApprovalCreated)
	eventBus.Subscribe(util.TopicApprovalDecided, service.handleApprovalDecided)

	return service
}

func (s *ApprovalService) handleApprovalCreated(ctx context.Context, event util.Event) error {
	approval, ok := event.Payload.(model.Approval)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Info("Approval created event received", zap.String("approvalID", approval.ID))

	if err := s.notificationSvc.NotifyApprovalChange(ctx, "created", approval); err != nil {
		logger.Warn("Failed to send approval creation notification",
			zap.Error(err), zap.String("approvalID", approval.ID))
	}
	return nil
}

func (s *ApprovalService) handleApprovalDecided(ctx context.Context, event util.Event) error {
	decision, ok := event.Payload.(model.DecisionRecord)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Info("Approval decided event received",
		zap.String("approvalID", decision.ApprovalID),
		zap.String("decision", decision.Decision))

	if err := s.cacheService.DeleteApproval(ctx, decision.ApprovalID); err != nil {
		logger.Warn("Failed to invalidate approval cache",
			zap.Error(err), zap.String("approvalID", decision.ApprovalID))
	}
	return nil
}

// CreateRun registers a new run in its initial lifecycle status.
func (s *ApprovalService) CreateRun(ctx context.Context, run model.Run, userID string) (*model.Run, error) {
	runID, err := s.runDAO.CreateRun(ctx, run)
	if err != nil {
		logger.Error("Error creating run", zap.Error(err), zap.String("userID", userID))
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	run.ID = runID
	if run.Status == "" {
		run.Status = model.RunDraft
	}
	return &run, nil
}

// TransitionRun moves a run along its lifecycle. The transition table is
// checked before anything touches the store.
func (s *ApprovalService) TransitionRun(ctx context.Context, runID string, to model.RunStatus) error {
	run, err := s.runDAO.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if err := lifecycle.AssertValidRunTransition(run.Status, to); err != nil {
		return err
	}
	return s.runDAO.TransitionStatus(ctx, runID, run.Status, to)
}

// CreateApproval opens a new approval. When the approval gates a run,
// the run is parked in awaiting_approval first; an approval never
// attaches to a run that cannot wait for it.
func (s *ApprovalService) CreateApproval(ctx context.Context, approval model.Approval, userID string) (*model.Approval, error) {
	if approval.ID == "" {
		approval.ID = uuid.New().String()
	}
	approval.Status = model.ApprovalOpen
	if err := s.validationUtil.ValidateApproval(approval); err != nil {
		return nil, fmt.Errorf("invalid approval: %w", err)
	}

	if len(approval.EscalationChain) > 0 {
		normalized, err := escalation.NormalizeChain(approval.EscalationChain)
		if err != nil {
			return nil, fmt.Errorf("invalid escalation chain: %w", err)
		}
		approval.EscalationChain = normalized
	}

	if approval.RunID != "" {
		run, err := s.runDAO.GetRun(ctx, approval.RunID)
		if err != nil {
			return nil, err
		}
		if err := lifecycle.AssertValidRunTransition(run.Status, model.RunAwaitingApproval); err != nil {
			return nil, err
		}
		if err := s.runDAO.TransitionStatus(ctx, approval.RunID, run.Status, model.RunAwaitingApproval); err != nil {
			return nil, err
		}
	}

	approvalID, err := s.approvalDAO.CreateApproval(ctx, approval)
	if err != nil {
		logger.Error("Error creating approval", zap.Error(err), zap.String("userID", userID))
		return nil, fmt.Errorf("failed to create approval: %w", err)
	}
	approval.ID = approvalID

	if _, err := s.auditSvc.Append(ctx, audit.AppendInput{
		ApprovalID:  approvalID,
		Kind:        model.EventApprovalOpened,
		ActorUserID: approval.RequestedByUserID,
	}); err != nil {
		logger.Error("Failed to record approval_opened evidence",
			zap.Error(err), zap.String("approvalID", approvalID))
		return nil, err
	}

	if err := s.cacheService.SetApproval(ctx, approval); err != nil {
		logger.Warn("Failed to cache approval", zap.Error(err), zap.String("approvalID", approvalID))
	}

	s.eventBus.Publish(ctx, util.TopicApprovalCreated, approval)

	logger.Info("Approval created successfully",
		zap.String("approvalID", approvalID),
		zap.String("userID", userID))
	return &approval, nil
}

// GetApproval returns the approval, served from cache when possible.
func (s *ApprovalService) GetApproval(ctx context.Context, approvalID string) (*model.Approval, error) {
	cached, err := s.cacheService.GetApproval(ctx, approvalID)
	if err != nil {
		logger.Warn("Approval cache lookup failed",
			zap.Error(err), zap.String("approvalID", approvalID))
	} else if cached != nil {
		return cached, nil
	}

	approval, err := s.approvalDAO.GetApproval(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	if err := s.cacheService.SetApproval(ctx, *approval); err != nil {
		logger.Warn("Failed to cache approval", zap.Error(err), zap.String("approvalID", approvalID))
	}
	return approval, nil
}

func (s *ApprovalService) ListApprovals(ctx context.Context, workspaceID string, limit, offset int) ([]*model.Approval, error) {
	return s.approvalDAO.ListApprovals(ctx, workspaceID, limit, offset)
}

// AssignApproval moves an open approval to assigned and records who the
// approvers are.
func (s *ApprovalService) AssignApproval(ctx context.Context, approvalID string, approverUserIDs []string, userID string) error {
	approval, err := s.GetApproval(ctx, approvalID)
	if err != nil {
		return err
	}
	if err := lifecycle.AssertValidApprovalTransition(approval.Status, model.ApprovalAssigned); err != nil {
		return err
	}

	if err := s.approvalDAO.UpdateApprovers(ctx, approvalID, approverUserIDs); err != nil {
		return err
	}
	if err := s.approvalDAO.TransitionStatus(ctx, approvalID, approval.Status, model.ApprovalAssigned); err != nil {
		return err
	}

	if _, err := s.auditSvc.Append(ctx, audit.AppendInput{
		ApprovalID:  approvalID,
		Kind:        model.EventApprovalAssigned,
		ActorUserID: userID,
	}); err != nil {
		logger.Error("Failed to record approval_assigned evidence",
			zap.Error(err), zap.String("approvalID", approvalID))
		return err
	}

	if err := s.cacheService.DeleteApproval(ctx, approvalID); err != nil {
		logger.Warn("Failed to invalidate approval cache",
			zap.Error(err), zap.String("approvalID", approvalID))
	}

	approval.ApproverUserIDs = approverUserIDs
	approval.Status = model.ApprovalAssigned
	if err := s.notificationSvc.NotifyApprovalChange(ctx, "assigned", *approval); err != nil {
		logger.Warn("Failed to send approval assignment notification",
			zap.Error(err), zap.String("approvalID", approvalID))
	}
	return nil
}

// StartReview moves an assigned approval into under_review.
func (s *ApprovalService) StartReview(ctx context.Context, approvalID string, userID string) error {
	return s.transition(ctx, approvalID, model.ApprovalUnderReview, "", userID)
}

// ReopenApproval sends an assigned approval back to open, shedding its
// approvers.
func (s *ApprovalService) ReopenApproval(ctx context.Context, approvalID string, userID string) error {
	if err := s.transition(ctx, approvalID, model.ApprovalOpen, model.EventApprovalReopened, userID); err != nil {
		return err
	}
	return s.approvalDAO.UpdateApprovers(ctx, approvalID, nil)
}

func (s *ApprovalService) transition(ctx context.Context, approvalID string, to model.ApprovalStatus, kind model.ApprovalAuditEventKind, userID string) error {
	approval, err := s.GetApproval(ctx, approvalID)
	if err != nil {
		return err
	}
	if err := lifecycle.AssertValidApprovalTransition(approval.Status, to); err != nil {
		return err
	}
	if err := s.approvalDAO.TransitionStatus(ctx, approvalID, approval.Status, to); err != nil {
		return err
	}

	if kind != "" {
		if _, err := s.auditSvc.Append(ctx, audit.AppendInput{
			ApprovalID:  approvalID,
			Kind:        kind,
			ActorUserID: userID,
		}); err != nil {
			logger.Error("Failed to record lifecycle evidence",
				zap.Error(err),
				zap.String("approvalID", approvalID),
				zap.String("kind", string(kind)))
			return err
		}
	}

	if err := s.cacheService.DeleteApproval(ctx, approvalID); err != nil {
		logger.Warn("Failed to invalidate approval cache",
			zap.Error(err), zap.String("approvalID", approvalID))
	}
	return nil
}

// RecordDecision finalizes an approval. The transition table rejects a
// decision on anything but an under_review approval, the evidence chain
// gets the decision entry, and the gated run resumes or stops.
func (s *ApprovalService) RecordDecision(ctx context.Context, decision model.DecisionRecord) (*model.DecisionRecord, error) {
	if err := s.validationUtil.ValidateDecision(decision); err != nil {
		return nil, fmt.Errorf("invalid decision: %w", err)
	}

	approval, err := s.GetApproval(ctx, decision.ApprovalID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.AssertValidApprovalTransition(approval.Status, model.ApprovalDecided); err != nil {
		return nil, err
	}

	if err := s.approvalDAO.TransitionStatus(ctx, decision.ApprovalID, approval.Status, model.ApprovalDecided); err != nil {
		return nil, err
	}

	if decision.DecisionID == "" {
		decision.DecisionID = uuid.New().String()
	}
	decision.DecidedAtIso = time.Now().UTC().Format(time.RFC3339)
	if err := s.approvalDAO.SaveDecision(ctx, decision); err != nil {
		return nil, err
	}

	kind := model.EventDecisionRecorded
	if decision.Decision == "changes_requested" {
		kind = model.EventChangesRequested
	}
	if _, err := s.auditSvc.Append(ctx, audit.AppendInput{
		ApprovalID:  decision.ApprovalID,
		Kind:        kind,
		ActorUserID: decision.DecidedByUserID,
	}); err != nil {
		logger.Error("Failed to record decision evidence",
			zap.Error(err), zap.String("approvalID", decision.ApprovalID))
		return nil, err
	}

	if approval.RunID != "" {
		s.resumeRun(ctx, approval.RunID, decision.Decision)
	}

	s.eventBus.Publish(ctx, util.TopicApprovalDecided, decision)

	approval.Status = model.ApprovalDecided
	if err := s.notificationSvc.NotifyApprovalChange(ctx, "decided", *approval); err != nil {
		logger.Warn("Failed to send decision notification",
			zap.Error(err), zap.String("approvalID", decision.ApprovalID))
	}

	logger.Info("Decision recorded",
		zap.String("approvalID", decision.ApprovalID),
		zap.String("decision", decision.Decision))
	return &decision, nil
}

// resumeRun unblocks or stops the gated run once its approval is
// decided. A run someone already cancelled is left alone.
func (s *ApprovalService) resumeRun(ctx context.Context, runID string, decision string) {
	to := model.RunRunning
	if decision == "rejected" {
		to = model.RunCancelled
	}
	if err := s.runDAO.TransitionStatus(ctx, runID, model.RunAwaitingApproval, to); err != nil {
		logger.Warn("Failed to move run out of awaiting_approval",
			zap.Error(err),
			zap.String("runID", runID),
			zap.String("decision", decision))
	}
}

// CaptureSnapshots fingerprints the subjects an approval decision is
// made against and binds the approval to them.
func (s *ApprovalService) CaptureSnapshots(ctx context.Context, approvalID string, subjects []SnapshotSubject) (*model.SnapshotSet, error) {
	if _, err := s.GetApproval(ctx, approvalID); err != nil {
		return nil, err
	}

	capturedAt := time.Now().UTC().Format(time.RFC3339)
	bindings := make([]model.SnapshotBinding, 0, len(subjects))
	for _, subject := range subjects {
		binding, err := snapshot.CreateBinding(hashing.SHA256Hex, subject.Content, subject.Kind, subject.Label, capturedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to capture snapshot of %q: %w", subject.Label, err)
		}
		bindings = append(bindings, binding)
	}

	set := snapshot.CreateSnapshotSet(hashing.SHA256Hex, bindings)
	if err := s.approvalDAO.SaveSnapshotSet(ctx, approvalID, set); err != nil {
		return nil, err
	}
	if err := s.cacheService.DeleteApproval(ctx, approvalID); err != nil {
		logger.Warn("Failed to invalidate approval cache",
			zap.Error(err), zap.String("approvalID", approvalID))
	}

	logger.Info("Snapshot set captured",
		zap.String("approvalID", approvalID),
		zap.Int("subjects", len(bindings)),
		zap.String("compoundHash", set.CompoundHash))
	return &set, nil
}

// VerifySnapshots re-checks the stored snapshot set against the current
// subject contents and records the drift verdict.
func (s *ApprovalService) VerifySnapshots(ctx context.Context, approvalID string, currentContents map[string]any) (*model.SnapshotSetVerification, error) {
	set, _, err := s.approvalDAO.GetSnapshotState(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, fmt.Errorf("approval %s has no captured snapshot set", approvalID)
	}

	verifiedAt := time.Now().UTC().Format(time.RFC3339)
	verification, err := snapshot.VerifySnapshotSet(hashing.SHA256Hex, *set, currentContents, verifiedAt)
	if err != nil {
		return nil, err
	}
	if err := s.approvalDAO.SaveSnapshotVerification(ctx, approvalID, verification); err != nil {
		return nil, err
	}

	if !verification.AllVerified {
		logger.Warn("Snapshot drift detected", zap.String("approvalID", approvalID))
	}
	return &verification, nil
}

// GetApprovalContext assembles the full decision context for one
// approval: lifecycle, policy evaluation, evidence-backed counts, the
// caller's delegations and the escalation state, loaded concurrently.
func (s *ApprovalService) GetApprovalContext(ctx context.Context, approvalID string, callerUserID string) (*model.ApprovalContextV1, error) {
	approval, err := s.GetApproval(ctx, approvalID)
	if err != nil {
		return nil, err
	}

	var (
		evaluation   *model.PolicySetEvaluation
		decision     *model.DecisionRecord
		grants       []model.DelegationGrantV1
		verification *model.SnapshotSetVerification
	)
	nowIso := time.Now().UTC().Format(time.RFC3339)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := s.auditSvc.ListEntries(gctx, approvalID)
		if err != nil {
			return fmt.Errorf("failed to load evidence entries: %w", err)
		}
		decisive := 0
		for _, entry := range entries {
			switch entry.Category {
			case model.EventPolicyEvaluated, model.EventDecisionRecorded, model.EventChangesRequested:
				decisive++
			}
		}
		evaluation, err = s.policySvc.Evaluate(gctx, approval.WorkspaceID, model.DecisionContext{
			WorkspaceID:           approval.WorkspaceID,
			RiskLevel:             approval.RiskLevel,
			RequestedByUserID:     approval.RequestedByUserID,
			ApproverUserIDs:       approval.ApproverUserIDs,
			EvidenceCount:         len(entries),
			DecisiveEvidenceCount: decisive,
			NowIso:                nowIso,
		}, approval.DeadlineAtIso)
		return err
	})
	g.Go(func() error {
		var err error
		decision, err = s.approvalDAO.GetDecision(gctx, approvalID)
		return err
	})
	g.Go(func() error {
		var err error
		grants, err = s.delegationDAO.ListGrantsForDelegate(gctx, callerUserID)
		return err
	})
	g.Go(func() error {
		var err error
		_, verification, err = s.approvalDAO.GetSnapshotState(gctx, approvalID)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("Failed to assemble approval context",
			zap.Error(err), zap.String("approvalID", approvalID))
		return nil, err
	}

	elapsedHours := 0.0
	if createdAt, err := helper_util.ParseTime(approval.CreatedAtIso); err == nil {
		elapsedHours = time.Since(createdAt).Hours()
	}

	assembled, err := assembler.AssembleContext(assembler.Input{
		ApprovalID:           approvalID,
		LifecycleStatus:      approval.Status,
		SnapshotVerification: verification,
		PolicyEvaluation:     evaluation,
		DecisionRecord:       decision,
		Delegations:          grants,
		DelegationContext: model.DelegationScopeContext{
			WorkspaceID: approval.WorkspaceID,
			RiskLevel:   approval.RiskLevel,
			SubjectKind: approval.SubjectKind,
		},
		EscalationChain: approval.EscalationChain,
		ElapsedHours:    elapsedHours,
		NowIso:          nowIso,
	})
	if err != nil {
		return nil, err
	}
	return &assembled, nil
}
