// dao/approval_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	clearance_errors "github.com/clearops/clearance/errors"
	logger "github.com/clearops/clearance/logging"
	"github.com/clearops/clearance/model"
)

type ApprovalDAO struct {
	Driver neo4j.Driver
}

func NewApprovalDAO(driver neo4j.Driver) *ApprovalDAO {
	dao := &ApprovalDAO{Driver: driver}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint", zap.Error(err))
	}
	return dao
}

// EnsureUniqueConstraint ensures the unique constraint on the Approval ID
func (dao *ApprovalDAO) EnsureUniqueConstraint(ctx context.Context) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_approval_id IF NOT EXISTS
        FOR (a:APPROVAL) REQUIRE a.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create unique constraint: %w", err)
		}
		return nil, nil
	})
	return err
}

// CreateApproval creates a new approval node in Neo4j
func (dao *ApprovalDAO) CreateApproval(ctx context.Context, approval model.Approval) (string, error) {
	start := time.Now()
	logger.Info("Creating new approval", zap.String("title", approval.Title))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if approval.ID == "" {
		approval.ID = uuid.New().String()
	}
	if approval.Status == "" {
		approval.Status = model.ApprovalOpen
	}
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		checkQuery := `
        MATCH (a:APPROVAL {id: $id})
        RETURN a.id
        `
		checkResult, err := transaction.Run(checkQuery, map[string]interface{}{"id": approval.ID})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, clearance_errors.ErrApprovalConflict
		}

		createQuery := `
            CREATE (a:APPROVAL {id: $id})
            SET a += $props
            RETURN a.id as id
        `
		approversJSON, _ := json.Marshal(approval.ApproverUserIDs)
		escalationJSON, _ := json.Marshal(approval.EscalationChain)

		parameters := map[string]interface{}{
			"id": approval.ID,
			"props": map[string]interface{}{
				"runId":             approval.RunID,
				"workspaceId":       approval.WorkspaceID,
				"title":             approval.Title,
				"subjectKind":       approval.SubjectKind,
				"riskLevel":         string(approval.RiskLevel),
				"status":            string(approval.Status),
				"requestedByUserId": approval.RequestedByUserID,
				"approverUserIds":   string(approversJSON),
				"deadlineAtIso":     approval.DeadlineAtIso,
				"escalationChain":   string(escalationJSON),
				"createdAtIso":      now,
				"updatedAtIso":      now,
			},
		}
		createResult, err := transaction.Run(createQuery, parameters)
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if createResult.Next() {
			id, found := createResult.Record().Get("id")
			if !found {
				return nil, clearance_errors.ErrInternalServer
			}
			return id, nil
		}
		return nil, clearance_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create approval",
			zap.Error(err),
			zap.String("title", approval.Title),
			zap.Duration("duration", duration))
		return "", err
	}

	approvalID := fmt.Sprintf("%v", result)
	logger.Info("Approval created successfully",
		zap.String("approvalID", approvalID),
		zap.Duration("duration", duration))
	return approvalID, nil
}

// GetApproval retrieves an approval by its ID
func (dao *ApprovalDAO) GetApproval(ctx context.Context, approvalID string) (*model.Approval, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (a:APPROVAL {id: $id})
        RETURN a
        `
		records, err := transaction.Run(query, map[string]interface{}{"id": approvalID})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if records.Next() {
			node, _ := records.Record().Get("a")
			return mapToApproval(node.(neo4j.Node).Props)
		}
		return nil, clearance_errors.ErrApprovalNotFound
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.Approval), nil
}

// TransitionStatus moves an approval between lifecycle statuses with an
// optimistic status check: the update only applies while the stored
// status still equals the expected one, so two concurrent transitions
// cannot both win.
func (dao *ApprovalDAO) TransitionStatus(ctx context.Context, approvalID string, from, to model.ApprovalStatus) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (a:APPROVAL {id: $id, status: $from})
        SET a.status = $to, a.updatedAtIso = $now
        RETURN a.id as id
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":   approvalID,
			"from": string(from),
			"to":   string(to),
			"now":  time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, clearance_errors.ErrApprovalConflict
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to transition approval status",
			zap.Error(err),
			zap.String("approvalID", approvalID),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
		return err
	}

	logger.Info("Approval status transitioned",
		zap.String("approvalID", approvalID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return nil
}

// ListApprovals retrieves approvals for a workspace with pagination
func (dao *ApprovalDAO) ListApprovals(ctx context.Context, workspaceID string, limit, offset int) ([]*model.Approval, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (a:APPROVAL {workspaceId: $workspaceId})
        RETURN a
        ORDER BY a.createdAtIso DESC
        SKIP $offset LIMIT $limit
        `
		records, err := transaction.Run(query, map[string]interface{}{
			"workspaceId": workspaceID,
			"offset":      offset,
			"limit":       limit,
		})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}

		var approvals []*model.Approval
		for records.Next() {
			node, _ := records.Record().Get("a")
			approval, err := mapToApproval(node.(neo4j.Node).Props)
			if err != nil {
				return nil, err
			}
			approvals = append(approvals, approval)
		}
		return approvals, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*model.Approval), nil
}

func mapToApproval(props map[string]interface{}) (*model.Approval, error) {
	approval := &model.Approval{
		ID:                getStringProp(props, "id"),
		RunID:             getStringProp(props, "runId"),
		WorkspaceID:       getStringProp(props, "workspaceId"),
		Title:             getStringProp(props, "title"),
		SubjectKind:       getStringProp(props, "subjectKind"),
		RiskLevel:         model.RiskLevel(getStringProp(props, "riskLevel")),
		Status:            model.ApprovalStatus(getStringProp(props, "status")),
		RequestedByUserID: getStringProp(props, "requestedByUserId"),
		DeadlineAtIso:     getStringProp(props, "deadlineAtIso"),
		CreatedAtIso:      getStringProp(props, "createdAtIso"),
		UpdatedAtIso:      getStringProp(props, "updatedAtIso"),
	}

	if raw := getStringProp(props, "approverUserIds"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &approval.ApproverUserIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal approver user ids: %w", err)
		}
	}
	if raw := getStringProp(props, "escalationChain"); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &approval.EscalationChain); err != nil {
			return nil, fmt.Errorf("failed to unmarshal escalation chain: %w", err)
		}
	}
	return approval, nil
}

func getStringProp(props map[string]interface{}, key string) string {
	if value, ok := props[key].(string); ok {
		return value
	}
	return ""
}

// UpdateApprovers replaces the approver set on an approval.
func (dao *ApprovalDAO) UpdateApprovers(ctx context.Context, approvalID string, approverUserIDs []string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	approversJSON, err := json.Marshal(approverUserIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal approver user ids: %w", err)
	}

	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (a:APPROVAL {id: $id})
        SET a.approverUserIds = $approvers, a.updatedAtIso = $now
        RETURN a.id as id
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":        approvalID,
			"approvers": string(approversJSON),
			"now":       time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, clearance_errors.ErrApprovalNotFound
		}
		return nil, nil
	})
	return err
}

// SaveDecision attaches the decision record to its approval. An approval
// carries at most one decision.
func (dao *ApprovalDAO) SaveDecision(ctx context.Context, decision model.DecisionRecord) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (a:APPROVAL {id: $approvalId})
        WHERE NOT (a)-[:DECIDED_BY]->(:DECISION)
        CREATE (d:DECISION {id: $id})
        SET d += $props
        CREATE (a)-[:DECIDED_BY]->(d)
        RETURN d.id as id
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"approvalId": decision.ApprovalID,
			"id":         decision.DecisionID,
			"props": map[string]interface{}{
				"approvalId":      decision.ApprovalID,
				"decidedByUserId": decision.DecidedByUserID,
				"decision":        decision.Decision,
				"rationale":       decision.Rationale,
				"decidedAtIso":    decision.DecidedAtIso,
			},
		})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, clearance_errors.ErrApprovalConflict
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to save decision",
			zap.Error(err),
			zap.String("approvalID", decision.ApprovalID))
		return err
	}
	return nil
}

// GetDecision returns the decision for an approval, or nil while the
// approval is undecided.
func (dao *ApprovalDAO) GetDecision(ctx context.Context, approvalID string) (*model.DecisionRecord, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (:APPROVAL {id: $approvalId})-[:DECIDED_BY]->(d:DECISION)
        RETURN d
        `
		records, err := transaction.Run(query, map[string]interface{}{"approvalId": approvalID})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if records.Next() {
			node, _ := records.Record().Get("d")
			props := node.(neo4j.Node).Props
			return &model.DecisionRecord{
				DecisionID:      getStringProp(props, "id"),
				ApprovalID:      getStringProp(props, "approvalId"),
				DecidedByUserID: getStringProp(props, "decidedByUserId"),
				Decision:        getStringProp(props, "decision"),
				Rationale:       getStringProp(props, "rationale"),
				DecidedAtIso:    getStringProp(props, "decidedAtIso"),
			}, nil
		}
		return (*model.DecisionRecord)(nil), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.DecisionRecord), nil
}

// SaveSnapshotSet stores the captured snapshot set for an approval.
func (dao *ApprovalDAO) SaveSnapshotSet(ctx context.Context, approvalID string, set model.SnapshotSet) error {
	setJSON, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot set: %w", err)
	}
	return dao.setProp(ctx, approvalID, "snapshotSet", string(setJSON))
}

// SaveSnapshotVerification stores the latest drift check result.
func (dao *ApprovalDAO) SaveSnapshotVerification(ctx context.Context, approvalID string, verification model.SnapshotSetVerification) error {
	verificationJSON, err := json.Marshal(verification)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot verification: %w", err)
	}
	return dao.setProp(ctx, approvalID, "snapshotVerification", string(verificationJSON))
}

// GetSnapshotState returns the stored snapshot set and the latest
// verification; either may be nil when never captured or checked.
func (dao *ApprovalDAO) GetSnapshotState(ctx context.Context, approvalID string) (*model.SnapshotSet, *model.SnapshotSetVerification, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (a:APPROVAL {id: $id})
        RETURN a.snapshotSet as snapshotSet, a.snapshotVerification as snapshotVerification
        `
		records, err := transaction.Run(query, map[string]interface{}{"id": approvalID})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if records.Next() {
			record := records.Record()
			setRaw, _ := record.Get("snapshotSet")
			verificationRaw, _ := record.Get("snapshotVerification")
			return [2]interface{}{setRaw, verificationRaw}, nil
		}
		return nil, clearance_errors.ErrApprovalNotFound
	})
	if err != nil {
		return nil, nil, err
	}

	raw := result.([2]interface{})
	var set *model.SnapshotSet
	if s, ok := raw[0].(string); ok && s != "" {
		set = &model.SnapshotSet{}
		if err := json.Unmarshal([]byte(s), set); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal snapshot set: %w", err)
		}
	}
	var verification *model.SnapshotSetVerification
	if s, ok := raw[1].(string); ok && s != "" {
		verification = &model.SnapshotSetVerification{}
		if err := json.Unmarshal([]byte(s), verification); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal snapshot verification: %w", err)
		}
	}
	return set, verification, nil
}

func (dao *ApprovalDAO) setProp(ctx context.Context, approvalID, key, value string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := fmt.Sprintf(`
        MATCH (a:APPROVAL {id: $id})
        SET a.%s = $value, a.updatedAtIso = $now
        RETURN a.id as id
        `, key)
		result, err := transaction.Run(query, map[string]interface{}{
			"id":    approvalID,
			"value": value,
			"now":   time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, clearance_errors.ErrApprovalNotFound
		}
		return nil, nil
	})
	return err
}
