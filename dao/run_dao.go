// dao/run_dao.go
package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	clearance_errors "github.com/clearops/clearance/errors"
	logger "github.com/clearops/clearance/logging"
	"github.com/clearops/clearance/model"
)

type RunDAO struct {
	Driver neo4j.Driver
}

func NewRunDAO(driver neo4j.Driver) *RunDAO {
	dao := &RunDAO{Driver: driver}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint", zap.Error(err))
	}
	return dao
}

// EnsureUniqueConstraint ensures the unique constraint on the Run ID
func (dao *RunDAO) EnsureUniqueConstraint(ctx context.Context) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_run_id IF NOT EXISTS
        FOR (r:RUN) REQUIRE r.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create unique constraint: %w", err)
		}
		return nil, nil
	})
	return err
}

// CreateRun creates a new run node in Neo4j
func (dao *RunDAO) CreateRun(ctx context.Context, run model.Run) (string, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = model.RunDraft
	}
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		checkQuery := `
        MATCH (r:RUN {id: $id})
        RETURN r.id
        `
		checkResult, err := transaction.Run(checkQuery, map[string]interface{}{"id": run.ID})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, clearance_errors.ErrRunConflict
		}

		createQuery := `
            CREATE (r:RUN {id: $id})
            SET r += $props
            RETURN r.id as id
        `
		parameters := map[string]interface{}{
			"id": run.ID,
			"props": map[string]interface{}{
				"workspaceId":  run.WorkspaceID,
				"kind":         run.Kind,
				"status":       string(run.Status),
				"createdAtIso": now,
				"updatedAtIso": now,
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
	if err != nil {
		logger.Error("Failed to create run", zap.Error(err), zap.String("kind", run.Kind))
		return "", err
	}

	runID := fmt.Sprintf("%v", result)
	logger.Info("Run created successfully", zap.String("runID", runID))
	return runID, nil
}

// GetRun retrieves a run by its ID
func (dao *RunDAO) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:RUN {id: $id})
        RETURN r
        `
		records, err := transaction.Run(query, map[string]interface{}{"id": runID})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if records.Next() {
			node, _ := records.Record().Get("r")
			return mapToRun(node.(neo4j.Node).Props), nil
		}
		return nil, clearance_errors.ErrRunNotFound
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.Run), nil
}

// TransitionStatus moves a run between lifecycle statuses with the same
// optimistic status check the approval DAO uses.
func (dao *RunDAO) TransitionStatus(ctx context.Context, runID string, from, to model.RunStatus) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:RUN {id: $id, status: $from})
        SET r.status = $to, r.updatedAtIso = $now
        RETURN r.id as id
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":   runID,
			"from": string(from),
			"to":   string(to),
			"now":  time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, clearance_errors.ErrRunConflict
		}
		return nil, nil
	})
	if err != nil {
		logger.Error("Failed to transition run status",
			zap.Error(err),
			zap.String("runID", runID),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
		return err
	}

	logger.Info("Run status transitioned",
		zap.String("runID", runID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return nil
}

func mapToRun(props map[string]interface{}) *model.Run {
	return &model.Run{
		ID:           getStringProp(props, "id"),
		WorkspaceID:  getStringProp(props, "workspaceId"),
		Kind:         getStringProp(props, "kind"),
		Status:       model.RunStatus(getStringProp(props, "status")),
		CreatedAtIso: getStringProp(props, "createdAtIso"),
		UpdatedAtIso: getStringProp(props, "updatedAtIso"),
	}
}
