// dao/delegation_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	clearance_errors "github.com/clearops/clearance/errors"
	logger "github.com/clearops/clearance/logging"
	"github.com/clearops/clearance/model"
)

type DelegationDAO struct {
	Driver neo4j.Driver
}

func NewDelegationDAO(driver neo4j.Driver) *DelegationDAO {
	dao := &DelegationDAO{Driver: driver}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint", zap.Error(err))
	}
	return dao
}

// EnsureUniqueConstraint ensures the unique constraint on the grant ID
func (dao *DelegationDAO) EnsureUniqueConstraint(ctx context.Context) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_delegation_grant_id IF NOT EXISTS
        FOR (g:DELEGATION_GRANT) REQUIRE g.id IS UNIQUE
        `
		if _, err := transaction.Run(query, nil); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// CreateGrant stores a validated delegation grant. The grant must come
// out of delegation.CreateGrant; the DAO does not re-validate.
func (dao *DelegationDAO) CreateGrant(ctx context.Context, grant model.DelegationGrantV1) (string, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		checkQuery := `
        MATCH (g:DELEGATION_GRANT {id: $id})
        RETURN g.id
        `
		checkResult, err := transaction.Run(checkQuery, map[string]interface{}{"id": grant.GrantID})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, clearance_errors.ErrGrantConflict
		}

		scopeJSON, _ := json.Marshal(grant.Scope)

		createQuery := `
            CREATE (g:DELEGATION_GRANT {id: $id})
            SET g += $props
            RETURN g.id as id
        `
		parameters := map[string]interface{}{
			"id": grant.GrantID,
			"props": map[string]interface{}{
				"delegatorUserId": grant.DelegatorUserID,
				"delegateUserId":  grant.DelegateUserID,
				"reason":          grant.Reason,
				"startsAtIso":     grant.StartsAtIso,
				"expiresAtIso":    grant.ExpiresAtIso,
				"scope":           string(scopeJSON),
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
		logger.Error("Failed to create delegation grant",
			zap.Error(err),
			zap.String("grantID", grant.GrantID))
		return "", err
	}

	logger.Info("Delegation grant created", zap.String("grantID", grant.GrantID))
	return fmt.Sprintf("%v", result), nil
}

// GetGrant retrieves a delegation grant by its ID
func (dao *DelegationDAO) GetGrant(ctx context.Context, grantID string) (*model.DelegationGrantV1, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (g:DELEGATION_GRANT {id: $id})
        RETURN g
        `
		records, err := transaction.Run(query, map[string]interface{}{"id": grantID})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if records.Next() {
			node, _ := records.Record().Get("g")
			return mapToGrant(node.(neo4j.Node).Props)
		}
		return nil, clearance_errors.ErrGrantNotFound
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.DelegationGrantV1), nil
}

// ListGrantsForDelegate retrieves the grants naming a user as delegate
func (dao *DelegationDAO) ListGrantsForDelegate(ctx context.Context, delegateUserID string) ([]model.DelegationGrantV1, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (g:DELEGATION_GRANT {delegateUserId: $delegateUserId})
        RETURN g
        ORDER BY g.startsAtIso ASC
        `
		records, err := transaction.Run(query, map[string]interface{}{"delegateUserId": delegateUserID})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}

		var grants []model.DelegationGrantV1
		for records.Next() {
			node, _ := records.Record().Get("g")
			grant, err := mapToGrant(node.(neo4j.Node).Props)
			if err != nil {
				return nil, err
			}
			grants = append(grants, *grant)
		}
		return grants, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]model.DelegationGrantV1), nil
}

// SaveRevocation persists a revocation exactly once. The update only
// applies while the stored grant has no revocation yet.
func (dao *DelegationDAO) SaveRevocation(ctx context.Context, grantID string, revocation model.DelegationRevocation) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	revocationJSON, _ := json.Marshal(revocation)

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (g:DELEGATION_GRANT {id: $id})
        WHERE g.revocation IS NULL
        SET g.revocation = $revocation
        RETURN g.id as id
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":         grantID,
			"revocation": string(revocationJSON),
		})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if !result.Next() {
			return nil, clearance_errors.ErrGrantConflict
		}
		return nil, nil
	})
	return err
}

func mapToGrant(props map[string]interface{}) (*model.DelegationGrantV1, error) {
	grant := &model.DelegationGrantV1{
		GrantID:         getStringProp(props, "id"),
		DelegatorUserID: getStringProp(props, "delegatorUserId"),
		DelegateUserID:  getStringProp(props, "delegateUserId"),
		Reason:          getStringProp(props, "reason"),
		StartsAtIso:     getStringProp(props, "startsAtIso"),
		ExpiresAtIso:    getStringProp(props, "expiresAtIso"),
	}

	if raw := getStringProp(props, "scope"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &grant.Scope); err != nil {
			return nil, fmt.Errorf("failed to unmarshal grant scope: %w", err)
		}
	}
	if raw := getStringProp(props, "revocation"); raw != "" {
		var revocation model.DelegationRevocation
		if err := json.Unmarshal([]byte(raw), &revocation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal grant revocation: %w", err)
		}
		grant.Revocation = &revocation
	}
	return grant, nil
}
