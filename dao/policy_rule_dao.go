// dao/policy_rule_dao.go
package dao

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	clearance_errors "github.com/clearops/clearance/errors"
	logger "github.com/clearops/clearance/logging"
	"github.com/clearops/clearance/model"
)

type PolicyRuleDAO struct {
	Driver neo4j.Driver
}

func NewPolicyRuleDAO(driver neo4j.Driver) *PolicyRuleDAO {
	dao := &PolicyRuleDAO{Driver: driver}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint", zap.Error(err))
	}
	return dao
}

// EnsureUniqueConstraint ensures the unique constraint on the PolicyRule ID
func (dao *PolicyRuleDAO) EnsureUniqueConstraint(ctx context.Context) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_policy_rule_id IF NOT EXISTS
        FOR (r:POLICY_RULE) REQUIRE r.id IS UNIQUE
        `
		if _, err := transaction.Run(query, nil); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// CreateRule stores a DSL policy rule for a workspace
func (dao *PolicyRuleDAO) CreateRule(ctx context.Context, workspaceID string, rule model.PolicyRule) (string, error) {
	start := time.Now()
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		checkQuery := `
        MATCH (r:POLICY_RULE {id: $id})
        RETURN r.id
        `
		checkResult, err := transaction.Run(checkQuery, map[string]interface{}{"id": rule.ID})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if checkResult.Next() {
			return nil, clearance_errors.ErrPolicyRuleConflict
		}

		createQuery := `
            CREATE (r:POLICY_RULE {id: $id})
            SET r += $props
            RETURN r.id as id
        `
		parameters := map[string]interface{}{
			"id": rule.ID,
			"props": map[string]interface{}{
				"workspaceId": workspaceID,
				"description": rule.Description,
				"condition":   rule.Condition,
				"effect":      string(rule.Effect),
				"createdAtIso": time.Now().UTC().Format(time.RFC3339),
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
		logger.Error("Failed to create policy rule",
			zap.Error(err),
			zap.String("ruleID", rule.ID),
			zap.Duration("duration", time.Since(start)))
		return "", err
	}

	logger.Info("Policy rule created successfully", zap.String("ruleID", rule.ID))
	return rule.ID, nil
}

// GetRule retrieves a policy rule by its ID
func (dao *PolicyRuleDAO) GetRule(ctx context.Context, ruleID string) (*model.PolicyRule, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:POLICY_RULE {id: $id})
        RETURN r
        `
		records, err := transaction.Run(query, map[string]interface{}{"id": ruleID})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if records.Next() {
			node, _ := records.Record().Get("r")
			return mapToPolicyRule(node.(neo4j.Node).Props), nil
		}
		return nil, clearance_errors.ErrPolicyRuleNotFound
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.PolicyRule), nil
}

// ListRules retrieves the policy rules of a workspace
func (dao *PolicyRuleDAO) ListRules(ctx context.Context, workspaceID string) ([]model.PolicyRule, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:POLICY_RULE {workspaceId: $workspaceId})
        RETURN r
        ORDER BY r.createdAtIso ASC
        `
		records, err := transaction.Run(query, map[string]interface{}{"workspaceId": workspaceID})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}

		var rules []model.PolicyRule
		for records.Next() {
			node, _ := records.Record().Get("r")
			rules = append(rules, *mapToPolicyRule(node.(neo4j.Node).Props))
		}
		return rules, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]model.PolicyRule), nil
}

// DeleteRule removes a policy rule
func (dao *PolicyRuleDAO) DeleteRule(ctx context.Context, ruleID string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:POLICY_RULE {id: $id})
        DETACH DELETE r
        RETURN count(r) as deleted
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": ruleID})
		if err != nil {
			return nil, clearance_errors.ErrDatabaseOperation
		}
		if result.Next() {
			deleted, _ := result.Record().Get("deleted")
			if deleted.(int64) == 0 {
				return nil, clearance_errors.ErrPolicyRuleNotFound
			}
		}
		return nil, nil
	})
	return err
}

func mapToPolicyRule(props map[string]interface{}) *model.PolicyRule {
	return &model.PolicyRule{
		ID:          getStringProp(props, "id"),
		Description: getStringProp(props, "description"),
		Condition:   getStringProp(props, "condition"),
		Effect:      model.RuleEffect(getStringProp(props, "effect")),
	}
}
