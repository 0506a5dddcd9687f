package policy_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clearance_errors "github.com/clearops/clearance/errors"
	"github.com/clearops/clearance/model"
	"github.com/clearops/clearance/policy"
)

func baseContext() model.DecisionContext {
	return model.DecisionContext{
		WorkspaceID:           "ws-1",
		RiskLevel:             model.RiskMedium,
		RequestedByUserID:     "alice",
		ApproverUserIDs:       []string{"bob", "carol"},
		EvidenceCount:         3,
		DecisiveEvidenceCount: 1,
		Metadata:              map[string]string{"env": "production"},
	}
}

func TestDSLRule(t *testing.T) {
	t.Run("Evaluate_DenyRuleMatches", func(t *testing.T) {
		rule := policy.NewDSLRule(model.PolicyRule{
			ID:        "no-prod",
			Condition: "metadata.env eq production",
			Effect:    model.EffectDeny,
		})

		evaluation := rule.Evaluate(baseContext())

		assert.Equal(t, model.OutcomeFail, evaluation.Outcome)
		require.NotEmpty(t, evaluation.Trace)
		for i, entry := range evaluation.Trace {
			assert.Equal(t, i, entry.Seq)
		}
	})

	t.Run("Evaluate_AllowRuleMatches", func(t *testing.T) {
		rule := policy.NewDSLRule(model.PolicyRule{
			ID:        "right-workspace",
			Condition: "workspaceId eq ws-1",
			Effect:    model.EffectAllow,
		})

		evaluation := rule.Evaluate(baseContext())
		assert.Equal(t, model.OutcomePass, evaluation.Outcome)
	})

	t.Run("Evaluate_ContainsOnList", func(t *testing.T) {
		rule := policy.NewDSLRule(model.PolicyRule{
			ID:        "bob-is-approver",
			Condition: "approverUserIds contains bob",
			Effect:    model.EffectAllow,
		})

		evaluation := rule.Evaluate(baseContext())
		assert.Equal(t, model.OutcomePass, evaluation.Outcome)
	})

	t.Run("Evaluate_ParseErrorNeedsHuman", func(t *testing.T) {
		rule := policy.NewDSLRule(model.PolicyRule{
			ID:        "broken",
			Condition: "riskLevel morethan",
			Effect:    model.EffectDeny,
		})

		evaluation := rule.Evaluate(baseContext())

		assert.Equal(t, model.OutcomeNeedsHuman, evaluation.Outcome)
		require.Len(t, evaluation.Trace, 1)
		assert.Equal(t, model.TraceError, evaluation.Trace[0].Result)
	})

	t.Run("Evaluate_UnknownFieldNeedsHuman", func(t *testing.T) {
		rule := policy.NewDSLRule(model.PolicyRule{
			ID:        "unknown-field",
			Condition: "severity eq high",
			Effect:    model.EffectDeny,
		})

		evaluation := rule.Evaluate(baseContext())
		assert.Equal(t, model.OutcomeNeedsHuman, evaluation.Outcome)
	})

	t.Run("Evaluate_MissingMetadataKeyNeedsHuman", func(t *testing.T) {
		rule := policy.NewDSLRule(model.PolicyRule{
			ID:        "missing-meta",
			Condition: "metadata.region eq eu",
			Effect:    model.EffectAllow,
		})

		evaluation := rule.Evaluate(baseContext())
		assert.Equal(t, model.OutcomeNeedsHuman, evaluation.Outcome)
	})
}

// fixedRule returns a constant outcome, for aggregation tests.
type fixedRule struct {
	id      string
	outcome model.RuleOutcome
}

func (r fixedRule) ID() string               { return r.id }
func (r fixedRule) Effect() model.RuleEffect { return model.EffectDeny }
func (r fixedRule) Evaluate(model.DecisionContext) model.PolicyRuleEvaluation {
	return model.PolicyRuleEvaluation{RuleID: r.id, Outcome: r.outcome}
}

func TestEvaluateRuleSet(t *testing.T) {
	t.Run("EvaluateRuleSet_EmptySetRejected", func(t *testing.T) {
		_, err := policy.EvaluateRuleSet(nil, baseContext())
		require.Error(t, err)
		_, ok := err.(*clearance_errors.PolicyRuleEvaluationError)
		assert.True(t, ok)
	})

	t.Run("EvaluateRuleSet_AggregationPriority", func(t *testing.T) {
		outcomes := []model.RuleOutcome{model.OutcomePass, model.OutcomeFail, model.OutcomeNeedsHuman}
		for _, first := range outcomes {
			for _, second := range outcomes {
				for _, third := range outcomes {
					rules := []policy.Rule{
						fixedRule{"r1", first}, fixedRule{"r2", second}, fixedRule{"r3", third},
					}
					expected := model.OutcomePass
					for _, o := range []model.RuleOutcome{first, second, third} {
						if o == model.OutcomeNeedsHuman && expected == model.OutcomePass {
							expected = model.OutcomeNeedsHuman
						}
						if o == model.OutcomeFail {
							expected = model.OutcomeFail
						}
					}

					name := fmt.Sprintf("%s_%s_%s", first, second, third)
					evaluation, err := policy.EvaluateRuleSet(rules, baseContext())
					require.NoError(t, err, name)
					assert.Equal(t, expected, evaluation.AggregateOutcome, name)
					assert.Len(t, evaluation.RuleEvaluations, 3, name)
				}
			}
		}
	})

	t.Run("EvaluateRuleSet_NoShortCircuit", func(t *testing.T) {
		rules := []policy.Rule{
			fixedRule{"fails-first", model.OutcomeFail},
			fixedRule{"still-runs", model.OutcomePass},
		}

		evaluation, err := policy.EvaluateRuleSet(rules, baseContext())
		require.NoError(t, err)
		require.Len(t, evaluation.RuleEvaluations, 2)
		assert.Equal(t, "still-runs", evaluation.RuleEvaluations[1].RuleID)
	})
}
