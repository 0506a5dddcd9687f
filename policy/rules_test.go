package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearops/clearance/model"
	"github.com/clearops/clearance/policy"
)

func TestRiskThresholdRule(t *testing.T) {
	rule := policy.NewRiskThresholdRule(model.RiskHigh)

	t.Run("Evaluate_BelowThresholdPasses", func(t *testing.T) {
		ctx := baseContext()
		ctx.RiskLevel = model.RiskMedium

		evaluation := rule.Evaluate(ctx)
		assert.Equal(t, model.OutcomePass, evaluation.Outcome)
	})

	t.Run("Evaluate_AtThresholdNeedsHuman", func(t *testing.T) {
		ctx := baseContext()
		ctx.RiskLevel = model.RiskHigh

		evaluation := rule.Evaluate(ctx)
		assert.Equal(t, model.OutcomeNeedsHuman, evaluation.Outcome)
	})

	t.Run("Evaluate_AboveThresholdNeedsHuman", func(t *testing.T) {
		ctx := baseContext()
		ctx.RiskLevel = model.RiskCritical

		evaluation := rule.Evaluate(ctx)
		assert.Equal(t, model.OutcomeNeedsHuman, evaluation.Outcome)
	})

	t.Run("Evaluate_UnknownRiskLevelNeedsHuman", func(t *testing.T) {
		ctx := baseContext()
		ctx.RiskLevel = model.RiskLevel("catastrophic")

		evaluation := rule.Evaluate(ctx)
		assert.Equal(t, model.OutcomeNeedsHuman, evaluation.Outcome)
		require.NotEmpty(t, evaluation.Trace)
		assert.Equal(t, model.TraceError, evaluation.Trace[0].Result)
	})
}

func TestSeparationOfDutiesRule(t *testing.T) {
	rule := policy.NewSeparationOfDutiesRule()

	t.Run("Evaluate_RequesterIsSoleApprover", func(t *testing.T) {
		ctx := baseContext()
		ctx.RequestedByUserID = "alice"
		ctx.ApproverUserIDs = []string{"alice"}

		evaluation := rule.Evaluate(ctx)
		assert.Equal(t, model.OutcomeFail, evaluation.Outcome)
	})

	t.Run("Evaluate_RequesterRepeatedAsEveryApprover", func(t *testing.T) {
		ctx := baseContext()
		ctx.RequestedByUserID = "alice"
		ctx.ApproverUserIDs = []string{"alice", "alice"}

		evaluation := rule.Evaluate(ctx)
		assert.Equal(t, model.OutcomeFail, evaluation.Outcome)
	})

	t.Run("Evaluate_IndependentApproverPasses", func(t *testing.T) {
		ctx := baseContext()
		ctx.RequestedByUserID = "alice"
		ctx.ApproverUserIDs = []string{"alice", "bob"}

		evaluation := rule.Evaluate(ctx)
		assert.Equal(t, model.OutcomePass, evaluation.Outcome)
	})

	t.Run("Evaluate_NoApproversSkips", func(t *testing.T) {
		ctx := baseContext()
		ctx.ApproverUserIDs = nil

		evaluation := rule.Evaluate(ctx)
		assert.Equal(t, model.OutcomePass, evaluation.Outcome)
		require.Len(t, evaluation.Trace, 1)
		assert.Equal(t, model.TraceSkip, evaluation.Trace[0].Result)
	})
}

func TestEvidenceRequiredRule(t *testing.T) {
	rule := policy.NewEvidenceRequiredRule(2)

	t.Run("Evaluate_EnoughEvidencePasses", func(t *testing.T) {
		ctx := baseContext()
		ctx.EvidenceCount = 2
		ctx.DecisiveEvidenceCount = 1

		evaluation := rule.Evaluate(ctx)
		assert.Equal(t, model.OutcomePass, evaluation.Outcome)
	})

	t.Run("Evaluate_BelowMinimumFails", func(t *testing.T) {
		ctx := baseContext()
		ctx.EvidenceCount = 1
		ctx.DecisiveEvidenceCount = 1

		evaluation := rule.Evaluate(ctx)
		assert.Equal(t, model.OutcomeFail, evaluation.Outcome)
	})

	t.Run("Evaluate_NoDecisiveEvidenceFails", func(t *testing.T) {
		ctx := baseContext()
		ctx.EvidenceCount = 5
		ctx.DecisiveEvidenceCount = 0

		evaluation := rule.Evaluate(ctx)
		assert.Equal(t, model.OutcomeFail, evaluation.Outcome)
	})
}

func TestExpiryCheckRule(t *testing.T) {
	t.Run("Evaluate_BeforeDeadlinePasses", func(t *testing.T) {
		rule := policy.NewExpiryCheckRule("2026-03-01T00:00:00Z")
		ctx := baseContext()
		ctx.NowIso = "2026-02-28T23:59:59Z"

		evaluation := rule.Evaluate(ctx)
		assert.Equal(t, model.OutcomePass, evaluation.Outcome)
	})

	t.Run("Evaluate_AtDeadlineFails", func(t *testing.T) {
		rule := policy.NewExpiryCheckRule("2026-03-01T00:00:00Z")
		ctx := baseContext()
		ctx.NowIso = "2026-03-01T00:00:00Z"

		evaluation := rule.Evaluate(ctx)
		assert.Equal(t, model.OutcomeFail, evaluation.Outcome)
	})

	t.Run("Evaluate_AfterDeadlineFails", func(t *testing.T) {
		rule := policy.NewExpiryCheckRule("2026-03-01T00:00:00Z")
		ctx := baseContext()
		ctx.NowIso = "2026-03-02T08:00:00Z"

		evaluation := rule.Evaluate(ctx)
		assert.Equal(t, model.OutcomeFail, evaluation.Outcome)
	})

	t.Run("Evaluate_MalformedDeadlineNeedsHuman", func(t *testing.T) {
		rule := policy.NewExpiryCheckRule("next tuesday")
		ctx := baseContext()
		ctx.NowIso = "2026-03-01T00:00:00Z"

		evaluation := rule.Evaluate(ctx)
		assert.Equal(t, model.OutcomeNeedsHuman, evaluation.Outcome)
	})

	t.Run("Evaluate_MalformedNowNeedsHuman", func(t *testing.T) {
		rule := policy.NewExpiryCheckRule("2026-03-01T00:00:00Z")
		ctx := baseContext()
		ctx.NowIso = ""

		evaluation := rule.Evaluate(ctx)
		assert.Equal(t, model.OutcomeNeedsHuman, evaluation.Outcome)
	})
}

func TestSeparationOfDutiesInRuleSet(t *testing.T) {
	t.Run("EvaluateRuleSet_SoDFailureBeatsRiskNeedsHuman", func(t *testing.T) {
		rules := []policy.Rule{
			policy.NewRiskThresholdRule(model.RiskHigh),
			policy.NewSeparationOfDutiesRule(),
		}
		ctx := baseContext()
		ctx.RiskLevel = model.RiskCritical
		ctx.RequestedByUserID = "alice"
		ctx.ApproverUserIDs = []string{"alice"}

		evaluation, err := policy.EvaluateRuleSet(rules, ctx)
		require.NoError(t, err)
		assert.Equal(t, model.OutcomeFail, evaluation.AggregateOutcome)
		assert.Len(t, evaluation.RuleEvaluations, 2)
	})
}
