package escalation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearops/clearance/escalation"
	"github.com/clearops/clearance/model"
)

func sampleChain() []model.EscalationStep {
	return []model.EscalationStep{
		{EscalateToUserID: "team-lead", AfterHours: 4},
		{EscalateToUserID: "director", AfterHours: 24},
		{EscalateToUserID: "manager", AfterHours: 8},
	}
}

func TestNormalizeChain(t *testing.T) {
	t.Run("NormalizeChain_SortsAndRenumbers", func(t *testing.T) {
		normalized, err := escalation.NormalizeChain(sampleChain())
		require.NoError(t, err)

		require.Len(t, normalized, 3)
		assert.Equal(t, "team-lead", normalized[0].EscalateToUserID)
		assert.Equal(t, "manager", normalized[1].EscalateToUserID)
		assert.Equal(t, "director", normalized[2].EscalateToUserID)
		for i, step := range normalized {
			assert.Equal(t, i, step.StepOrder)
		}
	})

	t.Run("NormalizeChain_InputUntouched", func(t *testing.T) {
		chain := sampleChain()
		_, err := escalation.NormalizeChain(chain)
		require.NoError(t, err)
		assert.Equal(t, "director", chain[1].EscalateToUserID)
	})

	t.Run("NormalizeChain_NegativeThresholdRejected", func(t *testing.T) {
		_, err := escalation.NormalizeChain([]model.EscalationStep{
			{EscalateToUserID: "team-lead", AfterHours: -1},
		})
		assert.Error(t, err)
	})

	t.Run("NormalizeChain_EmptyTargetRejected", func(t *testing.T) {
		_, err := escalation.NormalizeChain([]model.EscalationStep{
			{EscalateToUserID: "", AfterHours: 4},
		})
		assert.Error(t, err)
	})

	t.Run("NormalizeChain_EmptyChainAllowed", func(t *testing.T) {
		normalized, err := escalation.NormalizeChain(nil)
		require.NoError(t, err)
		assert.Empty(t, normalized)
	})
}

func TestEvaluateEscalation(t *testing.T) {
	chain, err := escalation.NormalizeChain(sampleChain())
	if err != nil {
		t.Fatal(err)
	}

	t.Run("EvaluateEscalation_BeforeFirstThreshold", func(t *testing.T) {
		evaluation := escalation.EvaluateEscalation(chain, 3.5)
		assert.Nil(t, evaluation.ActiveStep)
		assert.False(t, evaluation.FullyEscalated)
	})

	t.Run("EvaluateEscalation_ActiveAtExactThreshold", func(t *testing.T) {
		evaluation := escalation.EvaluateEscalation(chain, 4)
		require.NotNil(t, evaluation.ActiveStep)
		assert.Equal(t, "team-lead", evaluation.ActiveStep.EscalateToUserID)
		assert.False(t, evaluation.FullyEscalated)
	})

	t.Run("EvaluateEscalation_LastReachedStepWins", func(t *testing.T) {
		evaluation := escalation.EvaluateEscalation(chain, 10)
		require.NotNil(t, evaluation.ActiveStep)
		assert.Equal(t, "manager", evaluation.ActiveStep.EscalateToUserID)
		assert.False(t, evaluation.FullyEscalated)
	})

	t.Run("EvaluateEscalation_FullyEscalated", func(t *testing.T) {
		evaluation := escalation.EvaluateEscalation(chain, 24)
		require.NotNil(t, evaluation.ActiveStep)
		assert.Equal(t, "director", evaluation.ActiveStep.EscalateToUserID)
		assert.True(t, evaluation.FullyEscalated)
	})

	t.Run("EvaluateEscalation_EmptyChain", func(t *testing.T) {
		evaluation := escalation.EvaluateEscalation(nil, 100)
		assert.Nil(t, evaluation.ActiveStep)
		assert.False(t, evaluation.FullyEscalated)
	})
}
