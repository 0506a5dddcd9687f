// controller/policy_controller_test.go
package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clearops/clearance/controller"
	clearance_errors "github.com/clearops/clearance/errors"
	logger "github.com/clearops/clearance/logging"
	"github.com/clearops/clearance/model"
	"github.com/clearops/clearance/test/mock"
)

func TestPolicyController(t *testing.T) {
	logger.InitLogger("../logging")
	defer logger.Sync()

	mockPolicyService := new(mock.MockPolicyService)
	policyController := controller.NewPolicyController(mockPolicyService)
	router := setupRouter()
	api := router.Group("/")
	policyController.RegisterRoutes(api)

	t.Run("CreateRule_Success", func(t *testing.T) {
		mockPolicyService.On("CreateRule", testify_mock.Anything, "ws-1", testify_mock.Anything, "alice").
			Return(&model.PolicyRule{ID: "rule-1", Condition: "riskLevel eq low", Effect: model.EffectAllow}, nil).Once()

		body := strings.NewReader(`{"condition":"riskLevel eq low","effect":"allow"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/policy-rules", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("GetRule_Failure_NotFound", func(t *testing.T) {
		mockPolicyService.On("GetRule", testify_mock.Anything, "missing").
			Return(nil, clearance_errors.ErrPolicyRuleNotFound).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/policy-rules/missing", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ListRules_Success", func(t *testing.T) {
		mockPolicyService.On("ListRules", testify_mock.Anything, "ws-1").
			Return([]model.PolicyRule{{ID: "rule-1"}}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/policy-rules", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("DeleteRule_Success", func(t *testing.T) {
		mockPolicyService.On("DeleteRule", testify_mock.Anything, "rule-1", "alice").
			Return(nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/policy-rules/rule-1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Evaluate_Success", func(t *testing.T) {
		mockPolicyService.On("Evaluate", testify_mock.Anything, "ws-1", testify_mock.Anything, "").
			Return(&model.PolicySetEvaluation{AggregateOutcome: model.OutcomePass}, nil).Once()

		body := strings.NewReader(`{"context":{"riskLevel":"low","requestedByUserId":"alice","approverUserIds":["bob"]}}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/policy-rules/evaluate", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var evaluation model.PolicySetEvaluation
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &evaluation))
		assert.Equal(t, model.OutcomePass, evaluation.AggregateOutcome)
	})

	t.Run("Evaluate_Failure_EmptyRuleSet", func(t *testing.T) {
		mockPolicyService.On("Evaluate", testify_mock.Anything, "ws-1", testify_mock.Anything, "").
			Return(nil, &clearance_errors.PolicyRuleEvaluationError{Reason: "cannot evaluate an empty rule set"}).Once()

		body := strings.NewReader(`{"context":{"riskLevel":"low","requestedByUserId":"alice","approverUserIds":[]}}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/policy-rules/evaluate", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	mockPolicyService.AssertExpectations(t)
}
