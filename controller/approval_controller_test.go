// controller/approval_controller_test.go
package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clearops/clearance/controller"
	clearance_errors "github.com/clearops/clearance/errors"
	"github.com/clearops/clearance/evidence"
	"github.com/clearops/clearance/lifecycle"
	logger "github.com/clearops/clearance/logging"
	"github.com/clearops/clearance/model"
	"github.com/clearops/clearance/test/mock"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("appContext", model.AppContext{
			TenantID:    "tenant-1",
			WorkspaceID: "ws-1",
			PrincipalID: "alice",
		})
		c.Next()
	})
	return r
}

func TestApprovalController(t *testing.T) {
	logger.InitLogger("../logging")
	defer logger.Sync()

	mockApprovalService := new(mock.MockApprovalService)
	mockAuditService := new(mock.MockAuditService)
	approvalController := controller.NewApprovalController(mockApprovalService, mockAuditService)
	router := setupRouter()
	api := router.Group("/")
	approvalController.RegisterRoutes(api)

	t.Run("CreateApproval_Success", func(t *testing.T) {
		mockApprovalService.On("CreateApproval", testify_mock.Anything, testify_mock.Anything, "alice").
			Return(&model.Approval{ID: "approval-1", Status: model.ApprovalOpen}, nil).Once()

		body := strings.NewReader(`{"title":"Deploy service","riskLevel":"medium"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/approvals", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("CreateApproval_Failure_RunNotFound", func(t *testing.T) {
		mockApprovalService.On("CreateApproval", testify_mock.Anything, testify_mock.Anything, "alice").
			Return(nil, clearance_errors.ErrRunNotFound).Once()

		body := strings.NewReader(`{"title":"Deploy service","riskLevel":"medium","runId":"run-9"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/approvals", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GetApproval_Failure_NotFound", func(t *testing.T) {
		mockApprovalService.On("GetApproval", testify_mock.Anything, "missing").
			Return(nil, clearance_errors.ErrApprovalNotFound).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/approvals/missing", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("AssignApproval_Success", func(t *testing.T) {
		mockApprovalService.On("AssignApproval", testify_mock.Anything, "approval-1", []string{"bob"}, "alice").
			Return(nil).Once()

		body := strings.NewReader(`{"approverUserIds":["bob"]}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/approvals/approval-1/assign", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("AssignApproval_Failure_IllegalTransition", func(t *testing.T) {
		mockApprovalService.On("AssignApproval", testify_mock.Anything, "approval-1", []string{"bob"}, "alice").
			Return(&lifecycle.TransitionError{Machine: "approval", From: "decided", To: "assigned"}).Once()

		body := strings.NewReader(`{"approverUserIds":["bob"]}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/approvals/approval-1/assign", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("RecordDecision_Success", func(t *testing.T) {
		mockApprovalService.On("RecordDecision", testify_mock.Anything, testify_mock.MatchedBy(func(d model.DecisionRecord) bool {
			return d.ApprovalID == "approval-1" && d.DecidedByUserID == "alice"
		})).Return(&model.DecisionRecord{DecisionID: "dec-1", Decision: "approved"}, nil).Once()

		body := strings.NewReader(`{"decision":"approved","rationale":"verified"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/approvals/approval-1/decision", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("RecordDecision_Failure_ConcurrentTransition", func(t *testing.T) {
		mockApprovalService.On("RecordDecision", testify_mock.Anything, testify_mock.Anything).
			Return(nil, clearance_errors.ErrApprovalConflict).Once()

		body := strings.NewReader(`{"decision":"approved"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/approvals/approval-1/decision", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("TransitionRun_Failure_IllegalTransition", func(t *testing.T) {
		mockApprovalService.On("TransitionRun", testify_mock.Anything, "run-1", model.RunCompleted).
			Return(&lifecycle.TransitionError{Machine: "run", From: "draft", To: "completed"}).Once()

		body := strings.NewReader(`{"to":"completed"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/runs/run-1/transition", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("GetApprovalContext_Success", func(t *testing.T) {
		mockApprovalService.On("GetApprovalContext", testify_mock.Anything, "approval-1", "alice").
			Return(&model.ApprovalContextV1{
				ApprovalID:      "approval-1",
				LifecycleStatus: model.ApprovalUnderReview,
				Readiness:       model.Readiness{CanDecide: true, BlockingReasons: []string{}},
			}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/approvals/approval-1/context", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var context model.ApprovalContextV1
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &context))
		assert.True(t, context.Readiness.CanDecide)
	})

	t.Run("VerifyEvidenceChain_Intact", func(t *testing.T) {
		mockAuditService.On("VerifyChain", testify_mock.Anything, "approval-1").
			Return([]evidence.ChainViolation{}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/approvals/approval-1/evidence/verify", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var report struct {
			Intact     bool                      `json:"intact"`
			Violations []evidence.ChainViolation `json:"violations"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.True(t, report.Intact)
	})

	t.Run("VerifyEvidenceChain_Broken", func(t *testing.T) {
		mockAuditService.On("VerifyChain", testify_mock.Anything, "approval-1").
			Return([]evidence.ChainViolation{
				{Index: 1, EvidenceID: "ev-2", Detail: "previous hash does not match the preceding entry"},
			}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/approvals/approval-1/evidence/verify", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var report struct {
			Intact     bool                      `json:"intact"`
			Violations []evidence.ChainViolation `json:"violations"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		assert.False(t, report.Intact)
		assert.Len(t, report.Violations, 1)
	})

	mockApprovalService.AssertExpectations(t)
	mockAuditService.AssertExpectations(t)
}

func TestApprovalControllerUnauthorized(t *testing.T) {
	logger.InitLogger("../logging")
	defer logger.Sync()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	approvalController := controller.NewApprovalController(new(mock.MockApprovalService), new(mock.MockAuditService))
	api := router.Group("/")
	approvalController.RegisterRoutes(api)

	t.Run("CreateApproval_Failure_NoAppContext", func(t *testing.T) {
		body := strings.NewReader(`{"title":"Deploy service","riskLevel":"medium"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/approvals", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
