// controller/delegation_controller_test.go
package controller_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"

	"github.com/clearops/clearance/controller"
	"github.com/clearops/clearance/delegation"
	clearance_errors "github.com/clearops/clearance/errors"
	logger "github.com/clearops/clearance/logging"
	"github.com/clearops/clearance/model"
	"github.com/clearops/clearance/test/mock"
)

func TestDelegationController(t *testing.T) {
	logger.InitLogger("../logging")
	defer logger.Sync()

	mockDelegationService := new(mock.MockDelegationService)
	delegationController := controller.NewDelegationController(mockDelegationService)
	router := setupRouter()
	api := router.Group("/")
	delegationController.RegisterRoutes(api)

	t.Run("CreateGrant_Success", func(t *testing.T) {
		mockDelegationService.On("CreateGrant", testify_mock.Anything, testify_mock.MatchedBy(func(input delegation.GrantInput) bool {
			return input.DelegatorUserID == "alice" && input.DelegateUserID == "bob"
		})).Return(&model.DelegationGrantV1{GrantID: "grant-1"}, nil).Once()

		body := strings.NewReader(`{"delegateUserId":"bob","reason":"vacation","startsAtIso":"2026-02-01T00:00:00Z","expiresAtIso":"2026-02-08T00:00:00Z"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/delegations", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("CreateGrant_Failure_SelfDelegation", func(t *testing.T) {
		mockDelegationService.On("CreateGrant", testify_mock.Anything, testify_mock.Anything).
			Return(nil, &clearance_errors.DelegationValidationError{
				Field: "delegateUserId", Value: "alice", Message: "self-delegation is forbidden",
			}).Once()

		body := strings.NewReader(`{"delegateUserId":"alice","reason":"vacation","startsAtIso":"2026-02-01T00:00:00Z","expiresAtIso":"2026-02-08T00:00:00Z"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/delegations", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("GetGrant_Failure_NotFound", func(t *testing.T) {
		mockDelegationService.On("GetGrant", testify_mock.Anything, "missing").
			Return(nil, clearance_errors.ErrGrantNotFound).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/delegations/missing", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ListGrants_DefaultsToCaller", func(t *testing.T) {
		mockDelegationService.On("ListGrantsForDelegate", testify_mock.Anything, "alice").
			Return([]model.DelegationGrantV1{}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/delegations", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("RevokeGrant_Success", func(t *testing.T) {
		mockDelegationService.On("RevokeGrant", testify_mock.Anything, "grant-1", "alice", "policy change").
			Return(&model.DelegationGrantV1{GrantID: "grant-1"}, nil).Once()

		body := strings.NewReader(`{"reason":"policy change"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/delegations/grant-1/revoke", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("RevokeGrant_Failure_AlreadyRevoked", func(t *testing.T) {
		mockDelegationService.On("RevokeGrant", testify_mock.Anything, "grant-1", "alice", "again").
			Return(nil, &clearance_errors.DelegationValidationError{
				Field: "revocation", Value: "grant-1", Message: "grant is already revoked",
			}).Once()

		body := strings.NewReader(`{"reason":"again"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/delegations/grant-1/revoke", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	mockDelegationService.AssertExpectations(t)
}
