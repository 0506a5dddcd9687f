// controller/token_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	clearance_errors "github.com/clearops/clearance/errors"
	"github.com/clearops/clearance/model"
	"github.com/clearops/clearance/service"
	"github.com/clearops/clearance/util"
)

type TokenController struct {
	tokenService service.ITokenService
}

func NewTokenController(tokenService service.ITokenService) *TokenController {
	return &TokenController{
		tokenService: tokenService,
	}
}

// RegisterRoutes registers the API routes
func (tc *TokenController) RegisterRoutes(r *gin.RouterGroup) {
	tokens := r.Group("/decision-tokens")
	{
		tokens.POST("", tc.IssueToken)
		tokens.POST("/:id/consume", tc.ConsumeToken)
		tokens.POST("/:id/revoke", tc.RevokeToken)
	}
}

// IssueToken endpoint
func (tc *TokenController) IssueToken(c *gin.Context) {
	var body struct {
		ApprovalID       string                    `json:"approvalId"`
		IssuedToUserID   string                    `json:"issuedToUserId"`
		PermittedActions []model.OffPlatformAction `json:"permittedActions"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid token request", err)
		return
	}

	tok, err := tc.tokenService.IssueToken(c, body.ApprovalID, body.IssuedToUserID, body.PermittedActions)
	if err != nil {
		switch {
		case errors.Is(err, clearance_errors.ErrApprovalNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Approval not found", err)
		case errors.Is(err, clearance_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
		}
		return
	}

	c.JSON(http.StatusCreated, tok)
}

// ConsumeToken endpoint. A rejected attempt is a 200 with the rejection
// reason and an approver-facing message, not an HTTP error: the caller
// is the off-platform surface relaying the outcome to a person.
func (tc *TokenController) ConsumeToken(c *gin.Context) {
	var attempt model.ConsumptionAttempt
	if err := c.ShouldBindJSON(&attempt); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid consumption attempt", err)
		return
	}
	appCtx, ok := util.GetAppContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", clearance_errors.ErrUnauthorized)
		return
	}
	if attempt.AttemptedByUserID == "" {
		attempt.AttemptedByUserID = appCtx.PrincipalID
	}

	result, err := tc.tokenService.ConsumeToken(c, c.Param("id"), attempt)
	if err != nil {
		switch {
		case errors.Is(err, clearance_errors.ErrTokenNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Decision token not found", err)
		case errors.Is(err, clearance_errors.ErrTokenConflict):
			util.RespondWithError(c, http.StatusConflict, "Decision token status changed concurrently", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to consume decision token", err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// RevokeToken endpoint
func (tc *TokenController) RevokeToken(c *gin.Context) {
	if err := tc.tokenService.RevokeToken(c, c.Param("id")); err != nil {
		switch {
		case errors.Is(err, clearance_errors.ErrTokenNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Decision token not found", err)
		case errors.Is(err, clearance_errors.ErrTokenConflict):
			util.RespondWithError(c, http.StatusConflict, "Decision token is no longer active", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to revoke decision token", err)
		}
		return
	}
	c.Status(http.StatusNoContent)
}
