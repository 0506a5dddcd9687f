// controller/policy_controller.go
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

type PolicyController struct {
	policyService service.IPolicyService
}

func NewPolicyController(policyService service.IPolicyService) *PolicyController {
	return &PolicyController{
		policyService: policyService,
	}
}

// RegisterRoutes registers the API routes
func (pc *PolicyController) RegisterRoutes(r *gin.RouterGroup) {
	rules := r.Group("/policy-rules")
	{
		rules.POST("", pc.CreateRule)
		rules.GET("/:id", pc.GetRule)
		rules.GET("", pc.ListRules)
		rules.DELETE("/:id", pc.DeleteRule)
		rules.POST("/evaluate", pc.Evaluate)
	}
}

// CreateRule endpoint
func (pc *PolicyController) CreateRule(c *gin.Context) {
	var rule model.PolicyRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy rule data", clearance_errors.ErrInvalidPolicyRuleData)
		return
	}
	appCtx, ok := util.GetAppContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", clearance_errors.ErrUnauthorized)
		return
	}
	workspaceID := c.DefaultQuery("workspaceId", appCtx.WorkspaceID)

	created, err := pc.policyService.CreateRule(c, workspaceID, rule, appCtx.PrincipalID)
	if err != nil {
		switch {
		case errors.Is(err, clearance_errors.ErrPolicyRuleConflict):
			util.RespondWithError(c, http.StatusConflict, "Policy rule already exists", err)
		case errors.Is(err, clearance_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
		}
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetRule endpoint
func (pc *PolicyController) GetRule(c *gin.Context) {
	rule, err := pc.policyService.GetRule(c, c.Param("id"))
	if err != nil {
		if errors.Is(err, clearance_errors.ErrPolicyRuleNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Policy rule not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to get policy rule", err)
		}
		return
	}
	c.JSON(http.StatusOK, rule)
}

// ListRules endpoint
func (pc *PolicyController) ListRules(c *gin.Context) {
	appCtx, ok := util.GetAppContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", clearance_errors.ErrUnauthorized)
		return
	}
	workspaceID := c.DefaultQuery("workspaceId", appCtx.WorkspaceID)

	rules, err := pc.policyService.ListRules(c, workspaceID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list policy rules", err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// DeleteRule endpoint
func (pc *PolicyController) DeleteRule(c *gin.Context) {
	appCtx, ok := util.GetAppContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", clearance_errors.ErrUnauthorized)
		return
	}

	if err := pc.policyService.DeleteRule(c, c.Param("id"), appCtx.PrincipalID); err != nil {
		if errors.Is(err, clearance_errors.ErrPolicyRuleNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Policy rule not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete policy rule", err)
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// Evaluate endpoint runs the workspace's rule set against an ad-hoc
// decision context.
func (pc *PolicyController) Evaluate(c *gin.Context) {
	var body struct {
		Context       model.DecisionContext `json:"context"`
		DeadlineAtIso string                `json:"deadlineAtIso"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid evaluation request", err)
		return
	}
	appCtx, ok := util.GetAppContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", clearance_errors.ErrUnauthorized)
		return
	}
	workspaceID := c.DefaultQuery("workspaceId", appCtx.WorkspaceID)

	evaluation, err := pc.policyService.Evaluate(c, workspaceID, body.Context, body.DeadlineAtIso)
	if err != nil {
		var evalErr *clearance_errors.PolicyRuleEvaluationError
		if errors.As(err, &evalErr) {
			util.RespondWithError(c, http.StatusBadRequest, evalErr.Error(), err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to evaluate policy rules", err)
		}
		return
	}
	c.JSON(http.StatusOK, evaluation)
}
