// controller/approval_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clearops/clearance/audit"
	clearance_errors "github.com/clearops/clearance/errors"
	"github.com/clearops/clearance/lifecycle"
	"github.com/clearops/clearance/model"
	"github.com/clearops/clearance/service"
	"github.com/clearops/clearance/util"
	helper_util "github.com/clearops/clearance/util/helper"
)

type ApprovalController struct {
	approvalService service.IApprovalService
	auditService    audit.Service
}

func NewApprovalController(approvalService service.IApprovalService, auditService audit.Service) *ApprovalController {
	return &ApprovalController{
		approvalService: approvalService,
		auditService:    auditService,
	}
}

// RegisterRoutes registers the API routes
func (ac *ApprovalController) RegisterRoutes(r *gin.RouterGroup) {
	runs := r.Group("/runs")
	{
		runs.POST("", ac.CreateRun)
		runs.POST("/:id/transition", ac.TransitionRun)
	}
	approvals := r.Group("/approvals")
	{
		approvals.POST("", ac.CreateApproval)
		approvals.GET("/:id", ac.GetApproval)
		approvals.GET("", ac.ListApprovals)
		approvals.POST("/:id/assign", ac.AssignApproval)
		approvals.POST("/:id/review", ac.StartReview)
		approvals.POST("/:id/reopen", ac.ReopenApproval)
		approvals.POST("/:id/decision", ac.RecordDecision)
		approvals.POST("/:id/snapshots", ac.CaptureSnapshots)
		approvals.POST("/:id/snapshots/verify", ac.VerifySnapshots)
		approvals.GET("/:id/context", ac.GetApprovalContext)
		approvals.GET("/:id/evidence", ac.ListEvidence)
		approvals.GET("/:id/evidence/verify", ac.VerifyEvidenceChain)
	}
}

// CreateRun endpoint
func (ac *ApprovalController) CreateRun(c *gin.Context) {
	var run model.Run
	if err := c.ShouldBindJSON(&run); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid run data", err)
		return
	}
	appCtx, ok := util.GetAppContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", clearance_errors.ErrUnauthorized)
		return
	}

	created, err := ac.approvalService.CreateRun(c, run, appCtx.PrincipalID)
	if err != nil {
		switch err {
		case clearance_errors.ErrRunConflict:
			util.RespondWithError(c, http.StatusConflict, "Run already exists", err)
		case clearance_errors.ErrDatabaseOperation:
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create run", clearance_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, created)
}

// TransitionRun endpoint
func (ac *ApprovalController) TransitionRun(c *gin.Context) {
	runID := c.Param("id")
	var body struct {
		To model.RunStatus `json:"to"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid transition data", err)
		return
	}

	if err := ac.approvalService.TransitionRun(c, runID, body.To); err != nil {
		var transitionErr *lifecycle.TransitionError
		switch {
		case errors.As(err, &transitionErr):
			util.RespondWithError(c, http.StatusConflict, transitionErr.Error(), err)
		case errors.Is(err, clearance_errors.ErrRunNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Run not found", err)
		case errors.Is(err, clearance_errors.ErrRunConflict):
			util.RespondWithError(c, http.StatusConflict, "Run status changed concurrently", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to transition run", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateApproval endpoint
func (ac *ApprovalController) CreateApproval(c *gin.Context) {
	var approval model.Approval
	if err := c.ShouldBindJSON(&approval); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid approval data", clearance_errors.ErrInvalidApprovalData)
		return
	}
	appCtx, ok := util.GetAppContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", clearance_errors.ErrUnauthorized)
		return
	}
	if approval.RequestedByUserID == "" {
		approval.RequestedByUserID = appCtx.PrincipalID
	}
	if approval.WorkspaceID == "" {
		approval.WorkspaceID = appCtx.WorkspaceID
	}

	created, err := ac.approvalService.CreateApproval(c, approval, appCtx.PrincipalID)
	if err != nil {
		switch {
		case errors.Is(err, clearance_errors.ErrApprovalConflict):
			util.RespondWithError(c, http.StatusConflict, "Approval already exists", err)
		case errors.Is(err, clearance_errors.ErrRunNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Run not found", err)
		case errors.Is(err, clearance_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
		}
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetApproval endpoint
func (ac *ApprovalController) GetApproval(c *gin.Context) {
	approval, err := ac.approvalService.GetApproval(c, c.Param("id"))
	if err != nil {
		if errors.Is(err, clearance_errors.ErrApprovalNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Approval not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to get approval", err)
		}
		return
	}
	c.JSON(http.StatusOK, approval)
}

// ListApprovals endpoint
func (ac *ApprovalController) ListApprovals(c *gin.Context) {
	appCtx, ok := util.GetAppContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", clearance_errors.ErrUnauthorized)
		return
	}
	workspaceID := c.DefaultQuery("workspaceId", appCtx.WorkspaceID)
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", clearance_errors.ErrInvalidPagination)
		return
	}

	approvals, err := ac.approvalService.ListApprovals(c, workspaceID, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list approvals", err)
		return
	}
	c.JSON(http.StatusOK, approvals)
}

// AssignApproval endpoint
func (ac *ApprovalController) AssignApproval(c *gin.Context) {
	var body struct {
		ApproverUserIDs []string `json:"approverUserIds"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid assignment data", err)
		return
	}
	appCtx, ok := util.GetAppContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", clearance_errors.ErrUnauthorized)
		return
	}

	if err := ac.approvalService.AssignApproval(c, c.Param("id"), body.ApproverUserIDs, appCtx.PrincipalID); err != nil {
		ac.respondLifecycleError(c, err, "Failed to assign approval")
		return
	}
	c.Status(http.StatusNoContent)
}

// StartReview endpoint
func (ac *ApprovalController) StartReview(c *gin.Context) {
	appCtx, ok := util.GetAppContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", clearance_errors.ErrUnauthorized)
		return
	}
	if err := ac.approvalService.StartReview(c, c.Param("id"), appCtx.PrincipalID); err != nil {
		ac.respondLifecycleError(c, err, "Failed to start review")
		return
	}
	c.Status(http.StatusNoContent)
}

// ReopenApproval endpoint
func (ac *ApprovalController) ReopenApproval(c *gin.Context) {
	appCtx, ok := util.GetAppContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", clearance_errors.ErrUnauthorized)
		return
	}
	if err := ac.approvalService.ReopenApproval(c, c.Param("id"), appCtx.PrincipalID); err != nil {
		ac.respondLifecycleError(c, err, "Failed to reopen approval")
		return
	}
	c.Status(http.StatusNoContent)
}

// RecordDecision endpoint
func (ac *ApprovalController) RecordDecision(c *gin.Context) {
	var decision model.DecisionRecord
	if err := c.ShouldBindJSON(&decision); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid decision data", err)
		return
	}
	appCtx, ok := util.GetAppContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", clearance_errors.ErrUnauthorized)
		return
	}
	decision.ApprovalID = c.Param("id")
	if decision.DecidedByUserID == "" {
		decision.DecidedByUserID = appCtx.PrincipalID
	}

	recorded, err := ac.approvalService.RecordDecision(c, decision)
	if err != nil {
		ac.respondLifecycleError(c, err, "Failed to record decision")
		return
	}
	c.JSON(http.StatusCreated, recorded)
}

// CaptureSnapshots endpoint
func (ac *ApprovalController) CaptureSnapshots(c *gin.Context) {
	var body struct {
		Subjects []service.SnapshotSubject `json:"subjects"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid snapshot data", err)
		return
	}

	set, err := ac.approvalService.CaptureSnapshots(c, c.Param("id"), body.Subjects)
	if err != nil {
		if errors.Is(err, clearance_errors.ErrApprovalNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Approval not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to capture snapshots", err)
		}
		return
	}
	c.JSON(http.StatusCreated, set)
}

// VerifySnapshots endpoint
func (ac *ApprovalController) VerifySnapshots(c *gin.Context) {
	var body struct {
		CurrentContents map[string]any `json:"currentContents"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid verification data", err)
		return
	}

	verification, err := ac.approvalService.VerifySnapshots(c, c.Param("id"), body.CurrentContents)
	if err != nil {
		if errors.Is(err, clearance_errors.ErrApprovalNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Approval not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to verify snapshots", err)
		}
		return
	}
	c.JSON(http.StatusOK, verification)
}

// GetApprovalContext endpoint
func (ac *ApprovalController) GetApprovalContext(c *gin.Context) {
	appCtx, ok := util.GetAppContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", clearance_errors.ErrUnauthorized)
		return
	}

	context, err := ac.approvalService.GetApprovalContext(c, c.Param("id"), appCtx.PrincipalID)
	if err != nil {
		if errors.Is(err, clearance_errors.ErrApprovalNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Approval not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to assemble approval context", err)
		}
		return
	}
	c.JSON(http.StatusOK, context)
}

// ListEvidence endpoint
func (ac *ApprovalController) ListEvidence(c *gin.Context) {
	entries, err := ac.auditService.ListEntries(c, c.Param("id"))
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list evidence", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// VerifyEvidenceChain endpoint
func (ac *ApprovalController) VerifyEvidenceChain(c *gin.Context) {
	violations, err := ac.auditService.VerifyChain(c, c.Param("id"))
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to verify evidence chain", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"intact":     len(violations) == 0,
		"violations": violations,
	})
}

func (ac *ApprovalController) respondLifecycleError(c *gin.Context, err error, fallback string) {
	var transitionErr *lifecycle.TransitionError
	switch {
	case errors.As(err, &transitionErr):
		util.RespondWithError(c, http.StatusConflict, transitionErr.Error(), err)
	case errors.Is(err, clearance_errors.ErrApprovalNotFound):
		util.RespondWithError(c, http.StatusNotFound, "Approval not found", err)
	case errors.Is(err, clearance_errors.ErrApprovalConflict):
		util.RespondWithError(c, http.StatusConflict, "Approval status changed concurrently", err)
	case errors.Is(err, clearance_errors.ErrDatabaseOperation):
		util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
	default:
		util.RespondWithError(c, http.StatusBadRequest, fallback, err)
	}
}
