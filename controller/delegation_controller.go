// controller/delegation_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clearops/clearance/delegation"
	clearance_errors "github.com/clearops/clearance/errors"
	"github.com/clearops/clearance/service"
	"github.com/clearops/clearance/util"
)

type DelegationController struct {
	delegationService service.IDelegationService
}

func NewDelegationController(delegationService service.IDelegationService) *DelegationController {
	return &DelegationController{
		delegationService: delegationService,
	}
}

// RegisterRoutes registers the API routes
func (dc *DelegationController) RegisterRoutes(r *gin.RouterGroup) {
	grants := r.Group("/delegations")
	{
		grants.POST("", dc.CreateGrant)
		grants.GET("/:id", dc.GetGrant)
		grants.GET("", dc.ListGrants)
		grants.POST("/:id/revoke", dc.RevokeGrant)
	}
}

// CreateGrant endpoint
func (dc *DelegationController) CreateGrant(c *gin.Context) {
	var input delegation.GrantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid delegation grant data", err)
		return
	}
	appCtx, ok := util.GetAppContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", clearance_errors.ErrUnauthorized)
		return
	}
	if input.DelegatorUserID == "" {
		input.DelegatorUserID = appCtx.PrincipalID
	}

	grant, err := dc.delegationService.CreateGrant(c, input)
	if err != nil {
		var validationErr *clearance_errors.DelegationValidationError
		switch {
		case errors.As(err, &validationErr):
			util.RespondWithError(c, http.StatusBadRequest, validationErr.Error(), err)
		case errors.Is(err, clearance_errors.ErrGrantConflict):
			util.RespondWithError(c, http.StatusConflict, "Delegation grant already exists", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create delegation grant", err)
		}
		return
	}

	c.JSON(http.StatusCreated, grant)
}

// GetGrant endpoint
func (dc *DelegationController) GetGrant(c *gin.Context) {
	grant, err := dc.delegationService.GetGrant(c, c.Param("id"))
	if err != nil {
		if errors.Is(err, clearance_errors.ErrGrantNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Delegation grant not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to get delegation grant", err)
		}
		return
	}
	c.JSON(http.StatusOK, grant)
}

// ListGrants endpoint lists grants where the caller is the delegate.
func (dc *DelegationController) ListGrants(c *gin.Context) {
	appCtx, ok := util.GetAppContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", clearance_errors.ErrUnauthorized)
		return
	}
	delegateUserID := c.DefaultQuery("delegateUserId", appCtx.PrincipalID)

	grants, err := dc.delegationService.ListGrantsForDelegate(c, delegateUserID)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list delegation grants", err)
		return
	}
	c.JSON(http.StatusOK, grants)
}

// RevokeGrant endpoint
func (dc *DelegationController) RevokeGrant(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid revocation data", err)
		return
	}
	appCtx, ok := util.GetAppContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", clearance_errors.ErrUnauthorized)
		return
	}

	grant, err := dc.delegationService.RevokeGrant(c, c.Param("id"), appCtx.PrincipalID, body.Reason)
	if err != nil {
		var validationErr *clearance_errors.DelegationValidationError
		switch {
		case errors.As(err, &validationErr):
			util.RespondWithError(c, http.StatusConflict, validationErr.Error(), err)
		case errors.Is(err, clearance_errors.ErrGrantNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Delegation grant not found", err)
		case errors.Is(err, clearance_errors.ErrGrantConflict):
			util.RespondWithError(c, http.StatusConflict, "Delegation grant already revoked", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to revoke delegation grant", err)
		}
		return
	}

	c.JSON(http.StatusOK, grant)
}
