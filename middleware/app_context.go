// middleware/app_context.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	logger "github.com/clearops/clearance/logging"
	"github.com/clearops/clearance/model"
)

const appContextKey = "appContext"

// AppContext resolves the caller identity the upstream authentication
// gateway has already verified and stamped onto the request. The engine
// treats every identity value as an opaque string; requests without a
// principal are rejected before they reach a controller.
func AppContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		principalID := c.GetHeader("X-Principal-Id")
		if principalID == "" {
			logger.Warn("Request without a resolved principal",
				zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		correlationID := c.GetHeader("X-Correlation-Id")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		appCtx := model.AppContext{
			TenantID:      c.GetHeader("X-Tenant-Id"),
			WorkspaceID:   c.GetHeader("X-Workspace-Id"),
			PrincipalID:   principalID,
			CorrelationID: correlationID,
		}
		if roles := c.GetHeader("X-Principal-Roles"); roles != "" {
			appCtx.Roles = strings.Split(roles, ",")
		}

		c.Set(appContextKey, appCtx)
		c.Header("X-Correlation-Id", correlationID)
		c.Next()
	}
}
