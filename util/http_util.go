// util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/clearops/clearance/logging"
	"github.com/clearops/clearance/model"
)

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

func GetAppContext(c *gin.Context) (model.AppContext, bool) {
	value, exists := c.Get("appContext")
	if !exists {
		return model.AppContext{}, false
	}
	appCtx, ok := value.(model.AppContext)
	return appCtx, ok
}
