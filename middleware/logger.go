package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/clearops/clearance/logging"
	"github.com/clearops/clearance/util"
)

// Logger is a middleware that logs incoming HTTP requests. The
// correlation id is available once AppContext has run, so this logs it
// after the handler chain completes.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		}
		if appCtx, ok := util.GetAppContext(c); ok {
			fields = append(fields,
				zap.String("correlationId", appCtx.CorrelationID),
				zap.String("principalId", appCtx.PrincipalID))
		}

		switch {
		case len(c.Errors) > 0:
			fields = append(fields, zap.String("errors", c.Errors.String()))
			logger.Error("Request failed", fields...)
		case c.Writer.Status() >= 500:
			logger.Error("Request failed", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("Request rejected", fields...)
		default:
			logger.Info("Request processed", fields...)
		}
	}
}
