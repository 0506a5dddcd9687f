// router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clearops/clearance/controller"
	"github.com/clearops/clearance/middleware"
)

func SetupRouter(
	controllers *controller.Controllers,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))
	router.Use(middleware.AppContext())

	api := router.Group("/api/v1")

	controllers.Approval.RegisterRoutes(api)
	controllers.Policy.RegisterRoutes(api)
	controllers.Token.RegisterRoutes(api)
	controllers.Delegation.RegisterRoutes(api)

	return router
}
