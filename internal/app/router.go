package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/handler"
	"ridehail/internal/middleware"
	"ridehail/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	UserHandler      *handler.UserHandler
	CabHandler       *handler.CabHandler
	OrderHandler     *handler.OrderHandler
	Identity         middleware.IdentityResolver
	IdempotencyStore *redis.IdempotencyStore
	CORSOrigins      []string
	Logger           logrus.FieldLogger
	NewRelicApp      *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(handler.Recovery(deps.Logger))
	router.Use(middleware.CORS(deps.CORSOrigins))

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.TransactionAttributes())
	}

	router.Use(handler.ErrorHandler(deps.Logger))
	router.NoRoute(handler.NotFound)

	router.GET("/health", handler.Health)

	authenticate := middleware.Authenticate(deps.Identity)
	driverOnly := middleware.Authorize(domain.RoleDriver)

	users := router.Group("/users")
	{
		users.POST("/register", deps.UserHandler.Register)
		users.POST("/login", deps.UserHandler.Login)
	}

	cabs := router.Group("/cabs")
	{
		cabs.GET("", deps.CabHandler.List)
		cabs.GET("/:id", deps.CabHandler.Get)
		cabs.POST("", authenticate, driverOnly, deps.CabHandler.Create)
		cabs.PUT("/:id", authenticate, driverOnly, deps.CabHandler.Update)
	}

	orders := router.Group("/orders", authenticate)
	{
		orders.POST("",
			middleware.Authorize(domain.RoleUser),
			middleware.Idempotency(deps.IdempotencyStore, deps.Logger),
			deps.OrderHandler.Create,
		)
		orders.GET("", deps.OrderHandler.List)
		orders.GET("/:id", deps.OrderHandler.Get)
		orders.PUT("/:id", driverOnly, deps.OrderHandler.UpdateStatus)
		orders.GET("/:id/track", deps.OrderHandler.Track)
		orders.PUT("/:id/track", driverOnly, deps.OrderHandler.UpdateLocation)
	}

	return router
}
