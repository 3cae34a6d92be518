package routes

import (
	"net/http"

	coreport "github.com/amirhossein-jamali/paylink/internal/domain/port/core"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/api/handler"
	"github.com/amirhossein-jamali/paylink/internal/infrastructure/adapter/api/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers groups the API handlers
type Handlers struct {
	Link        *handler.LinkHandler
	Payment     *handler.PaymentHandler
	Transaction *handler.TransactionHandler
	Health      *handler.HealthHandler
}

// Options configures route-level middlewares
type Options struct {
	Auth        middleware.AuthConfig
	RateLimiter *middleware.RateLimiter // Nil disables rate limiting of the public endpoints
	RateMetrics middleware.RateLimitRecorder
	MetricsPath string
	Metrics     http.Handler // Nil disables the metrics endpoint
}

// SetupRoutes configures all the routes for the API
func SetupRoutes(router *gin.Engine, handlers Handlers, opts Options) {
	router.GET("/health", handlers.Health.Health)

	if opts.Metrics != nil && opts.MetricsPath != "" {
		router.GET(opts.MetricsPath, gin.WrapH(opts.Metrics))
	}

	v1 := router.Group("/api/v1")

	// Public payer routes
	payRoutes := v1.Group("/pay")
	if opts.RateLimiter != nil {
		payRoutes.Use(middleware.RateLimit(opts.RateLimiter, opts.RateMetrics))
	}
	{
		// GET /api/v1/pay/:token
		payRoutes.GET("/:token", handlers.Payment.GetPaymentLink)

		// POST /api/v1/pay/:token
		payRoutes.POST("/:token", handlers.Payment.Redeem)
	}

	// Owner routes
	owner := v1.Group("", middleware.OwnerAuth(opts.Auth))
	{
		owner.POST("/links", handlers.Link.CreateLink)
		owner.GET("/links", handlers.Link.ListLinks)
		owner.GET("/links/:token", handlers.Link.GetLink)
		owner.PATCH("/links/:token", handlers.Link.UpdateLink)
		owner.GET("/links/:token/transactions", handlers.Transaction.ListLinkTransactions)
		owner.GET("/transactions/:id", handlers.Transaction.GetTransaction)
	}
}

// SetupMiddlewares configures global middlewares for the API
func SetupMiddlewares(
	router *gin.Engine,
	logger coreport.Logger,
	recorder middleware.HTTPMetricsRecorder,
	allowedOrigins []string,
) {
	// Order matters: the request id must exist before anything logs, and errors
	// are rendered before the access log and metrics read the status
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	if recorder != nil {
		router.Use(middleware.Metrics(recorder))
	}
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.ErrorHandler(logger))
}
