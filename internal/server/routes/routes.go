package routes

import (
	"github.com/osa911/enquiryd/internal/api/handlers"
	"github.com/osa911/enquiryd/internal/api/middleware"
	"github.com/osa911/enquiryd/internal/logging"
	"github.com/osa911/enquiryd/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Submission endpoints. Both paths run the same pipeline.
const (
	PathSend    = "/send"
	PathEnquiry = "/api/enquiry"
)

// Setup configures all routes
func Setup(router *gin.Engine, h *Handlers, m *Middleware) {
	SetupHealthRoutes(router, h.Health)
	SetupEnquiryRoutes(router, h.Enquiry, m)
	router.NoRoute(handlers.NotFound)

	m.Logger.Debug("All routes have been set up successfully")
}

// SetupGlobalMiddleware configures middleware that applies to all routes
func SetupGlobalMiddleware(router *gin.Engine, logger *logging.Logger, opts GlobalOptions) {
	if opts.TracingEnabled {
		router.Use(otelgin.Middleware(telemetry.ServiceName))
	}
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders(opts.Production))
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.LimitRequestBody(opts.MaxBodyBytes))
}

// SetupHealthRoutes configures health check endpoints
func SetupHealthRoutes(router *gin.Engine, health *handlers.HealthHandler) {
	router.GET("/", health.Check)
}

// SetupEnquiryRoutes configures the public submission endpoints
func SetupEnquiryRoutes(router *gin.Engine, enquiry *handlers.EnquiryHandler, m *Middleware) {
	chain := []gin.HandlerFunc{middleware.RateLimitMiddleware(m.Throttle)}
	if m.RateLimiter != nil {
		chain = append(chain, middleware.EnquiryRateLimit(m.RateLimiter, m.Metrics, m.Logger))
	}
	chain = append(chain, m.Validation.ValidateEnquiryRequest(), enquiry.Submit)

	router.POST(PathSend, chain...)
	router.POST(PathEnquiry, chain...)
}
