package routes

import (
	"github.com/osa911/enquiryd/internal/api/handlers"
	"github.com/osa911/enquiryd/internal/api/middleware"
	"github.com/osa911/enquiryd/internal/logging"
	"github.com/osa911/enquiryd/internal/metrics"
	"github.com/osa911/enquiryd/internal/service"
)

// Handlers contains all the route handlers
type Handlers struct {
	Health  *handlers.HealthHandler
	Enquiry *handlers.EnquiryHandler
}

// Middleware contains all the middleware and the state it needs
type Middleware struct {
	Validation *middleware.ValidationMiddleware
	// RateLimiter is nil when per-client limiting is disabled
	RateLimiter service.RateLimiter
	// Throttle is the per-client token bucket for the submission routes
	Throttle    middleware.RateLimitConfig
	Metrics     *metrics.Metrics
	Logger      *logging.Logger
}

// GlobalOptions configures middleware applied to every route
type GlobalOptions struct {
	TracingEnabled bool
	Production     bool
	AllowedOrigins []string
	MaxBodyBytes   int64
}
