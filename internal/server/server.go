package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/osa911/enquiryd/internal/api/handlers"
	"github.com/osa911/enquiryd/internal/api/middleware"
	"github.com/osa911/enquiryd/internal/api/validation"
	"github.com/osa911/enquiryd/internal/config"
	"github.com/osa911/enquiryd/internal/logging"
	"github.com/osa911/enquiryd/internal/metrics"
	"github.com/osa911/enquiryd/internal/server/routes"
	"github.com/osa911/enquiryd/internal/service"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// Server owns the HTTP router and every piece of state shared between requests
type Server struct {
	router  *gin.Engine
	cfg     *config.Config
	logger  *logging.Logger
	metrics *metrics.Metrics

	limiter service.RateLimiter
	store   service.FallbackStore
}

// NewServer builds the router and its dependencies from cfg
func NewServer(ctx context.Context, cfg *config.Config, logger *logging.Logger, opts ...Option) (*Server, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Disable Gin's default logger entirely because we're using our custom logger
	gin.DefaultWriter = io.Discard

	m := o.metrics
	if m == nil {
		m = metrics.New()
	}

	limiter := o.rateLimiter
	if limiter == nil && cfg.RateLimit.Enabled {
		var err error
		limiter, err = newRateLimiter(ctx, cfg.RateLimit, logger)
		if err != nil {
			return nil, err
		}
	}

	store := o.store
	if store == nil {
		var err error
		store, err = service.NewFallbackStore(cfg.Fallback)
		if err != nil {
			closeQuietly(limiter)
			return nil, err
		}
	}
	if cfg.Fallback.Enabled {
		logger.Info("Fallback log enabled: %s (%s)", cfg.Fallback.File, cfg.Fallback.Format)
	}

	mailer := service.NewMailService(cfg.Mail, m, logger)
	if o.emailSender != nil && mailer.Enabled() {
		mailer.WithSender(o.emailSender)
	}

	enquiries := service.NewEnquiryService(mailer, store, service.EnquiryPolicy{
		MailRequired: cfg.Mail.Required,
		FailOpen:     cfg.Mail.FailOpen(),
	}, m, logger)

	validator := validation.NewValidator(validation.Rules{
		NameMax:     cfg.Validation.NameMaxLength,
		MessageMax:  cfg.Validation.MessageMaxLength,
		StrictEmail: cfg.Validation.StrictEmail,
	})

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		closeQuietly(limiter)
		_ = store.Close()
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	routes.SetupGlobalMiddleware(router, logger, routes.GlobalOptions{
		TracingEnabled: cfg.OTLPEndpoint != "",
		Production:     cfg.IsProduction(),
		AllowedOrigins: cfg.FrontendOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	throttle := middleware.RateLimitConfig{
		RPS:   cfg.RateLimit.BurstRPS,
		Burst: cfg.RateLimit.BurstSize,
	}
	routes.Setup(router,
		&routes.Handlers{
			Health:  handlers.NewHealthHandler(cfg.Environment),
			Enquiry: handlers.NewEnquiryHandler(enquiries, cfg.Fallback.DefaultSource, logger),
		},
		&routes.Middleware{
			Validation:  middleware.NewValidationMiddleware(validator, m, logger),
			RateLimiter: limiter,
			Throttle:    throttle,
			Metrics:     m,
			Logger:      logger,
		},
	)

	return &Server{
		router:  router,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		limiter: limiter,
		store:   store,
	}, nil
}

func newRateLimiter(ctx context.Context, cfg config.RateLimitConfig, logger *logging.Logger) (service.RateLimiter, error) {
	if cfg.RedisURL != "" {
		limiter, err := service.NewRedisRateLimiterFromURL(ctx, cfg.RedisURL, cfg.Max, cfg.Window)
		if err != nil {
			return nil, err
		}
		logger.Info("Rate limiting via redis: %d requests per %s", cfg.Max, cfg.Window)
		return limiter, nil
	}

	logger.Info("Rate limiting in memory: %d requests per %s", cfg.Max, cfg.Window)
	return service.NewMemoryRateLimiter(cfg.Max, cfg.Window), nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the collectors used by the server
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Run serves until ctx is cancelled, then shuts down gracefully and releases state
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	servers := []*http.Server{{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if s.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler())
		servers = append(servers, &http.Server{
			Addr:              s.cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			s.logger.Info("Server listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen on %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Shutdown of %s failed: %v", srv.Addr, err)
		}
	}

	return runErr
}

// Close releases the rate limiter and the fallback log
func (s *Server) Close() {
	closeQuietly(s.limiter)
	if err := s.store.Close(); err != nil {
		s.logger.Warn("Failed to close fallback log: %v", err)
	}
}

func closeQuietly(limiter service.RateLimiter) {
	if limiter != nil {
		_ = limiter.Close()
	}
}
