package server

import (
	"github.com/osa911/enquiryd/internal/metrics"
	"github.com/osa911/enquiryd/internal/service"
)

// Option overrides a dependency the server would otherwise build from config
type Option func(*options)

type options struct {
	emailSender service.EmailSender
	rateLimiter service.RateLimiter
	store       service.FallbackStore
	metrics     *metrics.Metrics
}

// WithEmailSender routes dispatch through sender instead of the Resend client.
// It has no effect when no API key is configured.
func WithEmailSender(sender service.EmailSender) Option {
	return func(o *options) {
		o.emailSender = sender
	}
}

// WithRateLimiter replaces the limiter selected from config
func WithRateLimiter(limiter service.RateLimiter) Option {
	return func(o *options) {
		o.rateLimiter = limiter
	}
}

// WithFallbackStore replaces the fallback store selected from config
func WithFallbackStore(store service.FallbackStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithMetrics uses m instead of a fresh private registry
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
