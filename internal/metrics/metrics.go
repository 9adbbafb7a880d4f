// Package metrics exposes Prometheus instrumentation for the enquiry pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes
const (
	OutcomeAccepted    = "accepted"
	OutcomeInvalid     = "invalid"
	OutcomeRateLimited = "rate_limited"
	OutcomeFailed      = "failed"
)

// Result labels for dispatch and persistence
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Metrics groups the collectors used by the service
type Metrics struct {
	Submissions      *prometheus.CounterVec
	Dispatches       *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
	Persists         *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry creates the collectors and registers them with reg.
// gatherer is used by Handler and may be nil when metrics are not served.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enquiryd_submissions_total",
			Help: "Enquiry submissions by outcome",
		}, []string{"outcome"}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enquiryd_email_dispatch_total",
			Help: "Email dispatch attempts by result",
		}, []string{"result"}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "enquiryd_email_dispatch_duration_seconds",
			Help:    "Time taken by the email provider to accept a message",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		}),
		Persists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enquiryd_fallback_append_total",
			Help: "Fallback log appends by result",
		}, []string{"result"}),
		gatherer: gatherer,
	}

	reg.MustRegister(m.Submissions, m.Dispatches, m.DispatchDuration, m.Persists)
	return m
}

// Handler serves the registered collectors in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
