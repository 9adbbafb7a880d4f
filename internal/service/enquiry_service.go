package service

import (
	"context"
	"time"

	"github.com/osa911/enquiryd/internal/logging"
	"github.com/osa911/enquiryd/internal/metrics"
)

// Submission is one validated enquiry plus request metadata
type Submission struct {
	Name       string
	Email      string
	Message    string
	Source     string
	ClientIP   string
	RequestID  string
	ReceivedAt time.Time
}

// Mailer dispatches a submission by email
type Mailer interface {
	Enabled() bool
	Send(ctx context.Context, sub Submission) error
}

// EnquiryPolicy controls how dispatch problems affect the response
type EnquiryPolicy struct {
	// MailRequired turns a missing API key into a configuration error
	MailRequired bool
	// FailOpen swallows dispatch errors instead of failing the request
	FailOpen bool
}

// SubmitResult reports what happened to an accepted submission
type SubmitResult struct {
	Dispatched bool
	// DispatchSkipped is set when no provider is configured
	DispatchSkipped bool
	Persisted       bool
	// DispatchErr holds a swallowed dispatch failure in fail-open mode
	DispatchErr error
}

// EnquiryService runs dispatch then fallback persistence for each submission
type EnquiryService struct {
	mailer  Mailer
	store   FallbackStore
	policy  EnquiryPolicy
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewEnquiryService wires the pipeline
func NewEnquiryService(mailer Mailer, store FallbackStore, policy EnquiryPolicy, m *metrics.Metrics, logger *logging.Logger) *EnquiryService {
	return &EnquiryService{
		mailer:  mailer,
		store:   store,
		policy:  policy,
		metrics: m,
		logger:  logger,
	}
}

// Submit dispatches and persists a submission.
//
// The record is appended after the dispatch attempt whatever its outcome; an
// append failure is logged and never changes the result. The returned error is
// ErrMailNotConfigured when dispatch is required but disabled, or a
// *DispatchError when dispatch failed in fail-closed mode.
func (s *EnquiryService) Submit(ctx context.Context, sub Submission) (*SubmitResult, error) {
	result := &SubmitResult{}

	var outcomeErr error
	switch {
	case !s.mailer.Enabled():
		result.DispatchSkipped = true
		s.metrics.Dispatches.WithLabelValues(metrics.ResultSkipped).Inc()
		if s.policy.MailRequired {
			outcomeErr = ErrMailNotConfigured
		}
	default:
		err := s.mailer.Send(ctx, sub)
		switch {
		case err == nil:
			result.Dispatched = true
		case s.policy.FailOpen:
			result.DispatchErr = err
			s.logger.Warn("Continuing after dispatch failure (fail-open) for request %s", sub.RequestID)
		default:
			outcomeErr = err
		}
	}

	s.persist(ctx, sub, result)

	if outcomeErr != nil {
		s.metrics.Submissions.WithLabelValues(metrics.OutcomeFailed).Inc()
		return result, outcomeErr
	}

	s.metrics.Submissions.WithLabelValues(metrics.OutcomeAccepted).Inc()
	return result, nil
}

func (s *EnquiryService) persist(ctx context.Context, sub Submission, result *SubmitResult) {
	if _, noop := s.store.(NoopFallbackStore); noop {
		s.metrics.Persists.WithLabelValues(metrics.ResultSkipped).Inc()
		return
	}

	if err := s.store.Append(ctx, NewLogRecord(sub, result.Dispatched)); err != nil {
		s.metrics.Persists.WithLabelValues(metrics.ResultError).Inc()
		s.logger.Warn("Could not write enquiry log for request %s: %v", sub.RequestID, err)
		return
	}

	result.Persisted = true
	s.metrics.Persists.WithLabelValues(metrics.ResultSuccess).Inc()
}
