package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/mail"
	"strings"
	"time"

	"github.com/osa911/enquiryd/internal/api/sanitization"
	"github.com/osa911/enquiryd/internal/config"
	"github.com/osa911/enquiryd/internal/logging"
	"github.com/osa911/enquiryd/internal/metrics"
	"github.com/osa911/enquiryd/internal/telemetry"

	"github.com/microcosm-cc/bluemonday"
	"github.com/resend/resend-go/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const providerResend = "resend"

// EmailSender is the subset of the Resend emails API used for dispatch
type EmailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// MailService relays enquiries through the Resend API
type MailService struct {
	config  config.MailConfig
	sender  EmailSender
	html    *template.Template
	policy  *bluemonday.Policy
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewMailService creates the dispatcher. Without an API key the service is
// disabled and Send must not be called.
func NewMailService(cfg config.MailConfig, m *metrics.Metrics, logger *logging.Logger) *MailService {
	s := &MailService{
		config:  cfg,
		html:    template.Must(template.New("enquiry").Funcs(template.FuncMap{"nl2br": sanitization.MultilineHTML}).Parse(enquiryEmailTemplate)),
		policy:  bluemonday.UGCPolicy(),
		metrics: m,
		logger:  logger,
	}
	if cfg.Enabled() {
		s.sender = resend.NewClient(cfg.APIKey).Emails
		logger.Info("Email dispatch enabled: provider=%s from=%s to=%s", providerResend, cfg.From, cfg.To)
	} else {
		logger.Warn("RESEND_API_KEY not set. Email sending is disabled.")
	}
	return s
}

// WithSender replaces the provider client; used to point the service at a stub
func (s *MailService) WithSender(sender EmailSender) *MailService {
	s.sender = sender
	return s
}

// Enabled reports whether dispatch will reach the provider
func (s *MailService) Enabled() bool {
	return s.sender != nil
}

// BuildMessage renders the provider request for a submission
func (s *MailService) BuildMessage(sub Submission) (*resend.SendEmailRequest, error) {
	var body bytes.Buffer
	if err := s.html.Execute(&body, sub); err != nil {
		return nil, fmt.Errorf("failed to execute email template: %w", err)
	}

	subjectName := sanitization.SingleLine(sub.Name)

	params := &resend.SendEmailRequest{
		From:    s.config.From,
		To:      []string{s.config.To},
		Subject: fmt.Sprintf("Contact form message from %s", subjectName),
		Text:    fmt.Sprintf("You received a message from %s <%s>:\n\n%s", sub.Name, sub.Email, sub.Message),
		Html:    s.policy.Sanitize(body.String()),
	}
	if _, err := mail.ParseAddress(sub.Email); err == nil {
		params.ReplyTo = sub.Email
	}
	return params, nil
}

// Send dispatches the submission. Failures are returned as *DispatchError.
func (s *MailService) Send(ctx context.Context, sub Submission) error {
	if s.sender == nil {
		return ErrMailNotConfigured
	}

	ctx, span := telemetry.Tracer("mail").Start(ctx, "email.send")
	span.SetAttributes(attribute.String("email.provider", providerResend))
	defer span.End()

	params, err := s.BuildMessage(sub)
	if err != nil {
		s.metrics.Dispatches.WithLabelValues(metrics.ResultError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return &DispatchError{Provider: providerResend, Err: err}
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.sender.SendWithContext(ctx, params)
	s.metrics.DispatchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.Dispatches.WithLabelValues(metrics.ResultError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")

		cause := s.scrub(err.Error())
		dispatchErr := &DispatchError{Provider: providerResend, Err: err, cause: cause}
		if !isTransportError(err) {
			dispatchErr.Detail = cause
		}
		s.logger.Error("Email dispatch failed for request %s: %s", sub.RequestID, cause)
		return dispatchErr
	}

	s.metrics.Dispatches.WithLabelValues(metrics.ResultSuccess).Inc()
	if resp != nil {
		span.SetAttributes(attribute.String("email.id", resp.Id))
		s.logger.Info("Email dispatched for request %s (id=%s)", sub.RequestID, resp.Id)
	}
	return nil
}

// scrub removes the API key from provider supplied text
func (s *MailService) scrub(text string) string {
	if s.config.APIKey == "" {
		return text
	}
	return strings.ReplaceAll(text, s.config.APIKey, "[REDACTED]")
}

func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

const enquiryEmailTemplate = `<p><strong>From:</strong> {{.Name}} &lt;{{.Email}}&gt;</p>
<hr/>
<div>{{nl2br .Message}}</div>
{{- if .Source}}
<p><small>Source: {{.Source}}</small></p>
{{- end}}
`
