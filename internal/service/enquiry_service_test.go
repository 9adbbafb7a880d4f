package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/osa911/enquiryd/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMailer struct {
	enabled bool
	err     error
	calls   int
}

func (m *stubMailer) Enabled() bool { return m.enabled }

func (m *stubMailer) Send(context.Context, Submission) error {
	m.calls++
	return m.err
}

type memoryStore struct {
	mu      sync.Mutex
	records []LogRecord
	err     error
}

func (s *memoryStore) Append(_ context.Context, record LogRecord) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *memoryStore) Close() error { return nil }

func TestEnquiryServiceSubmit(t *testing.T) {
	providerErr := &DispatchError{Provider: "resend", Detail: "invalid from address", Err: errors.New("422")}

	tests := []struct {
		name           string
		mailer         *stubMailer
		storeErr       error
		policy         EnquiryPolicy
		wantErr        error
		wantDispatched bool
		wantSkipped    bool
		wantPersisted  bool
		wantMailCalls  int
	}{
		{
			name:           "dispatched and persisted",
			mailer:         &stubMailer{enabled: true},
			wantDispatched: true,
			wantPersisted:  true,
			wantMailCalls:  1,
		},
		{
			name:          "no key skips dispatch but still persists",
			mailer:        &stubMailer{enabled: false},
			wantSkipped:   true,
			wantPersisted: true,
		},
		{
			name:          "no key with mail required is a configuration error",
			mailer:        &stubMailer{enabled: false},
			policy:        EnquiryPolicy{MailRequired: true},
			wantErr:       ErrMailNotConfigured,
			wantSkipped:   true,
			wantPersisted: true,
		},
		{
			name:          "dispatch failure fail-closed",
			mailer:        &stubMailer{enabled: true, err: providerErr},
			wantErr:       ErrDispatchFailed,
			wantPersisted: true,
			wantMailCalls: 1,
		},
		{
			name:          "dispatch failure fail-open",
			mailer:        &stubMailer{enabled: true, err: providerErr},
			policy:        EnquiryPolicy{FailOpen: true},
			wantPersisted: true,
			wantMailCalls: 1,
		},
		{
			name:           "persistence failure never surfaces",
			mailer:         &stubMailer{enabled: true},
			storeErr:       errors.New("disk full"),
			wantDispatched: true,
			wantMailCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{err: tt.storeErr}
			m := metrics.New()
			svc := NewEnquiryService(tt.mailer, store, tt.policy, m, testLogger())

			result, err := svc.Submit(context.Background(), testSubmission())

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.wantDispatched, result.Dispatched)
			assert.Equal(t, tt.wantSkipped, result.DispatchSkipped)
			assert.Equal(t, tt.wantPersisted, result.Persisted)
			assert.Equal(t, tt.wantMailCalls, tt.mailer.calls)

			if tt.wantPersisted {
				require.Len(t, store.records, 1)
				assert.Equal(t, "ann@x.com", store.records[0].Email)
				assert.Equal(t, tt.wantDispatched, store.records[0].Dispatched)
			}
		})
	}
}

func TestEnquiryServiceFailOpenKeepsError(t *testing.T) {
	providerErr := &DispatchError{Provider: "resend", Err: errors.New("timeout")}
	svc := NewEnquiryService(&stubMailer{enabled: true, err: providerErr}, &memoryStore{}, EnquiryPolicy{FailOpen: true}, metrics.New(), testLogger())

	result, err := svc.Submit(context.Background(), testSubmission())
	require.NoError(t, err)
	assert.ErrorIs(t, result.DispatchErr, ErrDispatchFailed)
}

func TestEnquiryServiceDoesNotDeduplicate(t *testing.T) {
	store := &memoryStore{}
	m := metrics.New()
	svc := NewEnquiryService(&stubMailer{enabled: true}, store, EnquiryPolicy{}, m, testLogger())

	for i := 0; i < 2; i++ {
		_, err := svc.Submit(context.Background(), testSubmission())
		require.NoError(t, err)
	}

	require.Len(t, store.records, 2)
	assert.Equal(t, store.records[0], store.records[1])
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Submissions.WithLabelValues(metrics.OutcomeAccepted)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Persists.WithLabelValues(metrics.ResultSuccess)))
}

func TestEnquiryServiceNoopStore(t *testing.T) {
	m := metrics.New()
	svc := NewEnquiryService(&stubMailer{enabled: false}, NoopFallbackStore{}, EnquiryPolicy{}, m, testLogger())

	result, err := svc.Submit(context.Background(), testSubmission())
	require.NoError(t, err)
	assert.False(t, result.Persisted)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Persists.WithLabelValues(metrics.ResultSkipped)))
}
