package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/osa911/enquiryd/internal/api/constants"
	"github.com/osa911/enquiryd/internal/api/dto/common"
	"github.com/osa911/enquiryd/internal/api/dto/v1/enquiry"
	"github.com/osa911/enquiryd/internal/logging"
	"github.com/osa911/enquiryd/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSubmitter struct {
	err  error
	last service.Submission
}

func (s *stubSubmitter) Submit(_ context.Context, sub service.Submission) (*service.SubmitResult, error) {
	s.last = sub
	return &service.SubmitResult{}, s.err
}

func newContext(req *enquiry.EnquiryRequest) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/send", nil)
	c.Request.RemoteAddr = "192.0.2.10:5000"
	c.Set(constants.ContextKeyRequestID, "req-42")
	if req != nil {
		c.Set(constants.ContextKeyEnquiry, req)
	}
	return c, w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) common.ErrorResponse {
	t.Helper()
	var resp common.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.False(t, resp.Success)
	return *resp.Error
}

func TestEnquiryHandlerSubmitBuildsSubmission(t *testing.T) {
	submitter := &stubSubmitter{}
	h := NewEnquiryHandler(submitter, "website", logging.New(io.Discard, logging.LevelError))
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	c, w := newContext(&enquiry.EnquiryRequest{Name: "Ann", Email: "ann@x.com", Message: "Hi"})
	h.Submit(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"message":"Message sent successfully.","success":true}}`, w.Body.String())

	assert.Equal(t, service.Submission{
		Name:       "Ann",
		Email:      "ann@x.com",
		Message:    "Hi",
		Source:     "website",
		ClientIP:   "192.0.2.10",
		RequestID:  "req-42",
		ReceivedAt: fixed,
	}, submitter.last)
}

func TestEnquiryHandlerSubmitErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    common.ErrorCode
		wantMessage string
	}{
		{
			name:        "mail not configured",
			err:         service.ErrMailNotConfigured,
			wantStatus:  http.StatusInternalServerError,
			wantCode:    common.ErrCodeInternalServer,
			wantMessage: MessageMailUnavailable,
		},
		{
			name:        "provider rejected the message",
			err:         &service.DispatchError{Provider: "resend", Detail: "invalid from", Err: errors.New("422")},
			wantStatus:  http.StatusBadGateway,
			wantCode:    common.ErrCodeBadGateway,
			wantMessage: MessageDispatchFailed + providerHint,
		},
		{
			name:        "transport failure",
			err:         &service.DispatchError{Provider: "resend", Err: context.DeadlineExceeded},
			wantStatus:  http.StatusBadGateway,
			wantCode:    common.ErrCodeBadGateway,
			wantMessage: MessageDispatchFailed,
		},
		{
			name:        "unexpected error",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    common.ErrCodeInternalServer,
			wantMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs strings.Builder
			h := NewEnquiryHandler(&stubSubmitter{err: tt.err}, "", logging.New(&logs, logging.LevelError))
			c, w := newContext(&enquiry.EnquiryRequest{Name: "Ann", Email: "ann@x.com", Message: "Hi"})

			h.Submit(c)

			// The failure goes to the handler's own logger, tagged with the request id
			assert.Contains(t, logs.String(), "req-42")
			assert.Contains(t, logs.String(), tt.err.Error())

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, string(tt.wantCode), resp.Code)
			assert.Equal(t, tt.wantMessage, resp.Message)
			assert.NotContains(t, w.Body.String(), "boom")
		})
	}
}

func TestEnquiryHandlerMissingContext(t *testing.T) {
	submitter := &stubSubmitter{}
	var logs strings.Builder
	h := NewEnquiryHandler(submitter, "", logging.New(&logs, logging.LevelError))
	c, w := newContext(nil)

	h.Submit(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, logs.String(), "enquiry missing from context")
	assert.Empty(t, submitter.last.Email)
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	NewHealthHandler("production").Check(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","env":"production"}`, w.Body.String())
}
