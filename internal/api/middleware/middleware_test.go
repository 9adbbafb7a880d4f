package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/osa911/enquiryd/internal/api/constants"
	"github.com/osa911/enquiryd/internal/logging"
	"github.com/osa911/enquiryd/internal/metrics"
	"github.com/osa911/enquiryd/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logging.Logger {
	return logging.New(io.Discard, logging.LevelError)
}

func okHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type errLimiter struct{}

func (errLimiter) Allow(context.Context, string) (service.RateLimitDecision, error) {
	return service.RateLimitDecision{}, errors.New("redis: connection refused")
}

func (errLimiter) Close() error { return nil }

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(RateLimitConfig{RPS: 1, Burst: 2}))
	router.GET("/", okHandler)

	request := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":40000"
		return serve(router, req)
	}

	assert.Equal(t, http.StatusOK, request("192.0.2.1").Code)
	assert.Equal(t, http.StatusOK, request("192.0.2.1").Code)

	w := request("192.0.2.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), RateLimitMessage)

	// A flood from one address leaves other clients their full burst
	assert.Equal(t, http.StatusOK, request("192.0.2.2").Code)
	assert.Equal(t, http.StatusOK, request("192.0.2.2").Code)
}

func TestClientThrottleSweepsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	throttle := NewClientThrottle(RateLimitConfig{RPS: 1, Burst: 1})
	throttle.now = func() time.Time { return now }
	throttle.lastSweep = now

	allowed, _ := throttle.Allow("192.0.2.1")
	assert.True(t, allowed)
	allowed, wait := throttle.Allow("192.0.2.1")
	assert.False(t, allowed)
	assert.Greater(t, wait, time.Duration(0))
	assert.Equal(t, 1, throttle.Len())

	now = now.Add(2 * sweepInterval)
	allowed, _ = throttle.Allow("192.0.2.2")
	assert.True(t, allowed)
	assert.Equal(t, 1, throttle.Len())
}

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(RateLimitConfig{}))
	router.GET("/", okHandler)

	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestEnquiryRateLimit(t *testing.T) {
	limiter := service.NewMemoryRateLimiter(2, time.Minute)
	t.Cleanup(func() { _ = limiter.Close() })
	m := metrics.New()

	router := gin.New()
	router.POST("/send", EnquiryRateLimit(limiter, m, testLogger()), okHandler)

	request := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/send", nil)
		req.RemoteAddr = ip + ":40000"
		return serve(router, req)
	}

	w := request("192.0.2.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

	assert.Equal(t, http.StatusOK, request("192.0.2.1").Code)

	w = request("192.0.2.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, request("192.0.2.2").Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Submissions.WithLabelValues(metrics.OutcomeRateLimited)))
}

func TestEnquiryRateLimitFailsOpen(t *testing.T) {
	router := gin.New()
	router.POST("/send", EnquiryRateLimit(errLimiter{}, metrics.New(), testLogger()), okHandler)

	w := serve(router, httptest.NewRequest(http.MethodPost, "/send", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		wantHSTS   bool
	}{
		{name: "development", production: false, wantHSTS: false},
		{name: "production", production: true, wantHSTS: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(SecurityHeaders(tt.production))
			router.GET("/", okHandler)

			w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, tt.wantHSTS, w.Header().Get("Strict-Transport-Security") != "")
		})
	}
}

func TestLimitRequestBody(t *testing.T) {
	router := gin.New()
	router.Use(LimitRequestBody(16))
	router.POST("/", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if IsBodyTooLarge(err) {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := serve(router, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), PayloadTooLargeMessage)

	// Unknown length is enforced while reading
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
	req.ContentLength = -1
	w = serve(router, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(constants.ContextKeyRequestID))
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(constants.HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(constants.HeaderRequestID, "client-supplied")
	w = serve(router, req)
	assert.Equal(t, "client-supplied", w.Header().Get(constants.HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(constants.HeaderRequestID, strings.Repeat("a", 200))
	w = serve(router, req)
	assert.Len(t, w.Header().Get(constants.HeaderRequestID), 36)
}

func TestRecovery(t *testing.T) {
	var logs strings.Builder
	router := gin.New()
	router.Use(Recovery(logging.New(&logs, logging.LevelError)))
	router.GET("/", func(*gin.Context) {
		panic(errors.New("boom"))
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
	assert.NotContains(t, w.Body.String(), "boom")
	assert.Contains(t, logs.String(), "boom")
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"https://www.example.com/", " https://app.example.com"}))
	router.POST("/send", okHandler)

	req := httptest.NewRequest(http.MethodPost, "/send", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := serve(router, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodPost, "/send", nil)
	req.Header.Set("Origin", "https://www.example.com")
	w = serve(router, req)
	assert.Equal(t, "https://www.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowAll(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"*"}))
	router.POST("/send", okHandler)

	req := httptest.NewRequest(http.MethodPost, "/send", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	w := serve(router, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
