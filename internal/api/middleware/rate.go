package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/osa911/enquiryd/internal/api/dto/common"
	"github.com/osa911/enquiryd/internal/logging"
	"github.com/osa911/enquiryd/internal/metrics"
	"github.com/osa911/enquiryd/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitMessage is returned to clients over their limit
const RateLimitMessage = "Too many requests, please try again later."

// RateLimitConfig defines configuration for the per-client token bucket
type RateLimitConfig struct {
	// Requests per second
	RPS int
	// Burst size (number of requests that can be made in a single burst)
	Burst int
}

// sweepInterval is how often idle client buckets are dropped
const sweepInterval = time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientThrottle keeps one token bucket per client address
type ClientThrottle struct {
	config RateLimitConfig
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*clientBucket
	lastSweep time.Time
}

// NewClientThrottle creates the throttle. RPS must be positive; Burst is raised to RPS when smaller.
func NewClientThrottle(config RateLimitConfig) *ClientThrottle {
	if config.Burst < config.RPS {
		config.Burst = config.RPS
	}
	return &ClientThrottle{
		config:    config,
		now:       time.Now,
		buckets:   make(map[string]*clientBucket),
		lastSweep: time.Now(),
	}
}

// Allow takes a token from key's bucket. On refusal it returns the wait until
// the next token.
func (t *ClientThrottle) Allow(key string) (bool, time.Duration) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if now.Sub(t.lastSweep) >= sweepInterval {
		t.sweep(now)
	}

	bucket, ok := t.buckets[key]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(rate.Limit(t.config.RPS), t.config.Burst)}
		t.buckets[key] = bucket
	}
	bucket.lastSeen = now

	if bucket.limiter.AllowN(now, 1) {
		return true, 0
	}
	tokens := bucket.limiter.TokensAt(now)
	return false, time.Duration((1 - tokens) / float64(t.config.RPS) * float64(time.Second))
}

// sweep drops buckets idle long enough to have refilled completely
func (t *ClientThrottle) sweep(now time.Time) {
	idle := sweepInterval
	if refill := time.Duration(float64(t.config.Burst) / float64(t.config.RPS) * float64(time.Second)); refill > idle {
		idle = refill
	}
	for key, bucket := range t.buckets {
		if now.Sub(bucket.lastSeen) >= idle {
			delete(t.buckets, key)
		}
	}
	t.lastSweep = now
}

// Len returns the number of tracked clients
func (t *ClientThrottle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buckets)
}

// RateLimitMiddleware throttles short bursts with a token bucket per client address.
// A non-positive RPS disables it.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.RPS <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	throttle := NewClientThrottle(config)

	return func(c *gin.Context) {
		allowed, wait := throttle.Allow(c.ClientIP())
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.NewErrorResponse(
				common.ErrCodeTooManyRequests,
				RateLimitMessage,
				nil,
			))
			return
		}

		c.Next()
	}
}

// EnquiryRateLimit counts requests per client address in a fixed window.
// Limiter errors let the request through so an unavailable store does not take the form down.
func EnquiryRateLimit(limiter service.RateLimiter, m *metrics.Metrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		decision, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn("Rate limit check failed for %s, allowing request: %v", key, err)
			c.Next()
			return
		}

		resetSeconds := int(math.Ceil(decision.ResetIn.Seconds()))
		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(decision.ResetIn).Unix(), 10))

		if !decision.Allowed {
			m.Submissions.WithLabelValues(metrics.OutcomeRateLimited).Inc()
			c.Header("Retry-After", strconv.Itoa(resetSeconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.NewErrorResponse(
				common.ErrCodeTooManyRequests,
				RateLimitMessage,
				nil,
			))
			return
		}

		c.Next()
	}
}
