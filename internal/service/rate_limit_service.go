package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitDecision describes the state of a client's window after a request
type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetIn is the time left until the current window closes
	ResetIn time.Duration
}

// RateLimiter counts requests per key inside a fixed window.
// Implementations must be safe for concurrent use.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateLimitDecision, error)
	Close() error
}

type windowCounter struct {
	count   int
	resetAt time.Time
}

// MemoryRateLimiter is a process local fixed window limiter keyed by client address
type MemoryRateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	counters map[string]*windowCounter

	stop      chan struct{}
	closeOnce sync.Once
}

// NewMemoryRateLimiter creates a limiter allowing limit requests per window for each key
// and starts a janitor that drops expired windows.
func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	rl := newMemoryRateLimiter(limit, window, time.Now)
	go rl.cleanupLoop(window)
	return rl
}

func newMemoryRateLimiter(limit int, window time.Duration, now func() time.Time) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		limit:    limit,
		window:   window,
		now:      now,
		counters: make(map[string]*windowCounter),
		stop:     make(chan struct{}),
	}
}

// Allow records a request for key and reports whether it fits in the window
func (rl *MemoryRateLimiter) Allow(_ context.Context, key string) (RateLimitDecision, error) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	counter, ok := rl.counters[key]
	if !ok || !now.Before(counter.resetAt) {
		counter = &windowCounter{resetAt: now.Add(rl.window)}
		rl.counters[key] = counter
	}
	counter.count++

	return decision(counter.count, rl.limit, counter.resetAt.Sub(now)), nil
}

// Cleanup removes windows that have already closed
func (rl *MemoryRateLimiter) Cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, counter := range rl.counters {
		if !now.Before(counter.resetAt) {
			delete(rl.counters, key)
		}
	}
}

// Len returns the number of tracked keys
func (rl *MemoryRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.counters)
}

func (rl *MemoryRateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.Cleanup()
		case <-rl.stop:
			return
		}
	}
}

// Close stops the janitor goroutine
func (rl *MemoryRateLimiter) Close() error {
	rl.closeOnce.Do(func() {
		close(rl.stop)
	})
	return nil
}

// RedisRateLimiter shares fixed windows between processes through Redis
type RedisRateLimiter struct {
	redis     *redis.Client
	keyPrefix string
	limit     int
	window    time.Duration
}

// NewRedisRateLimiter creates a Redis backed limiter
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		redis:     client,
		keyPrefix: "ratelimit:enquiry:",
		limit:     limit,
		window:    window,
	}
}

// NewRedisRateLimiterFromURL parses a redis:// URL and verifies the connection
func NewRedisRateLimiterFromURL(ctx context.Context, url string, limit int, window time.Duration) (*RedisRateLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisRateLimiter(client, limit, window), nil
}

// Allow increments the key's counter, starting the window on the first hit
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (RateLimitDecision, error) {
	rKey := rl.keyPrefix + key

	count, err := rl.redis.Incr(ctx, rKey).Result()
	if err != nil {
		return RateLimitDecision{}, fmt.Errorf("rate limit increment failed: %w", err)
	}

	resetIn := rl.window
	if count == 1 {
		if err := rl.redis.Expire(ctx, rKey, rl.window).Err(); err != nil {
			return RateLimitDecision{}, fmt.Errorf("rate limit expire failed: %w", err)
		}
	} else {
		ttl, err := rl.redis.TTL(ctx, rKey).Result()
		if err != nil {
			return RateLimitDecision{}, fmt.Errorf("rate limit ttl failed: %w", err)
		}
		if ttl > 0 {
			resetIn = ttl
		} else {
			// The key lost its expiry; restore it so the client is not locked out forever.
			if err := rl.redis.Expire(ctx, rKey, rl.window).Err(); err != nil {
				return RateLimitDecision{}, fmt.Errorf("rate limit expire failed: %w", err)
			}
		}
	}

	return decision(int(count), rl.limit, resetIn), nil
}

// Close releases the Redis connection pool
func (rl *RedisRateLimiter) Close() error {
	return rl.redis.Close()
}

func decision(count, limit int, resetIn time.Duration) RateLimitDecision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitDecision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetIn:   resetIn,
	}
}
