package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/syllabus/internal/auth"
	"github.com/conneroisu/syllabus/internal/config"
	"github.com/conneroisu/syllabus/internal/errors"
	"github.com/conneroisu/syllabus/internal/logging"
)

// bucketIdle is how long an unused bucket is kept.
const bucketIdle = 10 * time.Minute

// RateLimiter implements token bucket rate limiting per client address.
type RateLimiter struct {
	buckets     map[string]*TokenBucket
	bucketMutex sync.RWMutex
	config      config.RateLimitConfig
	logger      logging.Logger
	now         func() time.Time
}

// TokenBucket holds the tokens of one client.
type TokenBucket struct {
	tokens     int
	capacity   int
	refillRate int // tokens per minute
	lastRefill time.Time
	lastAccess time.Time
	mutex      sync.Mutex
}

// RateLimitResult is the outcome of one check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	ResetTime  time.Time
}

// NewRateLimiter creates a limiter. Idle buckets are dropped by Cleanup,
// which the server calls periodically.
func NewRateLimiter(cfg config.RateLimitConfig, logger logging.Logger) *RateLimiter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Check consumes a token for key, usually a client address.
func (rl *RateLimiter) Check(key string) RateLimitResult {
	if !rl.config.Enabled {
		return RateLimitResult{Allowed: true, Remaining: rl.config.Burst}
	}
	now := rl.now()
	return rl.getBucket(key, now).consume(now)
}

func (rl *RateLimiter) getBucket(key string, now time.Time) *TokenBucket {
	rl.bucketMutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.bucketMutex.RUnlock()
	if exists {
		return bucket
	}

	rl.bucketMutex.Lock()
	defer rl.bucketMutex.Unlock()
	if bucket, exists := rl.buckets[key]; exists {
		return bucket
	}
	bucket = &TokenBucket{
		tokens:     rl.config.Burst,
		capacity:   rl.config.Burst,
		refillRate: rl.config.RequestsPerMinute,
		lastRefill: now,
		lastAccess: now,
	}
	rl.buckets[key] = bucket
	return bucket
}

func (tb *TokenBucket) consume(now time.Time) RateLimitResult {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.lastAccess = now
	tb.refill(now)

	if tb.tokens > 0 {
		tb.tokens--
		return RateLimitResult{
			Allowed:   true,
			Remaining: tb.tokens,
			ResetTime: now.Add(time.Minute),
		}
	}

	retryAfter := time.Minute / time.Duration(tb.refillRate)
	return RateLimitResult{
		Allowed:    false,
		RetryAfter: retryAfter,
		ResetTime:  now.Add(retryAfter),
	}
}

// refill adds the tokens earned since the last refill.
func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill)
	if elapsed < time.Second {
		return
	}
	tokensToAdd := int(elapsed.Minutes() * float64(tb.refillRate))
	if tokensToAdd > 0 {
		tb.tokens += tokensToAdd
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}
}

// Cleanup removes buckets unused for ten minutes and returns how many it
// removed.
func (rl *RateLimiter) Cleanup(now time.Time) int {
	rl.bucketMutex.Lock()
	defer rl.bucketMutex.Unlock()

	removed := 0
	for key, bucket := range rl.buckets {
		bucket.mutex.Lock()
		if now.Sub(bucket.lastAccess) > bucketIdle {
			delete(rl.buckets, key)
			removed++
		}
		bucket.mutex.Unlock()
	}
	return removed
}

// Stats reports the limiter settings and its live buckets.
func (rl *RateLimiter) Stats() map[string]interface{} {
	rl.bucketMutex.RLock()
	defer rl.bucketMutex.RUnlock()
	return map[string]interface{}{
		"enabled":          rl.config.Enabled,
		"requests_per_min": rl.config.RequestsPerMinute,
		"burst_size":       rl.config.Burst,
		"active_buckets":   len(rl.buckets),
	}
}

// RateLimitMiddleware answers 429 once a client has used up its bucket.
// API routes get the JSON error body the other API failures use.
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	message := auth.NormalizeErrorCode(auth.CodeTooManyRequests)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			result := limiter.Check(ip)

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.config.RequestsPerMinute))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetTime.Unix()))

			if !result.Allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", result.RetryAfter.Seconds()))
				limiter.logger.Warn(r.Context(),
					errors.NewSecurityError("RATE_LIMIT_EXCEEDED", "Rate limit exceeded"),
					"Rate limit exceeded",
					"client_ip", ip,
					"path", r.URL.Path,
					"method", r.Method)

				if strings.HasPrefix(r.URL.Path, "/api/") {
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("Cache-Control", "no-store")
					w.WriteHeader(http.StatusTooManyRequests)
					_ = json.NewEncoder(w).Encode(apiResponse{Error: message})
					return
				}
				http.Error(w, message, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
