package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RateLimitConfig is a token bucket: a sustained rate plus a burst.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimits keys limits by "METHOD /route/pattern" for HTTP and by
// full method name for gRPC.
var DefaultRateLimits = map[string]RateLimitConfig{
	// Session lifecycle. Creating sessions allocates timers.
	"POST /api/sessions":            {RequestsPerSecond: 5, BurstSize: 20},
	"POST /api/sessions/:id/switch": {RequestsPerSecond: 10, BurstSize: 20},
	"POST /api/sessions/:id/reset":  {RequestsPerSecond: 10, BurstSize: 20},

	// Clicks on the action button. Double clicks are expected.
	"POST /api/sessions/:id/advance": {RequestsPerSecond: 20, BurstSize: 40},

	// Signup writes hash passwords.
	"POST /api/signup":          {RequestsPerSecond: 2, BurstSize: 5},
	"POST /api/signup/validate": {RequestsPerSecond: 50, BurstSize: 100},

	// Streams limit connection rate, not message rate.
	"GET /api/sessions/:id/stream": {RequestsPerSecond: 10, BurstSize: 20},

	"/grpc.health.v1.Health/Check": {RequestsPerSecond: 1000, BurstSize: 1000},
	"/grpc.health.v1.Health/Watch": {RequestsPerSecond: 10, BurstSize: 20},
}

type tokenBucket struct {
	mu           sync.Mutex
	tokens       float64
	lastUpdate   time.Time
	ratePerSec   float64
	maxTokens    float64
	requestCount int64
	deniedCount  int64
	now          func() time.Time
}

func newTokenBucket(cfg RateLimitConfig, now func() time.Time) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(cfg.BurstSize),
		lastUpdate: now(),
		ratePerSec: cfg.RequestsPerSecond,
		maxTokens:  float64(cfg.BurstSize),
		now:        now,
	}
}

func (tb *tokenBucket) refill() {
	now := tb.now()
	tb.tokens += now.Sub(tb.lastUpdate).Seconds() * tb.ratePerSec
	if tb.tokens > tb.maxTokens {
		tb.tokens = tb.maxTokens
	}
	tb.lastUpdate = now
}

func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.requestCount++
	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens--
		return true
	}
	tb.deniedCount++
	return false
}

func (tb *tokenBucket) stats() (available float64, requestCount, deniedCount int64) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return tb.tokens, tb.requestCount, tb.deniedCount
}

// RateLimiter holds one bucket per configured key plus an optional global
// bucket. Keys without a configuration are not limited.
type RateLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*tokenBucket
	configs map[string]RateLimitConfig
	now     func() time.Time

	globalBucket *tokenBucket
	globalConfig *RateLimitConfig

	enabled bool
}

// RateLimiterOption configures the RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithLimits overrides limits for specific keys.
func WithLimits(limits map[string]RateLimitConfig) RateLimiterOption {
	return func(rl *RateLimiter) {
		for key, cfg := range limits {
			rl.configs[key] = cfg
		}
	}
}

// WithGlobalLimit sets a limit shared by every key.
func WithGlobalLimit(cfg RateLimitConfig) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.globalConfig = &cfg
		rl.globalBucket = newTokenBucket(cfg, rl.now)
	}
}

// WithEnabled enables or disables rate limiting.
func WithEnabled(enabled bool) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.enabled = enabled
	}
}

// withClock replaces the time source. Options are applied in order, so it
// must precede WithGlobalLimit.
func withClock(now func() time.Time) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.now = now
	}
}

// NewRateLimiter creates a limiter seeded with DefaultRateLimits.
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		configs: make(map[string]RateLimitConfig),
		now:     time.Now,
		enabled: true,
	}
	for key, cfg := range DefaultRateLimits {
		rl.configs[key] = cfg
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Allow reports whether a request for key may proceed, consuming a token.
func (rl *RateLimiter) Allow(key string) bool {
	if !rl.IsEnabled() {
		return true
	}
	if rl.globalBucket != nil && !rl.globalBucket.allow() {
		return false
	}
	bucket := rl.getBucket(key)
	if bucket == nil {
		return true
	}
	return bucket.allow()
}

func (rl *RateLimiter) getBucket(key string) *tokenBucket {
	rl.mu.RLock()
	bucket, exists := rl.buckets[key]
	rl.mu.RUnlock()
	if exists {
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if bucket, exists = rl.buckets[key]; exists {
		return bucket
	}
	cfg, ok := rl.configs[key]
	if !ok {
		return nil
	}
	bucket = newTokenBucket(cfg, rl.now)
	rl.buckets[key] = bucket
	return bucket
}

// LimitStats describes one bucket.
type LimitStats struct {
	Key              string  `json:"key"`
	Available        float64 `json:"available"`
	RequestsPerSec   float64 `json:"requests_per_sec"`
	BurstSize        int     `json:"burst_size"`
	TotalRequests    int64   `json:"total_requests"`
	DeniedRequests   int64   `json:"denied_requests"`
	DeniedPercentage float64 `json:"denied_percentage"`
}

// Stats returns statistics for every configured key.
func (rl *RateLimiter) Stats() []LimitStats {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	out := make([]LimitStats, 0, len(rl.configs))
	for key, cfg := range rl.configs {
		s := LimitStats{Key: key, RequestsPerSec: cfg.RequestsPerSecond, BurstSize: cfg.BurstSize}
		if bucket, ok := rl.buckets[key]; ok {
			s.Available, s.TotalRequests, s.DeniedRequests = bucket.stats()
			if s.TotalRequests > 0 {
				s.DeniedPercentage = float64(s.DeniedRequests) / float64(s.TotalRequests) * 100
			}
		} else {
			s.Available = float64(cfg.BurstSize)
		}
		out = append(out, s)
	}
	return out
}

// SetEnabled enables or disables rate limiting at runtime.
func (rl *RateLimiter) SetEnabled(enabled bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.enabled = enabled
}

// IsEnabled returns whether rate limiting is on.
func (rl *RateLimiter) IsEnabled() bool {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.enabled
}

// Middleware limits gin routes by method and route pattern.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Request.Method + " " + c.FullPath()
		if !rl.Allow(key) {
			rateLimitedTotal.WithLabelValues(key).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// UnaryServerInterceptor applies rate limiting to unary gRPC calls.
func (rl *RateLimiter) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !rl.Allow(info.FullMethod) {
			return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded for method %s", info.FullMethod)
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor limits the rate of stream creation.
func (rl *RateLimiter) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if !rl.Allow(info.FullMethod) {
			return status.Errorf(codes.ResourceExhausted, "rate limit exceeded for stream %s", info.FullMethod)
		}
		return handler(srv, ss)
	}
}
