package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type manualTime struct {
	mu  sync.Mutex
	now time.Time
}

func newManualTime() *manualTime {
	return &manualTime{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *manualTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualTime) Add(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func TestTokenBucketAllow(t *testing.T) {
	clk := newManualTime()
	bucket := newTokenBucket(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5}, clk.Now)

	for i := 0; i < 5; i++ {
		if !bucket.allow() {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
	if bucket.allow() {
		t.Fatal("request 6 should be denied once burst is spent")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	clk := newManualTime()
	bucket := newTokenBucket(RateLimitConfig{RequestsPerSecond: 100, BurstSize: 1}, clk.Now)

	if !bucket.allow() {
		t.Fatal("first request should be allowed")
	}
	if bucket.allow() {
		t.Fatal("second request should be denied")
	}

	clk.Add(10 * time.Millisecond)
	if !bucket.allow() {
		t.Fatal("request after refill should be allowed")
	}
}

func TestTokenBucketCapsAtBurst(t *testing.T) {
	clk := newManualTime()
	bucket := newTokenBucket(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 2}, clk.Now)

	clk.Add(time.Hour)
	available, _, _ := bucket.stats()
	if available != 2 {
		t.Fatalf("available = %v, want 2", available)
	}
}

func TestTokenBucketStats(t *testing.T) {
	clk := newManualTime()
	bucket := newTokenBucket(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5}, clk.Now)

	for i := 0; i < 6; i++ {
		bucket.allow()
	}

	_, total, denied := bucket.stats()
	if total != 6 {
		t.Fatalf("total = %d, want 6", total)
	}
	if denied != 1 {
		t.Fatalf("denied = %d, want 1", denied)
	}
}

func TestRateLimiterUnknownKeyUnlimited(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < 1000; i++ {
		if !rl.Allow("GET /api/scripts") {
			t.Fatalf("unconfigured key denied at request %d", i)
		}
	}
}

func TestRateLimiterPerKey(t *testing.T) {
	clk := newManualTime()
	rl := NewRateLimiter(
		withClock(clk.Now),
		WithLimits(map[string]RateLimitConfig{
			"POST /api/sessions": {RequestsPerSecond: 1, BurstSize: 2},
		}),
	)

	if !rl.Allow("POST /api/sessions") || !rl.Allow("POST /api/sessions") {
		t.Fatal("burst requests should be allowed")
	}
	if rl.Allow("POST /api/sessions") {
		t.Fatal("third request should be denied")
	}
	if !rl.Allow("POST /api/signup") {
		t.Fatal("other keys keep their own bucket")
	}

	clk.Add(time.Second)
	if !rl.Allow("POST /api/sessions") {
		t.Fatal("request after one second should be allowed")
	}
}

func TestRateLimiterGlobalLimit(t *testing.T) {
	clk := newManualTime()
	rl := NewRateLimiter(withClock(clk.Now), WithGlobalLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 3}))

	allowed := 0
	for _, key := range []string{"a", "b", "c", "d", "e"} {
		if rl.Allow(key) {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("allowed = %d, want 3", allowed)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(
		WithEnabled(false),
		WithLimits(map[string]RateLimitConfig{"k": {RequestsPerSecond: 0, BurstSize: 0}}),
	)
	if !rl.Allow("k") {
		t.Fatal("disabled limiter should allow everything")
	}

	rl.SetEnabled(true)
	if !rl.IsEnabled() {
		t.Fatal("limiter should report enabled")
	}
	if rl.Allow("k") {
		t.Fatal("zero-burst bucket should deny once enabled")
	}
}

func TestRateLimiterStats(t *testing.T) {
	rl := NewRateLimiter(WithLimits(map[string]RateLimitConfig{
		"POST /api/signup": {RequestsPerSecond: 1, BurstSize: 1},
	}))
	rl.Allow("POST /api/signup")
	rl.Allow("POST /api/signup")

	var found bool
	for _, s := range rl.Stats() {
		if s.Key != "POST /api/signup" {
			continue
		}
		found = true
		if s.TotalRequests != 2 || s.DeniedRequests != 1 {
			t.Fatalf("stats = %+v, want 2 total and 1 denied", s)
		}
		if s.DeniedPercentage != 50 {
			t.Fatalf("denied percentage = %v, want 50", s.DeniedPercentage)
		}
	}
	if !found {
		t.Fatal("stats missing configured key")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(WithLimits(map[string]RateLimitConfig{
		"GET /limited/:id": {RequestsPerSecond: 0.001, BurstSize: 1},
	}))

	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/limited/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	got := make([]int, 0, 2)
	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/limited/"+id, nil))
		got = append(got, rec.Code)
	}
	if got[0] != http.StatusOK || got[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [200 429]; buckets are keyed by route pattern", got)
	}
}

func TestUnaryInterceptor(t *testing.T) {
	rl := NewRateLimiter(WithLimits(map[string]RateLimitConfig{
		"/test.Service/Method": {RequestsPerSecond: 0.001, BurstSize: 1},
	}))
	interceptor := rl.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/Method"}
	handler := func(ctx context.Context, req any) (any, error) { return "ok", nil }

	resp, err := interceptor(context.Background(), nil, info, handler)
	if err != nil || resp != "ok" {
		t.Fatalf("first call = %v, %v", resp, err)
	}

	_, err = interceptor(context.Background(), nil, info, handler)
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("second call code = %v, want ResourceExhausted", status.Code(err))
	}
}

func TestStreamInterceptor(t *testing.T) {
	rl := NewRateLimiter(WithLimits(map[string]RateLimitConfig{
		"/test.Service/Stream": {RequestsPerSecond: 0.001, BurstSize: 1},
	}))
	interceptor := rl.StreamServerInterceptor()
	info := &grpc.StreamServerInfo{FullMethod: "/test.Service/Stream"}
	handler := func(srv any, stream grpc.ServerStream) error { return nil }

	if err := interceptor(nil, nil, info, handler); err != nil {
		t.Fatalf("first stream: %v", err)
	}
	if err := interceptor(nil, nil, info, handler); status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("second stream code = %v, want ResourceExhausted", status.Code(err))
	}
}
