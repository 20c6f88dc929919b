package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestLimiter(rpm, burst int) *RateLimiter {
	return NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: rpm,
		BurstSize:         burst,
		CleanupInterval:   time.Minute,
	})
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	rl := newTestLimiter(60, 5)
	defer rl.Stop()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if allowed, _ := rl.Allow(ctx, "client-1"); !allowed {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}
}

func TestRateLimiter_BlocksOverBurst(t *testing.T) {
	rl := newTestLimiter(60, 3)
	defer rl.Stop()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		rl.Allow(ctx, "client-1")
	}
	if allowed, _ := rl.Allow(ctx, "client-1"); allowed {
		t.Error("request over burst should be blocked")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := newTestLimiter(60, 1)
	defer rl.Stop()

	ctx := context.Background()
	rl.Allow(ctx, "client-1")
	if allowed, _ := rl.Allow(ctx, "client-1"); allowed {
		t.Error("client-1 should be exhausted")
	}
	if allowed, _ := rl.Allow(ctx, "client-2"); !allowed {
		t.Error("client-2 should have its own budget")
	}
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	// 6000 rpm = 100 tokens/sec, so a short sleep refills at least one token.
	rl := newTestLimiter(6000, 1)
	defer rl.Stop()

	ctx := context.Background()
	rl.Allow(ctx, "client-1")
	if allowed, _ := rl.Allow(ctx, "client-1"); allowed {
		t.Fatal("budget should be exhausted immediately after burst")
	}

	time.Sleep(50 * time.Millisecond)
	if allowed, _ := rl.Allow(ctx, "client-1"); !allowed {
		t.Error("token should have refilled after waiting")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         2,
		CleanupInterval:   time.Minute,
	}
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	r := gin.New()
	r.Use(RateLimitMiddleware(rl, cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := do(); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, w.Code)
		}
	}

	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", w.Header().Get("Retry-After"))
	}
}

func TestRateLimitMiddleware_SetsHeaders(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	r := gin.New()
	r.Use(RateLimitMiddleware(rl, cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("X-RateLimit-Limit") == "" {
		t.Error("X-RateLimit-Limit header not set")
	}
	if w.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("X-RateLimit-Remaining header not set")
	}
}

func TestGetRateLimitKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("authenticated user", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Set("user_id", "user-42")
		if key := getRateLimitKey(c); key != "user:user-42" {
			t.Errorf("key = %q, want user:user-42", key)
		}
	})

	t.Run("anonymous falls back to IP", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.RemoteAddr = "192.0.2.7:9999"
		key := getRateLimitKey(c)
		if key != "ip:192.0.2.7" {
			t.Errorf("key = %q, want ip:192.0.2.7", key)
		}
	})
}
