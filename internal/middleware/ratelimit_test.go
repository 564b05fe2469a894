package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func setupRouter(limiter *IPRateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(limiter, logs.GetLoggerFromLevel(slog.LevelError)))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func request(r http.Handler, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware_BlocksAfterBurst(t *testing.T) {
	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: rate.Every(time.Hour), BurstSize: 3})
	r := setupRouter(limiter)

	for i := 0; i < 3; i++ {
		w := request(r, "10.0.0.1:1234", nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}

	w := request(r, "10.0.0.1:1234", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Rate limit exceeded")

	// A different client has its own bucket.
	w = request(r, "10.0.0.2:1234", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware_RetryAfterReflectsRate(t *testing.T) {
	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})
	r := setupRouter(limiter)

	require.Equal(t, http.StatusOK, request(r, "10.0.0.1:1", nil).Code)
	w := request(r, "10.0.0.1:1", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.168.1.5:5555", nil, "192.168.1.5"},
		{"remote addr without port", "192.168.1.5", nil, "192.168.1.5"},
		{"forwarded first hop", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"forwarded garbage", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "nope"}, "10.0.0.1"},
		{"real ip", "10.0.0.1:1", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(c))
		})
	}
}

func TestIPRateLimiter_CleanupDropsIdleVisitors(t *testing.T) {
	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 10, CleanupInterval: time.Minute})
	now := time.Now()
	limiter.now = func() time.Time { return now }

	limiter.GetLimiter("a")
	now = now.Add(30 * time.Second)
	limiter.GetLimiter("b")
	assert.Same(t, limiter.GetLimiter("b"), limiter.GetLimiter("b"))

	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, limiter.cleanup())
	assert.Equal(t, 1, limiter.Len())
}

func TestIPRateLimiter_RunStopsWithContext(t *testing.T) {
	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, CleanupInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		limiter.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
