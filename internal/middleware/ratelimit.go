package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	RequestsPerSecond rate.Limit    // Sustained requests per second per client
	BurstSize         int           // Maximum burst size
	CleanupInterval   time.Duration // How often to drop idle limiters
}

const maxRetryAfter = 60

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter hands out one token bucket per client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	config   RateLimitConfig
	now      func() time.Time
}

func NewIPRateLimiter(config RateLimitConfig) *IPRateLimiter {
	if config.BurstSize <= 0 {
		config.BurstSize = 1
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = StandardRateLimit.CleanupInterval
	}
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		config:   config,
		now:      time.Now,
	}
}

// GetLimiter returns the rate limiter for a specific IP
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	v, exists := i.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(i.config.RequestsPerSecond, i.config.BurstSize)}
		i.visitors[ip] = v
	}
	v.lastSeen = i.now()
	return v.limiter
}

func (i *IPRateLimiter) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.visitors)
}

// Run drops limiters idle for longer than the cleanup interval until ctx is
// done.
func (i *IPRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(i.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.cleanup()
		}
	}
}

func (i *IPRateLimiter) cleanup() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	cutoff := i.now().Add(-i.config.CleanupInterval)
	removed := 0
	for ip, v := range i.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(i.visitors, ip)
			removed++
		}
	}
	return removed
}

// getClientIP extracts the real client IP address from the request
func getClientIP(c *gin.Context) string {
	// X-Forwarded-For first, for proxies. Only the first hop counts.
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		ip := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if realIP := strings.TrimSpace(c.GetHeader("X-Real-IP")); realIP != "" {
		if net.ParseIP(realIP) != nil {
			return realIP
		}
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}

// RateLimitMiddleware rejects requests over the client's budget with 429.
func RateLimitMiddleware(limiter *IPRateLimiter, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := getClientIP(c)
		reservation := limiter.GetLimiter(clientIP).Reserve()

		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			log.Warn("Rate limit exceeded", "ip", clientIP, "path", c.FullPath())
			c.Header("Retry-After", retryAfter(delay))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests. Please slow down.",
			})
			return
		}

		c.Next()
	}
}

func retryAfter(delay time.Duration) string {
	seconds := math.Ceil(delay.Seconds())
	switch {
	case seconds < 1:
		seconds = 1
	case seconds > maxRetryAfter:
		seconds = maxRetryAfter
	}
	return strconv.Itoa(int(seconds))
}

// StandardRateLimit for the read-only API endpoints
var StandardRateLimit = RateLimitConfig{
	RequestsPerSecond: 30,
	BurstSize:         50,
	CleanupInterval:   5 * time.Minute,
}
