package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/simp-lee/allobricolage/internal/pkg"
)

const (
	rateLimiterCapacity = 10_000
	rateLimiterIdleTTL  = 10 * time.Minute
)

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// RateLimit throttles requests per client IP with a token bucket. Buckets
// live in a bounded LRU and are dropped after a period of inactivity.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiters := expirable.NewLRU[string, *rate.Limiter](rateLimiterCapacity, nil, rateLimiterIdleTTL)
	limit := rate.Limit(cfg.RPS)
	retryAfter := "1"
	if cfg.RPS > 0 && cfg.RPS < 1 {
		retryAfter = strconv.Itoa(int(1/cfg.RPS + 0.5))
	}

	var mu sync.Mutex
	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		limiter, ok := limiters.Get(key)
		if !ok {
			limiter = rate.NewLimiter(limit, cfg.Burst)
		}
		// Re-adding refreshes the idle expiry.
		limiters.Add(key, limiter)
		return limiter
	}

	return func(c *gin.Context) {
		if !limiterFor(c.ClientIP()).Allow() {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, pkg.Response{
				Code:    http.StatusTooManyRequests,
				Message: "too many requests",
			})
			return
		}
		c.Next()
	}
}
