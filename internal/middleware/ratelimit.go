package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// NewLimiter builds the process-wide limiter; qps <= 0 disables limiting.
func NewLimiter(qps float64, burst int) *rate.Limiter {
	limit := rate.Limit(qps)
	if qps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(limit, burst)
}

// RateLimitMiddleware protects the exchange from operators hammering the
// diagnostics routes, each of which issues signed upstream requests.
func RateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		if !limiter.Allow() {
			retry := 1
			if l := float64(limiter.Limit()); l > 0 && !math.IsInf(l, 1) {
				retry = int(math.Ceil(1 / l))
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": strconv.Itoa(retry) + "s",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
