package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/sitedeck/sitedeck/backend/internal/infrastructure/config"
)

// RateLimit creates a global rate limiting middleware. The bridge serves a
// single local display process, so one shared limiter is enough; it exists
// to contain runaway renderer loops, not hostile traffic.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"kind":    "rate_limited",
					"message": "Too many bridge requests",
				},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
