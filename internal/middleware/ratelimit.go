package middleware

import (
	"net/http" // HTTP status codes
	"strconv"  // Retry-After formatting

	"roundup/internal/ratelimit" // Limiter implementations

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// RateLimitMiddleware rejects clients that exceed the scope's budget with 429
func RateLimitMiddleware(l ratelimit.Limiter, scope, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter, err := l.Allow(c.Request.Context(), scope, c.ClientIP())
		if err != nil {
			// Fail open, a limiter outage must not take the API down
			logrus.WithFields(logrus.Fields{"scope": scope, "error": err.Error()}).Warn("Rate limiter unavailable")
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": message})
			return
		}
		c.Next()
	}
}
