package middleware

import (
	"github.com/gin-gonic/gin"

	"surgical-records-server/internal/metrics"
	"surgical-records-server/internal/utils"
)

// Allower decides whether a client key may make another request.
type Allower interface {
	Allow(key string) bool
}

// RateLimit rejects clients, keyed by IP, that exceed their budget.
func RateLimit(limiter Allower, m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			m.RateLimited()
			utils.TooManyRequests(c, "Rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
