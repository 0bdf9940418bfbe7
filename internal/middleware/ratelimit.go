package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// RateLimitPerIP allows limit requests per second with the given burst for
// each client IP. Limiters for at most cacheSize clients are kept, and a
// client unseen for ttl starts over with a fresh bucket.
func RateLimitPerIP(limit float64, burst, cacheSize int, ttl time.Duration) gin.HandlerFunc {
	visitors := expirable.NewLRU[string, *rate.Limiter](cacheSize, nil, ttl)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		limiter, ok := visitors.Get(ip)
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(limit), burst)
		}
		// re-adding refreshes the entry's expiry
		visitors.Add(ip, limiter)

		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
