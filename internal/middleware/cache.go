package middleware

import "github.com/gin-gonic/gin"

// NoStore marks responses as uncacheable. Session state, timers and revealed
// answers change with the clock and must never be served from a cache.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
