package middleware

import (
	"time"

	"github.com/franciscosanchezn/gin-recipes-api/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request counts, latency and in-flight requests per route template
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordAPIRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
