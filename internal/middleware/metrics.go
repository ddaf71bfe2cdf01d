package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/formagestpro/formagest-api/internal/service"
)

// Metrics times every request and feeds the observation to the metrics
// service. Unmatched routes are labeled by raw URL path.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	if metrics == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
