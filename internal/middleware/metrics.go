package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushub/clubhub-api/internal/service"
)

// Metrics records per-request duration and status. Unmatched routes fall
// back to the raw URL path so 404 traffic is still visible, at the cost of
// unbounded label cardinality on garbage paths.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
