package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RegisterHTTPRoutes wires the aggregator's readiness/liveness/detail views
// into r. These are additive to /healthz and /readyz served by httpserver.New.
func RegisterHTTPRoutes(r *gin.Engine, aggregator *Aggregator) {
	r.GET("/health/ready", func(c *gin.Context) {
		ctx := c.Request.Context()

		if !aggregator.Ready(ctx) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"ready":  false,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"ready":  true,
		})
	})

	r.GET("/health/live", func(c *gin.Context) {
		if !aggregator.Alive() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"alive": false,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"alive": true,
		})
	})

	r.GET("/health", func(c *gin.Context) {
		ctx := c.Request.Context()

		results := aggregator.CheckAll(ctx)
		overall := aggregator.OverallStatus(ctx)

		code := http.StatusOK
		if overall == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		// Degraded still returns 200: the gateway can serve with agents down.

		c.JSON(code, gin.H{
			"status":    overall,
			"timestamp": time.Now(),
			"checks":    results,
		})
	})
}
