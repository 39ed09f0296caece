// Package middleware holds gin middleware shared across the REST surface.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIKeyAuth gates every request behind a static API key list. Disabled
// deployments (cfg.Enabled == false) pass every request through unchecked.
func APIKeyAuth(enabled bool, keys []string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		key := c.GetHeader("X-API-Key")
		if key == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing API key"})
			return
		}

		for _, k := range keys {
			if k == key {
				c.Next()
				return
			}
		}

		logger.Warn("api auth: rejected key", zap.String("path", c.Request.URL.Path), zap.String("remote_addr", c.ClientIP()))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "invalid API key"})
	}
}
