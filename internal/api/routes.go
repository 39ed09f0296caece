package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumenbus/lcs-gateway/internal/api/middleware"
	"github.com/lumenbus/lcs-gateway/internal/config"
	"github.com/lumenbus/lcs-gateway/internal/push"
)

// RegisterRoutes mounts the lighting-control REST surface and the push
// WebSocket endpoint onto r, gated by the configured API-key middleware.
func RegisterRoutes(r *gin.Engine, h *Handler, hub *push.Hub, auth config.AuthConfig, logger *zap.Logger) {
	guard := middleware.APIKeyAuth(auth.Enabled, auth.APIKeys, logger)

	lcs := r.Group("/lcs", guard)
	{
		lcs.GET("/status", h.GetStatus)
		lcs.GET("/device-info", h.GetDeviceInfo)

		lcs.GET("/lamps/:master/:cu/brightness", h.GetLampBrightness)
		lcs.GET("/lamps/:master/:cu/color-temperature", h.GetColorTemperature)
		lcs.POST("/lamps/:master/:cu/color-temperature", h.SetColorTemperature)
		lcs.POST("/lamps/:master/:cu/:lampNo/control", h.ControlLamp)
		lcs.POST("/lamps/:master/:cu/block-control", h.BlockControl)
		lcs.POST("/lamps/:master/:cu/all", h.AllLamps)
		lcs.POST("/lamps/:master/:cu/:lampNo/fade", h.Fade)
		lcs.POST("/lamps/:master/:cu/wave", h.Wave)
		lcs.POST("/scenes/:master/:cu/:sceneNo/execute", h.ExecuteScene)

		lcs.GET("/agents", h.ListAgents)
		lcs.POST("/agents", h.AddAgent)
		lcs.DELETE("/agents/:id", h.RemoveAgent)
		lcs.POST("/agents/:id/default", h.SetDefaultAgent)
		lcs.POST("/agents/:id/reconnect", h.ReconnectAgent)
	}

	if hub != nil {
		r.GET("/lcs/ws", guard, func(c *gin.Context) {
			if err := hub.ServeWS(c.Writer, c.Request); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			}
		})
	}
}
