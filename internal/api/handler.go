// Package api exposes C6's proxy methods as a REST surface per §6 of the
// specification: thin gin handlers that decode path/body params, forward to
// the Manager, and translate its typed errors into the wire error taxonomy.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumenbus/lcs-gateway/internal/lcs/frame"
	"github.com/lumenbus/lcs-gateway/internal/lcs/manager"
)

// Handler wires the lighting-control REST surface to a Manager. Push
// broadcasting is not this package's concern: the Manager's own
// OnStateChange/OnAgentsChanged callbacks (wired in internal/app) are the
// sole emitters of state_changed/agents_updated events, so every mutation
// broadcasts exactly once regardless of whether a Redis relay is active.
type Handler struct {
	mgr    *manager.Manager
	logger *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(mgr *manager.Manager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{mgr: mgr, logger: logger}
}

// coded is satisfied by every error the LCS packages emit (agent, command,
// manager); it lets us map errors to HTTP status without switching on
// concrete types across three packages.
type coded interface{ Code() string }

// httpStatusFor maps the error taxonomy from §7 to HTTP status codes.
// InvalidArgument, DuplicateId and UnknownAgent are caller mistakes (400);
// everything else is a runtime transport/protocol failure (500).
func httpStatusFor(err error) int {
	var c coded
	if errors.As(err, &c) {
		switch c.Code() {
		case "InvalidArgument", "DuplicateId", "UnknownAgent":
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.JSON(httpStatusFor(err), gin.H{"success": false, "error": err.Error()})
}

func ok(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": payload})
}

func parseByteParam(c *gin.Context, name string) (byte, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v < 0 || v > 255 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid " + name})
		return 0, false
	}
	return byte(v), true
}

func deviceTypeFromQuery(c *gin.Context) byte {
	switch c.Query("deviceType") {
	case "RCU4":
		return frame.DeviceRCU4
	case "RCU8":
		return frame.DeviceRCU8
	default:
		return frame.DeviceLCS
	}
}

// GetStatus godoc
// @Summary Agent connection status
// @Tags lcs
// @Produce json
// @Success 200 {object} manager.ConnectionStatus
// @Router /lcs/status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	ok(c, h.mgr.GetConnectionStatus())
}

// GetLampBrightness godoc
// @Summary Read lamp brightness for a control unit
// @Tags lcs
// @Produce json
// @Param master path int true "master address"
// @Param cu path int true "control unit address"
// @Param deviceType query string false "LCS|RCU4|RCU8"
// @Success 200 {object} response.Typed
// @Router /lcs/lamps/{master}/{cu}/brightness [get]
func (h *Handler) GetLampBrightness(c *gin.Context) {
	master, ok1 := parseByteParam(c, "master")
	cu, ok2 := parseByteParam(c, "cu")
	if !ok1 || !ok2 {
		return
	}
	typed, err := h.mgr.GetLampBrightness(c.Query("agentId"), deviceTypeFromQuery(c), master, cu)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, typed)
}

// GetColorTemperature godoc
// @Summary Read color temperature for a control unit
// @Tags lcs
// @Produce json
// @Param master path int true "master address"
// @Param cu path int true "control unit address"
// @Success 200 {object} response.Typed
// @Router /lcs/lamps/{master}/{cu}/color-temperature [get]
func (h *Handler) GetColorTemperature(c *gin.Context) {
	master, ok1 := parseByteParam(c, "master")
	cu, ok2 := parseByteParam(c, "cu")
	if !ok1 || !ok2 {
		return
	}
	typed, err := h.mgr.GetColorTemperature(c.Query("agentId"), master, cu)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, typed)
}

type controlLampRequest struct {
	Brightness int `json:"brightness" binding:"required,min=0,max=100"`
}

// ControlLamp godoc
// @Summary Dim a single lamp
// @Tags lcs
// @Accept json
// @Produce json
// @Param master path int true "master address"
// @Param cu path int true "control unit address"
// @Param lampNo path int true "lamp number"
// @Param body body controlLampRequest true "target brightness"
// @Success 200 {object} response.Typed
// @Router /lcs/lamps/{master}/{cu}/{lampNo}/control [post]
func (h *Handler) ControlLamp(c *gin.Context) {
	master, ok1 := parseByteParam(c, "master")
	cu, ok2 := parseByteParam(c, "cu")
	lampNo, err := strconv.Atoi(c.Param("lampNo"))
	if !ok1 || !ok2 || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid lampNo"})
		return
	}
	var req controlLampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	typed, err := h.mgr.DimLamp(c.Query("agentId"), master, cu, lampNo, req.Brightness)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, typed)
}

type blockControlRequest struct {
	LampList   []int `json:"lampList" binding:"required"`
	Brightness int   `json:"brightness" binding:"required,min=0,max=100"`
}

// BlockControl godoc
// @Summary Dim a list of lamps to a shared brightness
// @Tags lcs
// @Accept json
// @Produce json
// @Router /lcs/lamps/{master}/{cu}/block-control [post]
func (h *Handler) BlockControl(c *gin.Context) {
	master, ok1 := parseByteParam(c, "master")
	cu, ok2 := parseByteParam(c, "cu")
	if !ok1 || !ok2 {
		return
	}
	var req blockControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	typed, err := h.mgr.BlockLampControl(c.Query("agentId"), master, cu, req.LampList, req.Brightness)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, typed)
}

type colorTempRequest struct {
	LampList  []int `json:"lampList" binding:"required"`
	ColorTemp int   `json:"colorTemp" binding:"required,min=0,max=100"`
}

// SetColorTemperature godoc
// @Summary Set color temperature for a list of lamps
// @Tags lcs
// @Accept json
// @Produce json
// @Router /lcs/lamps/{master}/{cu}/color-temperature [post]
func (h *Handler) SetColorTemperature(c *gin.Context) {
	master, ok1 := parseByteParam(c, "master")
	cu, ok2 := parseByteParam(c, "cu")
	if !ok1 || !ok2 {
		return
	}
	var req colorTempRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	typed, err := h.mgr.BlockColorTemp(c.Query("agentId"), master, cu, req.LampList, req.ColorTemp)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, typed)
}

type executeSceneRequest struct {
	FadeTime int `json:"fadeTime"`
}

// ExecuteScene godoc
// @Summary Execute a stored scene
// @Tags lcs
// @Accept json
// @Produce json
// @Router /lcs/scenes/{master}/{cu}/{sceneNo}/execute [post]
func (h *Handler) ExecuteScene(c *gin.Context) {
	master, ok1 := parseByteParam(c, "master")
	cu, ok2 := parseByteParam(c, "cu")
	sceneNo, err := strconv.Atoi(c.Param("sceneNo"))
	if !ok1 || !ok2 || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid sceneNo"})
		return
	}
	var req executeSceneRequest
	_ = c.ShouldBindJSON(&req) // fadeTime is optional; a missing/empty body is fine

	typed, err := h.mgr.ExecuteScene(c.Query("agentId"), master, cu, sceneNo, req.FadeTime)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, typed)
}

type allLampsRequest struct {
	Brightness int `json:"brightness" binding:"required,min=0,max=100"`
}

// AllLamps godoc
// @Summary Set every lamp on a control unit to one brightness
// @Tags lcs
// @Accept json
// @Produce json
// @Router /lcs/lamps/{master}/{cu}/all [post]
func (h *Handler) AllLamps(c *gin.Context) {
	master, ok1 := parseByteParam(c, "master")
	cu, ok2 := parseByteParam(c, "cu")
	if !ok1 || !ok2 {
		return
	}
	var req allLampsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	typed, err := h.mgr.AllLamps(c.Query("agentId"), master, cu, req.Brightness)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, typed)
}

type fadeRequest struct {
	StartBrightness int     `json:"startBrightness" binding:"min=0,max=100"`
	EndBrightness   int     `json:"endBrightness" binding:"min=0,max=100"`
	Duration        float64 `json:"duration"`
}

// Fade godoc
// @Summary Fade a lamp between two brightness levels in the background
// @Description Returns immediately; the fade runs asynchronously and emits a state_changed push event on completion.
// @Tags lcs
// @Accept json
// @Produce json
// @Router /lcs/lamps/{master}/{cu}/{lampNo}/fade [post]
func (h *Handler) Fade(c *gin.Context) {
	master, ok1 := parseByteParam(c, "master")
	cu, ok2 := parseByteParam(c, "cu")
	lampNo, err := strconv.Atoi(c.Param("lampNo"))
	if !ok1 || !ok2 || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid lampNo"})
		return
	}
	var req fadeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	duration := req.Duration
	if duration <= 0 {
		duration = 1
	}
	agentID := c.Query("agentId")
	err = h.mgr.StartFade(agentID, master, cu, lampNo, req.StartBrightness, req.EndBrightness, duration, func(err error) {
		if err != nil {
			h.logger.Warn("fade effect failed", zap.String("agent_id", agentID), zap.Error(err))
		}
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"started": true})
}

type waveRequest struct {
	LampList   []int `json:"lampList" binding:"required"`
	Brightness int   `json:"brightness" binding:"required,min=0,max=100"`
	IntervalMs int   `json:"interval"`
}

// Wave godoc
// @Summary Dim a list of lamps in sequence with a fixed interval, in the background
// @Tags lcs
// @Accept json
// @Produce json
// @Router /lcs/lamps/{master}/{cu}/wave [post]
func (h *Handler) Wave(c *gin.Context) {
	master, ok1 := parseByteParam(c, "master")
	cu, ok2 := parseByteParam(c, "cu")
	if !ok1 || !ok2 {
		return
	}
	var req waveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	interval := time.Duration(req.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	agentID := c.Query("agentId")
	err := h.mgr.StartWave(agentID, master, cu, req.LampList, req.Brightness, interval, func(err error) {
		if err != nil {
			h.logger.Warn("wave effect failed", zap.String("agent_id", agentID), zap.Error(err))
		}
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"started": true})
}

// GetDeviceInfo godoc
// @Summary Read the device name broadcast by the bus
// @Tags lcs
// @Produce json
// @Router /lcs/device-info [get]
func (h *Handler) GetDeviceInfo(c *gin.Context) {
	typed, err := h.mgr.GetDeviceName(c.Query("agentId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, typed)
}

// --- Agent registry management [NEW] ---

type addAgentRequest struct {
	ID   string `json:"id" binding:"required"`
	Name string `json:"name"`
	Host string `json:"host" binding:"required"`
	Port int    `json:"port" binding:"required,min=1,max=65535"`
}

// ListAgents godoc
// @Summary List registered agents and their live connection state
// @Tags agents
// @Produce json
// @Router /lcs/agents [get]
func (h *Handler) ListAgents(c *gin.Context) {
	ok(c, h.mgr.GetConnectionStatus())
}

// AddAgent godoc
// @Summary Register a new agent
// @Tags agents
// @Accept json
// @Produce json
// @Router /lcs/agents [post]
func (h *Handler) AddAgent(c *gin.Context) {
	var req addAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err := h.mgr.AddAgent(req.ID, req.Name, req.Host, req.Port); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"id": req.ID})
}

// RemoveAgent godoc
// @Summary Remove an agent
// @Tags agents
// @Produce json
// @Router /lcs/agents/{id} [delete]
func (h *Handler) RemoveAgent(c *gin.Context) {
	if err := h.mgr.RemoveAgent(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"removed": c.Param("id")})
}

// SetDefaultAgent godoc
// @Summary Set the default agent for unqualified requests
// @Tags agents
// @Produce json
// @Router /lcs/agents/{id}/default [post]
func (h *Handler) SetDefaultAgent(c *gin.Context) {
	if err := h.mgr.SetDefaultAgent(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"defaultAgentId": c.Param("id")})
}

// ReconnectAgent godoc
// @Summary Force an agent through a disconnect/reconnect cycle
// @Tags agents
// @Produce json
// @Router /lcs/agents/{id}/reconnect [post]
func (h *Handler) ReconnectAgent(c *gin.Context) {
	if err := h.mgr.ReconnectAgent(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"reconnecting": c.Param("id")})
}
