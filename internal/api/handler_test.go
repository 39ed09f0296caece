package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenbus/lcs-gateway/internal/config"
	"github.com/lumenbus/lcs-gateway/internal/lcs/agent"
	"github.com/lumenbus/lcs-gateway/internal/lcs/manager"
)

func newTestRouter() (*gin.Engine, *manager.Manager) {
	gin.SetMode(gin.TestMode)
	mgr := manager.New(manager.Config{
		NewClient: func(id, name, host string, port int, onState func(string, agent.ConnState)) *agent.Client {
			return agent.New(id, name, "127.0.0.1", 1, agent.Config{Backoff: &agent.FixedBackoff{Delay: time.Hour}})
		},
	})
	h := NewHandler(mgr, nil)
	r := gin.New()
	RegisterRoutes(r, h, nil, config.AuthConfig{Enabled: false}, nil)
	return r, mgr
}

func TestControlLampInvalidBrightnessReturns400(t *testing.T) {
	r, mgr := newTestRouter()
	require.NoError(t, mgr.AddAgent("a", "A", "localhost", 9000))
	defer mgr.RemoveAgent("a")

	req := httptest.NewRequest(http.MethodPost, "/lcs/lamps/1/1/5/control", strings.NewReader(`{"brightness":150}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestControlLampUnknownAgentReturns400(t *testing.T) {
	r, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/lcs/lamps/1/1/5/control?agentId=missing", strings.NewReader(`{"brightness":50}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown agent")
}

func TestGetStatusReturnsRegistry(t *testing.T) {
	r, mgr := newTestRouter()
	require.NoError(t, mgr.AddAgent("a", "A", "localhost", 9000))
	defer mgr.RemoveAgent("a")

	req := httptest.NewRequest(http.MethodGet, "/lcs/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalAgents":1`)
}

func TestAddAgentDuplicateReturns400(t *testing.T) {
	r, mgr := newTestRouter()
	require.NoError(t, mgr.AddAgent("a", "A", "localhost", 9000))
	defer mgr.RemoveAgent("a")

	req := httptest.NewRequest(http.MethodPost, "/lcs/agents", strings.NewReader(`{"id":"a","host":"localhost","port":9001}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRejectsMissingKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mgr := manager.New(manager.Config{
		NewClient: func(id, name, host string, port int, onState func(string, agent.ConnState)) *agent.Client {
			return agent.New(id, name, "127.0.0.1", 1, agent.Config{Backoff: &agent.FixedBackoff{Delay: time.Hour}})
		},
	})
	h := NewHandler(mgr, nil)
	r := gin.New()
	RegisterRoutes(r, h, nil, config.AuthConfig{Enabled: true, APIKeys: []string{"secret"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/lcs/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
