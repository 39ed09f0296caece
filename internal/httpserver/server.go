package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginswagger "github.com/swaggo/gin-swagger"

	cfgpkg "github.com/lumenbus/lcs-gateway/internal/config"
)

// Server wraps the gateway's single HTTP listener: REST, WebSocket upgrade,
// health checks, metrics and Swagger docs all share this one *gin.Engine.
type Server struct {
	Engine *gin.Engine
	srv    *http.Server
}

// New builds the Gin engine and registers the ambient routes (health,
// readiness, metrics, swagger). Domain routes are added later via Register.
func New(cfg cfgpkg.HTTPConfig, metricsPath string, metricsHandler http.Handler, readyFn func() bool) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if readyFn == nil || readyFn() {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if metricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(metricsHandler))
	}

	r.GET("/swagger/*any", ginswagger.WrapHandler(swaggerfiles.Handler))

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{Engine: r, srv: srv}
}

// Register lets callers add route groups to the shared engine before Start.
func (s *Server) Register(fn func(*gin.Engine)) {
	fn(s.Engine)
}

// Start runs the HTTP server, blocking until it stops or fails.
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
