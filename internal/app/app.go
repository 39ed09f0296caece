// Package app wires every component into the running gateway process,
// mirroring the teacher's staged bootstrap.Run: build ambient collaborators
// first, then domain services, then start listeners, then block for a
// shutdown signal.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lumenbus/lcs-gateway/internal/api"
	"github.com/lumenbus/lcs-gateway/internal/config"
	_ "github.com/lumenbus/lcs-gateway/internal/docs"
	"github.com/lumenbus/lcs-gateway/internal/health"
	"github.com/lumenbus/lcs-gateway/internal/httpserver"
	"github.com/lumenbus/lcs-gateway/internal/lcs/agent"
	"github.com/lumenbus/lcs-gateway/internal/lcs/manager"
	"github.com/lumenbus/lcs-gateway/internal/lcs/scheduler"
	"github.com/lumenbus/lcs-gateway/internal/lcs/scripting"
	"github.com/lumenbus/lcs-gateway/internal/metrics"
	"github.com/lumenbus/lcs-gateway/internal/push"
)

// Run drives the gateway's full lifecycle: build, start, wait for a signal,
// shut down. It returns only on fatal startup error or clean shutdown.
func Run(cfg *config.Config, log *zap.Logger) error {
	log = log.With(zap.String("instance", instanceID()))
	log.Info("starting lcs gateway")

	// ---- phase 1: metrics + readiness ----
	reg := metrics.NewRegistry()
	appMetrics := metrics.NewAppMetrics(reg)
	ready := health.New()
	healthAgg := health.NewAggregator()

	// ---- phase 2: push hub + optional Redis cross-replica relay ----
	hub := push.NewHub(log, appMetrics)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	var redisClient *redis.Client
	var relay *push.Relay
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		healthAgg.AddChecker(health.NewRedisChecker(redisClient))
		relay = push.NewRelay(redisClient, cfg.Redis.Channel, hub, log)
		relayCtx, relayCancel := context.WithCancel(context.Background())
		defer relayCancel()
		go relay.Run(relayCtx)
		log.Info("redis push relay enabled", zap.String("addr", cfg.Redis.Addr), zap.String("channel", cfg.Redis.Channel))
	}

	broadcast := func(msg push.Message) {
		if relay != nil {
			relay.Publish(context.Background(), msg)
			return
		}
		hub.Broadcast(msg)
	}

	// ---- phase 3: agent manager ----
	newClient := func(id, name, host string, port int, onState func(string, agent.ConnState)) *agent.Client {
		backoff := buildBackoff(cfg.AgentDef)
		return agent.New(id, name, host, port, agent.Config{
			RequestTimeout: cfg.AgentDef.RequestTimeout,
			Backoff:        backoff,
			RateLimit:      cfg.AgentDef.RateLimitPerS,
			RateBurst:      cfg.AgentDef.RateBurst,
			Logger:         log,
			Metrics:        appMetrics,
			OnStateChange:  onState,
		})
	}

	mgr := manager.New(manager.Config{
		Logger:    log,
		Metrics:   appMetrics,
		NewClient: newClient,
		OnStateChange: func(ev manager.StateChangeEvent) {
			broadcast(push.NewMessage("state_changed", ev))
		},
		OnAgentsChanged: func() {
			broadcast(push.NewMessage("agents_updated", nil))
		},
	})
	log.Info("agent manager initialized")

	// ---- phase 4: register statically-configured agents ----
	for _, a := range cfg.Agents {
		if err := mgr.AddAgent(a.ID, a.Name, a.Host, a.Port); err != nil {
			log.Warn("failed to register configured agent", zap.String("id", a.ID), zap.Error(err))
			continue
		}
		if entry, err := mgr.GetAgentClient(a.ID); err == nil {
			healthAgg.AddChecker(health.NewAgentChecker(entry))
		}
		log.Info("registered agent", zap.String("id", a.ID), zap.String("host", a.Host), zap.Int("port", a.Port))
	}
	ready.Attach(healthAgg)
	ready.SetManagerReady(true)

	// ---- phase 5: scheduler + script engine ----
	sched := scheduler.New(mgr, log)
	sched.LoadAll(cfg.Schedules)
	sched.Start()
	defer sched.Stop()

	scriptEngine := scripting.NewEngine(mgr, log)
	defer scriptEngine.Stop()

	// ---- phase 6: HTTP server ----
	metricsHandler := metrics.Handler(reg)
	httpSrv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler, ready.Ready)

	apiHandler := api.NewHandler(mgr, log)
	httpSrv.Register(func(r *gin.Engine) {
		api.RegisterRoutes(r, apiHandler, hub, cfg.Auth, log)
		health.RegisterHTTPRoutes(r, healthAgg)
	})

	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Error("http server stopped with error", zap.Error(err))
		}
	}()
	ready.SetHTTPReady(true)
	log.Info("http server started", zap.String("addr", cfg.HTTP.Addr))

	// ---- phase 7: wait for shutdown signal ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received, draining")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	log.Info("shutdown complete")
	return nil
}

func buildBackoff(cfg config.AgentDefaultsConfig) agent.Backoff {
	switch cfg.Backoff {
	case "exponential":
		base := cfg.ReconnectDelay
		if base == 0 {
			base = 5 * time.Second
		}
		max := cfg.MaxBackoff
		if max == 0 {
			max = 30 * time.Second
		}
		return &agent.ExponentialBackoff{Base: base, Max: max}
	default:
		delay := cfg.ReconnectDelay
		if delay == 0 {
			delay = 5 * time.Second
		}
		return &agent.FixedBackoff{Delay: delay}
	}
}
