package health

import (
	"context"
	"sync/atomic"
	"time"
)

// Readiness tracks whether the gateway can serve traffic. It has two
// layers: coarse bootstrap flags that flip once startup has wired the agent
// manager and HTTP listener, and — once Attach has been called — the live
// Aggregator verdict over the agents and optional Redis relay actually
// registered. Only an Unhealthy verdict makes it not ready; agent and Redis
// checkers report Degraded when down, so a gateway whose agents and relay
// are all unreachable still reports ready.
type Readiness struct {
	managerReady atomic.Bool
	httpReady    atomic.Bool
	aggregator   atomic.Pointer[Aggregator]
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetManagerReady(v bool) { r.managerReady.Store(v) }
func (r *Readiness) SetHTTPReady(v bool)    { r.httpReady.Store(v) }

// Attach wires in the per-dependency Aggregator once agents (and the
// optional Redis relay) have been registered against it, so Ready starts
// reflecting live connectivity instead of only "bootstrap ran".
func (r *Readiness) Attach(a *Aggregator) { r.aggregator.Store(a) }

// Ready reports whether bootstrap has finished and, once an Aggregator is
// attached, whether the gateway's dependents aren't fully Unhealthy.
func (r *Readiness) Ready() bool {
	if !r.managerReady.Load() || !r.httpReady.Load() {
		return false
	}
	a := r.aggregator.Load()
	if a == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return a.Ready(ctx)
}
