package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry creates an isolated Prometheus registry, never the global
// DefaultRegisterer, so tests can spin up independent instances.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the Prometheus scrape handler bound to reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics are the gateway's domain-specific series.
type AppMetrics struct {
	FramesDecodedTotal *prometheus.CounterVec   // labels: result=ok|corrupt
	AgentState         *prometheus.GaugeVec     // labels: agent_id (value = connection state ordinal)
	RequestsTotal      *prometheus.CounterVec   // labels: agent_id, opcode, result
	RequestDuration    *prometheus.HistogramVec // labels: agent_id
	EffectActive       *prometheus.GaugeVec     // labels: agent_id, kind
	PushClients        prometheus.Gauge         // current WebSocket subscriber count
}

// NewAppMetrics registers and returns the gateway's business metrics against reg.
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		FramesDecodedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lcs_frames_decoded_total",
			Help: "Total LCS frames decoded off the wire, by outcome.",
		}, []string{"result"}),
		AgentState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lcs_agent_state",
			Help: "Connection state of an Agent client (0=Disconnected,1=Connecting,2=Connected,3=Reconnecting).",
		}, []string{"agent_id"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lcs_requests_total",
			Help: "Total LCS requests sent, by agent, opcode and outcome.",
		}, []string{"agent_id", "opcode", "result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lcs_request_duration_seconds",
			Help:    "Latency from send() to a resolved or failed response.",
			Buckets: prometheus.DefBuckets,
		}, []string{"agent_id"}),
		EffectActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lcs_effect_active",
			Help: "Number of currently running effects, by agent and kind.",
		}, []string{"agent_id", "kind"}),
		PushClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lcs_push_clients",
			Help: "Currently connected WebSocket push clients.",
		}),
	}
	reg.MustRegister(m.FramesDecodedTotal, m.AgentState, m.RequestsTotal, m.RequestDuration, m.EffectActive, m.PushClients)
	return m
}
