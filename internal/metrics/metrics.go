// Package metrics declares the engine's Prometheus instruments on a private
// registry, so scraping sees only what the engine registers and tests can
// build as many instances as they like.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics carries every instrument the engine writes.
type Metrics struct {
	registry *prometheus.Registry

	// CommandsTotal counts economy commands by name and outcome
	// ("ok" or "error").
	CommandsTotal *prometheus.CounterVec

	// CommandDuration observes wall time per command, transaction included.
	CommandDuration prometheus.Histogram

	// JackpotPool mirrors the slots jackpot after each contribution or win.
	JackpotPool prometheus.Gauge

	// WebsocketClients tracks the live feed's connection count.
	WebsocketClients prometheus.Gauge

	// WebhookEvents counts ingress platform events by platform and outcome
	// (ok, refused, replayed, in_flight, error, malformed, bad_signature).
	WebhookEvents *prometheus.CounterVec

	// JobRuns counts scheduler executions by job and outcome.
	JobRuns *prometheus.CounterVec
}

// New builds the instrument set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "economy_commands_total",
			Help: "Economy commands processed, by command and outcome.",
		}, []string{"command", "status"}),
		CommandDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "economy_command_duration_seconds",
			Help:    "Wall time spent per command.",
			Buckets: prometheus.DefBuckets,
		}),
		JackpotPool: factory.NewGauge(prometheus.GaugeOpts{
			Name: "economy_jackpot_pool",
			Help: "Current slots jackpot pool.",
		}),
		WebsocketClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "economy_websocket_clients",
			Help: "Connected websocket feed clients.",
		}),
		WebhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "economy_webhook_events_total",
			Help: "Ingress platform webhook events, by platform and outcome.",
		}, []string{"platform", "outcome"}),
		JobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "economy_job_runs_total",
			Help: "Scheduler job executions, by job and outcome.",
		}, []string{"job", "status"}),
	}
}

// Handler exposes the registry for the /metrics route.
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
