package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	// FactLoads distinguishes "missing" from "corrupt" even though both
	// converge to an empty collection.
	FactLoads           *prometheus.CounterVec
	FactsStored         *prometheus.CounterVec
	FactPersistFailures *prometheus.CounterVec
	ExtractionRuns      *prometheus.CounterVec
	Turns               *prometheus.CounterVec
	WSMessages          *prometheus.CounterVec
	ActiveConnections   prometheus.Gauge
	ReplyLatency        prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		FactLoads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fact_loads_total",
			Help:      "Fact collection loads by collection and outcome (ok, missing, corrupt).",
		}, []string{"collection", "outcome"}),
		FactsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facts_stored_total",
			Help:      "Facts committed to the store by scope (user, bot).",
		}, []string{"scope"}),
		FactPersistFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fact_persist_failures_total",
			Help:      "Write-through persistence failures by collection.",
		}, []string{"collection"}),
		ExtractionRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_runs_total",
			Help:      "Memory extraction runs by purpose (user, bot) and outcome (stored, empty, failed).",
		}, []string{"purpose", "outcome"}),
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversational turns by result (replied, failed, empty_prompt, no_candidates, offline).",
		}, []string{"result"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of connected chat clients.",
		}),
		ReplyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reply_latency_seconds",
			Help:      "Latency of the primary completion request in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}),
	}
}

func (m *Metrics) ObserveReplyLatency(d time.Duration) {
	m.ReplyLatency.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
