// Package metrics exposes the server's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registered collectors the server updates during its
// scheduler loop and connection lifecycle.
type Metrics struct {
	gatherer prometheus.Gatherer

	TickDuration      prometheus.Histogram
	ActiveConnections prometheus.Gauge
	ActiveRooms       prometheus.Gauge
	MessagesReceived  *prometheus.CounterVec
	MessagesSent      *prometheus.CounterVec
	TickOverBudget    prometheus.Counter
}

// New registers and returns the server's metric collectors against reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tmxchat_server_tick_duration_seconds",
			Help:    "Duration of one server scheduler tick.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tmxchat_active_connections",
			Help: "Number of currently connected clients.",
		}),
		ActiveRooms: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tmxchat_active_rooms",
			Help: "Number of rooms not yet swept after destruction.",
		}),
		MessagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tmxchat_messages_received_total",
			Help: "Messages received from clients, by message type.",
		}, []string{"type"}),
		MessagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tmxchat_messages_sent_total",
			Help: "Messages sent to clients, by message type.",
		}, []string{"type"}),
		TickOverBudget: factory.NewCounter(prometheus.CounterOpts{
			Name: "tmxchat_tick_over_budget_total",
			Help: "Scheduler ticks whose work exceeded the target tick duration.",
		}),
	}
}

// Handler returns the HTTP handler to serve on the metrics listener,
// scraping the same registry m's collectors were registered against.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
