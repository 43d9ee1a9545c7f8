package gateway

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the gateway's Prometheus collectors.
type Metrics struct {
	connections prometheus.Gauge
	broadcasts  prometheus.Counter
	messages    prometheus.Counter
	dropped     prometheus.Counter
}

// NewMetrics builds the collectors and registers them when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eventduel",
			Subsystem: "gateway",
			Name:      "connections",
			Help:      "Open duel WebSocket connections.",
		}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventduel",
			Subsystem: "gateway",
			Name:      "broadcasts_total",
			Help:      "Session list broadcasts to a game.",
		}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventduel",
			Subsystem: "gateway",
			Name:      "messages_sent_total",
			Help:      "Messages queued to individual connections.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventduel",
			Subsystem: "gateway",
			Name:      "dropped_total",
			Help:      "Broadcasts dropped or connections closed for a full buffer.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.connections, m.broadcasts, m.messages, m.dropped)
	}
	return m
}
