package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks how the relay settles rows and how long they waited.
type OutboxMetrics struct {
	settled *prometheus.CounterVec
	lag     prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	m := &OutboxMetrics{
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "settled_total",
			Help:      "Outbox rows settled by the relay, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		lag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "publish_lag_seconds",
			Help:      "Time between an event being committed and published.",
			Buckets:   []float64{.1, .5, 1, 2, 5, 10, 30, 60, 300, 900},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.settled, m.lag)
	}
	return m
}

// Settled records one row. lag is only observed for published rows.
func (m *OutboxMetrics) Settled(eventType, outcome string, lag time.Duration) {
	if m == nil {
		return
	}
	m.settled.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
	if outcome == "published" && lag >= 0 {
		m.lag.Observe(lag.Seconds())
	}
}
