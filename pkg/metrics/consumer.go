package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConsumerMetrics counts Pub/Sub deliveries by how they were settled.
type ConsumerMetrics struct {
	messages *prometheus.CounterVec
	handle   *prometheus.HistogramVec
}

func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	m := &ConsumerMetrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "consumer",
			Name:      "messages_total",
			Help:      "Delivered messages by consumer, event type and outcome.",
		}, []string{"consumer", "event_type", "outcome"}),
		handle: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "consumer",
			Name:      "handle_duration_seconds",
			Help:      "Time from receipt to settlement.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"consumer"}),
	}
	if reg != nil {
		reg.MustRegister(m.messages, m.handle)
	}
	return m
}

// Observe is safe on a nil receiver. An empty event type is recorded as
// "unknown".
func (m *ConsumerMetrics) Observe(consumer, eventType, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.messages.WithLabelValues(consumer, eventType, outcome).Inc()
	m.handle.WithLabelValues(consumer).Observe(took.Seconds())
}
