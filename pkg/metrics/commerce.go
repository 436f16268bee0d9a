package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics counts checkout and fulfillment activity.
type CommerceMetrics struct {
	ordersCreated *prometheus.CounterVec
	splitSize     prometheus.Histogram
	transitions   *prometheus.CounterVec
	replays       *prometheus.CounterVec
}

// NewCommerceMetrics registers the storefront metrics on reg. A nil registerer
// yields a recorder that drops every observation.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders created by checkout, by fulfilling party.",
	}, []string{"party"})
	splitSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "checkout_split_size",
		Help:      "Number of orders produced by a single checkout.",
		Buckets:   []float64{1, 2, 3, 4, 6, 8},
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Committed order status transitions, by target status.",
	}, []string{"to_status"})
	replays := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotent_replays_total",
		Help:      "Requests answered from a previously committed result.",
	}, []string{"operation"})
	reg.MustRegister(ordersCreated, splitSize, transitions, replays)
	return &CommerceMetrics{
		ordersCreated: ordersCreated,
		splitSize:     splitSize,
		transitions:   transitions,
		replays:       replays,
	}
}

// ObserveCheckout records the orders one checkout produced.
func (m *CommerceMetrics) ObserveCheckout(platformOrders, sellerOrders int) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues("platform").Add(float64(platformOrders))
	m.ordersCreated.WithLabelValues("seller").Add(float64(sellerOrders))
	m.splitSize.Observe(float64(platformOrders + sellerOrders))
}

// IncTransition counts a committed status change.
func (m *CommerceMetrics) IncTransition(toStatus string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(toStatus)).Inc()
}

// IncReplay counts an idempotent replay of operation.
func (m *CommerceMetrics) IncReplay(operation string) {
	if m == nil || m.replays == nil {
		return
	}
	m.replays.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
