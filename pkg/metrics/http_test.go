package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsObserve(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())

	m.Observe("/api/v1/delivery/orders/{orderID}/advance", "POST", 200, 20*time.Millisecond)
	m.Observe("/api/v1/delivery/orders/{orderID}/advance", "POST", 201, 30*time.Millisecond)
	m.Observe("/api/v1/delivery/orders/{orderID}/advance", "POST", 422, 5*time.Millisecond)
	m.Observe("", "GET", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/v1/delivery/orders/{orderID}/advance", "POST", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/v1/delivery/orders/{orderID}/advance", "POST", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("unmatched", "GET", "4xx")))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "5xx", statusClass(503))
	assert.Equal(t, "unknown", statusClass(0))
	assert.Equal(t, "unknown", statusClass(700))
}
