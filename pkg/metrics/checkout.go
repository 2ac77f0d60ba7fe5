package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics tracks checkout latency, created orders and rejections.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	orders   prometheus.Counter
	failures *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout collectors on reg. A nil registerer yields no-op metrics.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "duration_seconds",
		Help:      "Duration of checkout attempts in seconds.",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"outcome"})
	orders := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "orders_created_total",
		Help:      "Orders created by successful checkouts.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "failures_total",
		Help:      "Rejected checkouts by error code.",
	}, []string{"code"})
	reg.MustRegister(duration, orders, failures)
	return &CheckoutMetrics{duration: duration, orders: orders, failures: failures}
}

// ObserveSuccess records a committed checkout that produced ordersCreated orders.
func (m *CheckoutMetrics) ObserveSuccess(elapsed time.Duration, ordersCreated int) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues("success").Observe(elapsed.Seconds())
	m.orders.Add(float64(ordersCreated))
}

// ObserveFailure records a rejected or failed checkout.
func (m *CheckoutMetrics) ObserveFailure(elapsed time.Duration, code string) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues("failure").Observe(elapsed.Seconds())
	m.failures.WithLabelValues(normalizeLabel(code)).Inc()
}
