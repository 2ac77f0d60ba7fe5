package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderMetrics counts lifecycle transitions.
type OrderMetrics struct {
	transitions *prometheus.CounterVec
	restored    prometheus.Counter
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "transitions_total",
		Help:      "Order lifecycle transition attempts by action and result.",
	}, []string{"action", "result"})
	restored := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "stock_restored_units_total",
		Help:      "Units returned to stock by cancellations.",
	})
	reg.MustRegister(transitions, restored)
	return &OrderMetrics{transitions: transitions, restored: restored}
}

func (m *OrderMetrics) IncTransition(action, result string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(action), normalizeLabel(result)).Inc()
}

func (m *OrderMetrics) AddRestoredUnits(units int) {
	if m == nil || m.restored == nil || units <= 0 {
		return
	}
	m.restored.Add(float64(units))
}
