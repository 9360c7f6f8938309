package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records counters and timings for the order pipeline.
type OrderMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	ordersCreated    *prometheus.CounterVec
	stockConflicts   *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	returns          prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created, by payment method.",
	}, []string{"payment_method"})
	stockConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_conflicts_total",
		Help: "Checkout attempts rejected for insufficient stock.",
	}, []string{"reason"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transitions applied.",
	}, []string{"from", "to"})
	returns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_returns_total",
		Help: "Delivered orders returned.",
	})
	reg.MustRegister(checkoutDuration, ordersCreated, stockConflicts, transitions, returns)
	return &OrderMetrics{
		checkoutDuration: checkoutDuration,
		ordersCreated:    ordersCreated,
		stockConflicts:   stockConflicts,
		transitions:      transitions,
		returns:          returns,
	}
}

// ObserveCheckout records the duration of a checkout attempt.
func (m *OrderMetrics) ObserveCheckout(outcome string, duration time.Duration) {
	if m == nil || m.checkoutDuration == nil {
		return
	}
	m.checkoutDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncOrdersCreated increments the created counter for the payment method.
func (m *OrderMetrics) IncOrdersCreated(paymentMethod string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncStockConflict increments the insufficient-stock counter.
func (m *OrderMetrics) IncStockConflict(reason string) {
	if m == nil || m.stockConflicts == nil {
		return
	}
	m.stockConflicts.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncTransition increments the transition counter for a status pair.
func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncReturn increments the returns counter.
func (m *OrderMetrics) IncReturn() {
	if m == nil || m.returns == nil {
		return
	}
	m.returns.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
