package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records checkout and courier dispatch outcomes.
type OrderMetrics struct {
	placed            *prometheus.CounterVec
	checkoutDuration  prometheus.Histogram
	insufficientStock prometheus.Counter
	dispatches        *prometheus.CounterVec
	courierDuration   prometheus.Histogram
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders placed, labelled by outcome.",
	}, []string{"outcome"})
	checkoutDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of the place-order transaction in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	insufficientStock := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_insufficient_stock_total",
		Help: "Checkouts rejected because stock ran out.",
	})
	dispatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_dispatches_total",
		Help: "Courier dispatch attempts, labelled by outcome.",
	}, []string{"outcome"})
	courierDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "courier_request_duration_seconds",
		Help:    "Duration of courier API calls in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(placed, checkoutDuration, insufficientStock, dispatches, courierDuration)
	return &OrderMetrics{
		placed:            placed,
		checkoutDuration:  checkoutDuration,
		insufficientStock: insufficientStock,
		dispatches:        dispatches,
		courierDuration:   courierDuration,
	}
}

// IncPlaced increments the placed counter for the given outcome.
func (m *OrderMetrics) IncPlaced(outcome string) {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveCheckout records how long the place-order transaction took.
func (m *OrderMetrics) ObserveCheckout(duration time.Duration) {
	if m == nil || m.checkoutDuration == nil {
		return
	}
	m.checkoutDuration.Observe(duration.Seconds())
}

// IncInsufficientStock counts a checkout lost to a concurrent buyer.
func (m *OrderMetrics) IncInsufficientStock() {
	if m == nil || m.insufficientStock == nil {
		return
	}
	m.insufficientStock.Inc()
}

// IncDispatch increments the dispatch counter for the given outcome.
func (m *OrderMetrics) IncDispatch(outcome string) {
	if m == nil || m.dispatches == nil {
		return
	}
	m.dispatches.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveCourierRequest records the latency of one courier API call.
func (m *OrderMetrics) ObserveCourierRequest(duration time.Duration) {
	if m == nil || m.courierDuration == nil {
		return
	}
	m.courierDuration.Observe(duration.Seconds())
}

func normalizeLabel(outcome string) string {
	if outcome == "" {
		return "unknown"
	}
	return outcome
}
