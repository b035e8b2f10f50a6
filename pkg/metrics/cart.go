package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records the lifecycle of cart service operations issued by cart mirrors.
type CartMetrics struct {
	duration  *prometheus.HistogramVec
	success   *prometheus.CounterVec
	failure   *prometheus.CounterVec
	unmatched *prometheus.CounterVec
	inFlight  prometheus.Gauge
}

// NewCartMetrics registers the cart operation metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_operation_duration_seconds",
		Help:    "Duration of cart service operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operation_success_total",
		Help: "Cart operations whose service call succeeded.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operation_failure_total",
		Help: "Cart operations whose service call was rejected.",
	}, []string{"operation"})
	unmatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operation_unmatched_total",
		Help: "Successful update/delete responses whose id was not held locally.",
	}, []string{"operation"})
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_operations_in_flight",
		Help: "Cart service calls currently outstanding across all mirrors.",
	})
	reg.MustRegister(duration, success, failure, unmatched, inFlight)
	return &CartMetrics{
		duration:  duration,
		success:   success,
		failure:   failure,
		unmatched: unmatched,
		inFlight:  inFlight,
	}
}

// Begin marks an operation as outstanding.
func (c *CartMetrics) Begin() {
	if c == nil || c.inFlight == nil {
		return
	}
	c.inFlight.Inc()
}

// Finish closes an operation started with Begin and records its outcome.
func (c *CartMetrics) Finish(operation string, duration time.Duration, err error) {
	if c == nil || c.duration == nil {
		return
	}
	label := normalizeLabel(operation)
	c.inFlight.Dec()
	c.duration.WithLabelValues(label).Observe(duration.Seconds())
	if err != nil {
		c.failure.WithLabelValues(label).Inc()
		return
	}
	c.success.WithLabelValues(label).Inc()
}

// IncUnmatched counts responses that referenced an id absent from local state.
func (c *CartMetrics) IncUnmatched(operation string) {
	if c == nil || c.unmatched == nil {
		return
	}
	c.unmatched.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(operation string) string {
	if operation == "" {
		return "unknown"
	}
	return operation
}
