package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout attempt outcomes and latency.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

const (
	OutcomeCompleted = "completed"
	OutcomeShortage  = "shortage"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout executions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(duration, outcomes)
	return &CheckoutMetrics{duration: duration, outcomes: outcomes}
}

// Observe records one checkout attempt with its outcome and duration.
func (c *CheckoutMetrics) Observe(outcome string, duration time.Duration) {
	if c == nil || c.outcomes == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	c.outcomes.WithLabelValues(outcome).Inc()
	c.duration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RemoteSyncMetrics records best-effort remote mirror outcomes per operation.
type RemoteSyncMetrics struct {
	success *prometheus.CounterVec
	failure *prometheus.CounterVec
}

// NewRemoteSyncMetrics registers the sync metrics on the provided registerer.
func NewRemoteSyncMetrics(reg prometheus.Registerer) *RemoteSyncMetrics {
	if reg == nil {
		return &RemoteSyncMetrics{}
	}
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_sync_success",
		Help: "Successful remote mirror operations.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_sync_failure",
		Help: "Failed remote mirror operations.",
	}, []string{"operation"})
	reg.MustRegister(success, failure)
	return &RemoteSyncMetrics{success: success, failure: failure}
}

// IncSuccess increments the success counter for the named operation.
func (m *RemoteSyncMetrics) IncSuccess(operation string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (m *RemoteSyncMetrics) IncFailure(operation string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
