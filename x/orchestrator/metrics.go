package orchestrator

import (
	metricspkg "github.com/axal-network/claim-agent/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds orchestrator-level metrics. A nil *Metrics disables all
// recording, which keeps tests free of registry collisions.
type Metrics struct {
	registry *metricspkg.ComponentRegistry

	ClaimsSubmitted      prometheus.Counter
	Finalizations        *prometheus.CounterVec
	FinalizeRetries      prometheus.Counter
	FinalizeFailures     prometheus.Counter
	Notifications        *prometheus.CounterVec
	PendingFinalizations prometheus.Gauge
	FinalizeDuration     prometheus.Histogram
}

// NewMetrics creates orchestrator metrics.
func NewMetrics() *Metrics {
	reg := metricspkg.NewComponentRegistry("orchestrator", "")

	return &Metrics{
		registry: reg,

		ClaimsSubmitted: reg.NewCounter(prometheus.CounterOpts{
			Name: "claims_submitted_total",
			Help: "Total number of claims submitted to the ledger",
		}),

		Finalizations: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "finalizations_total",
			Help: "Total number of finalized claims",
		}, []string{"outcome"}),

		FinalizeRetries: reg.NewCounter(prometheus.CounterOpts{
			Name: "finalize_retries_total",
			Help: "Total number of retried finalize attempts",
		}),

		FinalizeFailures: reg.NewCounter(prometheus.CounterOpts{
			Name: "finalize_failures_total",
			Help: "Total number of permanently failed finalizations requiring operator action",
		}),

		Notifications: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of outcome notifications by delivery status",
		}, []string{"status"}),

		PendingFinalizations: reg.NewGauge(prometheus.GaugeOpts{
			Name: "pending_finalizations",
			Help: "Number of claims waiting out their dispute window",
		}),

		FinalizeDuration: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "finalize_duration_seconds",
			Help:    "Wall time of successful finalizations including retries",
			Buckets: metricspkg.DurationBuckets,
		}),
	}
}

func (m *Metrics) recordSubmitted() {
	if m == nil {
		return
	}
	m.ClaimsSubmitted.Inc()
}

func (m *Metrics) recordFinalization(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Finalizations.WithLabelValues(outcome).Inc()
	m.FinalizeDuration.Observe(seconds)
}

func (m *Metrics) recordFinalizeRetry() {
	if m == nil {
		return
	}
	m.FinalizeRetries.Inc()
}

func (m *Metrics) recordFinalizeFailure() {
	if m == nil {
		return
	}
	m.FinalizeFailures.Inc()
}

func (m *Metrics) recordNotification(status string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(status).Inc()
}

func (m *Metrics) setPending(n int) {
	if m == nil {
		return
	}
	m.PendingFinalizations.Set(float64(n))
}
