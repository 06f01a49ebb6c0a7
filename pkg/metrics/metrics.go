package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Webhook ingestion metrics
	WebhookEvents    *prometheus.CounterVec
	WebhookRejected  prometheus.Counter
	WebhookLatency   prometheus.Histogram

	// Merchant dispatch metrics
	DispatchAttempts   prometheus.Counter
	DispatchDeliveries prometheus.Counter
	DispatchFailures   prometheus.Counter
	DispatchLatency    prometheus.Histogram

	// Reconciliation sweep metrics
	SweepRuns      prometheus.Counter
	SweepRecovered prometheus.Counter
	SweepFailed    prometheus.Counter
}

// New creates the metric set without registering it; callers register via
// MustRegister so tests can hold independent instances.
func New(namespace string) *Metrics {
	return &Metrics{
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Total number of processed webhook events by outcome and source",
		}, []string{"outcome", "source"}),
		WebhookRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_rejected_total",
			Help:      "Total number of webhook deliveries rejected for an invalid signature",
		}),
		WebhookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_processing_duration_seconds",
			Help:      "Time spent processing inbound webhook events",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		DispatchAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_attempts_total",
			Help:      "Total number of merchant delivery attempts",
		}),
		DispatchDeliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_deliveries_total",
			Help:      "Total number of successful merchant deliveries",
		}),
		DispatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_failures_total",
			Help:      "Total number of dispatches that exhausted all retries",
		}),
		DispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent delivering notifications to merchant endpoints",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		SweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Total number of per-account reconciliation sweep runs",
		}),
		SweepRecovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_recovered_events_total",
			Help:      "Total number of events recovered by reconciliation sweeps",
		}),
		SweepFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_failed_notifications_total",
			Help:      "Total number of sweep dispatches that exhausted all retries",
		}),
	}
}

// MustRegister registers every metric with the given registerer.
func (m *Metrics) MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		m.WebhookEvents,
		m.WebhookRejected,
		m.WebhookLatency,
		m.DispatchAttempts,
		m.DispatchDeliveries,
		m.DispatchFailures,
		m.DispatchLatency,
		m.SweepRuns,
		m.SweepRecovered,
		m.SweepFailed,
	)
}
