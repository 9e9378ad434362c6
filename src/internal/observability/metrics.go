// Package observability exposes Prometheus instruments for the transfer
// engine. Every method is safe on a nil *Metrics so callers that do not care
// about metrics can pass nil.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "ledger"

const transferSubsystem = "transfer"

type Metrics struct {
	SubmittedTotal            prometheus.Counter
	SettledTotal              *prometheus.CounterVec
	VersionConflictsTotal     prometheus.Counter
	ApplyRetriesTotal         prometheus.Counter
	SettlementFailuresTotal   prometheus.Counter
	NotificationFailuresTotal prometheus.Counter
	DispatchRejectionsTotal   *prometheus.CounterVec
	ClaimSkippedTotal         prometheus.Counter
	AttemptsPerExecution      prometheus.Histogram
}

// NewMetrics creates the instruments and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: transferSubsystem,
			Name:      "submitted_total",
			Help:      "Transfers accepted and persisted as PENDING.",
		}),
		SettledTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: transferSubsystem,
			Name:      "settled_total",
			Help:      "Transactions settled, by terminal state and reason.",
		}, []string{"state", "reason"}),
		VersionConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: transferSubsystem,
			Name:      "version_conflicts_total",
			Help:      "Conditional account writes rejected because of a concurrent writer.",
		}),
		ApplyRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: transferSubsystem,
			Name:      "apply_retries_total",
			Help:      "Apply attempts retried after a conflict or storage fault.",
		}),
		SettlementFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: transferSubsystem,
			Name:      "settlement_failures_total",
			Help:      "Terminal states that could not be recorded. Each one needs an operator.",
		}),
		NotificationFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: transferSubsystem,
			Name:      "notification_failures_total",
			Help:      "Outcome notifications that could not be delivered.",
		}),
		DispatchRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: transferSubsystem,
			Name:      "dispatch_rejections_total",
			Help:      "Transactions left PENDING because dispatch was refused.",
		}, []string{"source"}),
		ClaimSkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: transferSubsystem,
			Name:      "claim_skipped_total",
			Help:      "Executions that stopped because the transaction was already claimed.",
		}),
		AttemptsPerExecution: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: transferSubsystem,
			Name:      "attempts_per_execution",
			Help:      "Apply attempts used per executed transaction.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 13},
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.SubmittedTotal,
			m.SettledTotal,
			m.VersionConflictsTotal,
			m.ApplyRetriesTotal,
			m.SettlementFailuresTotal,
			m.NotificationFailuresTotal,
			m.DispatchRejectionsTotal,
			m.ClaimSkippedTotal,
			m.AttemptsPerExecution,
		)
	}

	return m
}

func (m *Metrics) RecordSubmitted() {
	if m == nil {
		return
	}
	m.SubmittedTotal.Inc()
}

func (m *Metrics) RecordSettled(state, reason string, attempts int) {
	if m == nil {
		return
	}
	m.SettledTotal.WithLabelValues(state, reason).Inc()
	if attempts > 0 {
		m.AttemptsPerExecution.Observe(float64(attempts))
	}
}

func (m *Metrics) RecordVersionConflict() {
	if m == nil {
		return
	}
	m.VersionConflictsTotal.Inc()
}

func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.ApplyRetriesTotal.Inc()
}

func (m *Metrics) RecordSettlementFailure() {
	if m == nil {
		return
	}
	m.SettlementFailuresTotal.Inc()
}

func (m *Metrics) RecordNotificationFailure() {
	if m == nil {
		return
	}
	m.NotificationFailuresTotal.Inc()
}

func (m *Metrics) RecordDispatchRejected(source string) {
	if m == nil {
		return
	}
	m.DispatchRejectionsTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordClaimSkipped() {
	if m == nil {
		return
	}
	m.ClaimSkippedTotal.Inc()
}
