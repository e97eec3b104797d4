// Package metrics provides Prometheus observability for HTTP sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics tracks session-level Prometheus metrics.
//
// All metrics use the proxygen_ prefix. Pass nil wherever a *SessionMetrics
// is accepted to disable collection with zero overhead.
type SessionMetrics struct {
	// SessionsActive tracks currently open sessions
	SessionsActive prometheus.Gauge

	// SessionsTotal counts sessions ever opened
	SessionsTotal prometheus.Counter

	// IngressLimitExceededTotal counts ingress buffer limit crossings
	IngressLimitExceededTotal prometheus.Counter

	// IngressErrorsTotal counts ingress errors by normalized code
	IngressErrorsTotal *prometheus.CounterVec

	// TransactionsAbortedTotal counts transactions aborted by error dispatch
	TransactionsAbortedTotal prometheus.Counter

	// IngressBytesTotal counts ingress body bytes delivered to sessions
	IngressBytesTotal prometheus.Counter

	// TTLB tracks time-to-last-byte latency
	TTLB prometheus.Histogram
}

// NewSessionMetrics creates session metrics registered against reg
// (typically prometheus.DefaultRegisterer). Panics if registration fails,
// which is expected during initialization only.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "proxygen_sessions_active",
				Help: "Current number of open HTTP sessions",
			},
		),
		SessionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "proxygen_sessions_total",
				Help: "Total HTTP sessions ever opened",
			},
		),
		IngressLimitExceededTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "proxygen_ingress_limit_exceeded_total",
				Help: "Times a session's buffered ingress first exceeded its limit",
			},
		),
		IngressErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxygen_ingress_errors_total",
				Help: "Ingress errors delivered to parse-error handlers, by code",
			},
			[]string{"code"},
		),
		TransactionsAbortedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "proxygen_transactions_aborted_total",
				Help: "Transactions aborted by parse-error dispatch",
			},
		),
		IngressBytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "proxygen_ingress_bytes_total",
				Help: "Ingress body bytes delivered to sessions",
			},
		),
		TTLB: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "proxygen_ttlb_seconds",
				Help:    "Time-to-last-byte latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	reg.MustRegister(
		m.SessionsActive,
		m.SessionsTotal,
		m.IngressLimitExceededTotal,
		m.IngressErrorsTotal,
		m.TransactionsAbortedTotal,
		m.IngressBytesTotal,
		m.TTLB,
	)
	return m
}
