package metrics

import (
	"time"

	"github.com/sepcity/proxygen/pkg/http/httperr"
	"github.com/sepcity/proxygen/pkg/http/session"
)

// SessionObserver is a session.InfoCallback and session.Stats backed by
// SessionMetrics. One observer serves every session of a server; per-session
// identity is deliberately not a label to keep cardinality bounded.
type SessionObserver struct {
	metrics *SessionMetrics
}

// NewSessionObserver creates an observer recording into m.
// Returns nil when m is nil, so a disabled metrics setup stays zero-cost
// (the session treats a nil observer as "no observer").
func NewSessionObserver(m *SessionMetrics) *SessionObserver {
	if m == nil {
		return nil
	}
	return &SessionObserver{metrics: m}
}

// OnSessionCreated records a session open. Called by the adapter, which is
// the component that actually constructs sessions.
func (o *SessionObserver) OnSessionCreated(_ *session.Base) {
	o.metrics.SessionsTotal.Inc()
	o.metrics.SessionsActive.Inc()
}

// OnDestroy implements session.InfoCallback.
func (o *SessionObserver) OnDestroy(_ *session.Base) {
	o.metrics.SessionsActive.Dec()
}

// OnIngressLimitExceeded implements session.InfoCallback.
func (o *SessionObserver) OnIngressLimitExceeded(_ *session.Base) {
	o.metrics.IngressLimitExceededTotal.Inc()
}

// OnIngressError implements session.InfoCallback.
func (o *SessionObserver) OnIngressError(_ *session.Base, code httperr.Code) {
	o.metrics.IngressErrorsTotal.WithLabelValues(code.String()).Inc()
}

// RecordTTLB implements session.Stats.
func (o *SessionObserver) RecordTTLB(d time.Duration) {
	o.metrics.TTLB.Observe(d.Seconds())
}

// RecordTransactionAborted implements session.Stats.
func (o *SessionObserver) RecordTransactionAborted() {
	o.metrics.TransactionsAbortedTotal.Inc()
}

// RecordIngressBytes records ingress body bytes delivered to a session.
func (o *SessionObserver) RecordIngressBytes(n int) {
	o.metrics.IngressBytesTotal.Add(float64(n))
}
