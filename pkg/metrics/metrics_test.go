package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepcity/proxygen/pkg/http/httperr"
)

func TestNewSessionObserver(t *testing.T) {
	t.Run("NilMetricsGivesNilObserver", func(t *testing.T) {
		assert.Nil(t, NewSessionObserver(nil))
	})

	t.Run("RegistersAllCollectors", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m := NewSessionMetrics(reg)
		require.NotNil(t, NewSessionObserver(m))

		// Double registration of the same names must fail.
		assert.Panics(t, func() { NewSessionMetrics(reg) })
	})
}

func TestSessionObserverRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSessionMetrics(reg)
	o := NewSessionObserver(m)

	t.Run("SessionLifecycle", func(t *testing.T) {
		o.OnSessionCreated(nil)
		o.OnSessionCreated(nil)
		o.OnDestroy(nil)

		assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionsActive))
		assert.Equal(t, float64(2), testutil.ToFloat64(m.SessionsTotal))
	})

	t.Run("IngressAccounting", func(t *testing.T) {
		o.OnIngressLimitExceeded(nil)
		o.RecordIngressBytes(4096)

		assert.Equal(t, float64(1), testutil.ToFloat64(m.IngressLimitExceededTotal))
		assert.Equal(t, float64(4096), testutil.ToFloat64(m.IngressBytesTotal))
	})

	t.Run("IngressErrorsByCode", func(t *testing.T) {
		o.OnIngressError(nil, httperr.CodeParseHeader)
		o.OnIngressError(nil, httperr.CodeParseHeader)
		o.OnIngressError(nil, httperr.CodeTimeout)

		assert.Equal(t, float64(2),
			testutil.ToFloat64(m.IngressErrorsTotal.WithLabelValues("parse_header")))
		assert.Equal(t, float64(1),
			testutil.ToFloat64(m.IngressErrorsTotal.WithLabelValues("timeout")))
	})

	t.Run("TransactionAborts", func(t *testing.T) {
		o.RecordTransactionAborted()
		assert.Equal(t, float64(1), testutil.ToFloat64(m.TransactionsAbortedTotal))
	})

	t.Run("TTLBObservations", func(t *testing.T) {
		o.RecordTTLB(125 * time.Millisecond)
		count := testutil.CollectAndCount(m.TTLB, "proxygen_ttlb_seconds")
		assert.Equal(t, 1, count)
	})
}
