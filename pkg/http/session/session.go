package session

import (
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sepcity/proxygen/internal/logger"
	"github.com/sepcity/proxygen/pkg/http/codec"
	"github.com/sepcity/proxygen/pkg/http/httperr"
)

// Process-wide session defaults, overridable at startup (pkg/config applies
// the configured values before any listener accepts connections).
var (
	defaultIngressBufferLimit  atomic.Uint32
	defaultEgressBufferLimit   atomic.Uint32
	defaultEgressBodySizeLimit atomic.Uint32
	maxReadBufferSize          atomic.Uint32
)

func init() {
	defaultIngressBufferLimit.Store(65536)
	defaultEgressBufferLimit.Store(65536)
	defaultEgressBodySizeLimit.Store(4096)
	maxReadBufferSize.Store(4000)
}

// DefaultIngressBufferLimit returns the process-wide ingress buffer limit
// applied to new sessions.
func DefaultIngressBufferLimit() uint32 { return defaultIngressBufferLimit.Load() }

// SetDefaultIngressBufferLimit overrides the process-wide ingress buffer
// limit for sessions created afterwards.
func SetDefaultIngressBufferLimit(limit uint32) { defaultIngressBufferLimit.Store(limit) }

// DefaultEgressBufferLimit returns the process-wide egress buffer limit.
func DefaultEgressBufferLimit() uint32 { return defaultEgressBufferLimit.Load() }

// SetDefaultEgressBufferLimit overrides the process-wide egress buffer limit.
func SetDefaultEgressBufferLimit(limit uint32) { defaultEgressBufferLimit.Store(limit) }

// DefaultEgressBodySizeLimit returns the chunk size egress body writes are
// split into.
func DefaultEgressBodySizeLimit() uint32 { return defaultEgressBodySizeLimit.Load() }

// SetDefaultEgressBodySizeLimit overrides the egress body chunk size.
func SetDefaultEgressBodySizeLimit(limit uint32) { defaultEgressBodySizeLimit.Store(limit) }

// MaxReadBufferSize returns the per-read buffer size used by connection read
// loops.
func MaxReadBufferSize() uint32 { return maxReadBufferSize.Load() }

// SetMaxReadBufferSize overrides the per-read buffer size.
func SetMaxReadBufferSize(size uint32) { maxReadBufferSize.Store(size) }

// InfoCallback observes session lifecycle and ingress events. All methods
// are optional behavior hooks; implementations must tolerate being called
// during session teardown.
type InfoCallback interface {
	// OnDestroy fires once, at the start of session teardown.
	OnDestroy(s *Base)

	// OnIngressLimitExceeded fires on the edge where buffered ingress
	// first exceeds the session limit. The expected reaction is to pause
	// reads until the symmetric below-limit edge is observed.
	OnIngressLimitExceeded(s *Base)

	// OnIngressError fires when a parse error is delivered to a
	// controller-supplied handler, with the normalized error code.
	OnIngressError(s *Base, code httperr.Code)
}

// Stats is the per-session stats sink. It is non-owning; the session and
// its byte-event tracker forward measurements to whatever sink is installed.
type Stats interface {
	// RecordTTLB records a time-to-last-byte measurement.
	RecordTTLB(d time.Duration)

	// RecordTransactionAborted records a transaction aborted by error
	// dispatch.
	RecordTransactionAborted()
}

// Base carries the state and behavior shared by every HTTP session
// implementation: session-wide ingress flow-control accounting, byte-event
// tracker ownership, the controller binding, and parse-error dispatch.
//
// A Base is mutated only by its owning connection goroutine. Callbacks
// (InfoCallback, Controller, transaction handlers) run synchronously on that
// goroutine and may destroy the session re-entrantly; every public entry
// point holds a lifetime guard so the session survives until the call
// returns.
type Base struct {
	id           uuid.UUID
	localAddr    netip.AddrPort
	peerAddr     netip.AddrPort
	codec        codec.Codec
	controller   Controller
	infoCallback InfoCallback
	sessionStats Stats

	ingress WatermarkCounter
	tracker ByteEventTracker

	exHeadersEnabled bool

	// Lifetime guard state. guards counts public entry points currently on
	// the stack; destruction requested while guards > 0 is deferred to the
	// release of the last guard.
	guards         int
	destroyPending bool
	destroyed      bool
	teardownHook   func(s *Base)
}

// NewBase constructs the shared session state.
//
// IPv4-mapped IPv6 addresses are rewritten to plain IPv4 here, exactly once;
// the stored addresses are immutable afterwards. The controller, if any, is
// attached immediately, and its header-indexing strategy is applied when the
// codec exposes that capability.
func NewBase(localAddr, peerAddr netip.AddrPort, controller Controller, c codec.Codec, info InfoCallback) *Base {
	s := &Base{
		id:           uuid.New(),
		localAddr:    netip.AddrPortFrom(localAddr.Addr().Unmap(), localAddr.Port()),
		peerAddr:     netip.AddrPortFrom(peerAddr.Addr().Unmap(), peerAddr.Port()),
		codec:        c,
		infoCallback: info,
		ingress:      NewWatermarkCounter(DefaultIngressBufferLimit()),
	}
	s.setController(controller)
	return s
}

// ID returns the session identifier used in logs.
func (s *Base) ID() uuid.UUID { return s.id }

// LocalAddr returns the normalized local address.
func (s *Base) LocalAddr() netip.AddrPort { return s.localAddr }

// PeerAddr returns the normalized peer address.
func (s *Base) PeerAddr() netip.AddrPort { return s.peerAddr }

// Codec returns the active codec.
func (s *Base) Codec() codec.Codec { return s.codec }

// Controller returns the attached controller, or nil.
func (s *Base) Controller() Controller { return s.controller }

// PendingReadSize returns the buffered ingress byte count.
func (s *Base) PendingReadSize() uint32 { return s.ingress.Current() }

// ReadBufferLimit returns this session's ingress buffer limit.
func (s *Base) ReadBufferLimit() uint32 { return s.ingress.Limit() }

// ExHeadersEnabled reports whether extended headers were advertised.
func (s *Base) ExHeadersEnabled() bool { return s.exHeadersEnabled }

// SetSessionStats installs the stats sink, propagating it to the installed
// byte-event tracker so the two never disagree.
func (s *Base) SetSessionStats(stats Stats) {
	s.sessionStats = stats
	if s.tracker != nil {
		s.tracker.SetStats(stats)
	}
}

// SetTeardownHook installs a hook run at the end of teardown, after the
// observer and controller have been notified. The owning connection uses it
// to release transport resources.
func (s *Base) SetTeardownHook(hook func(s *Base)) {
	s.teardownHook = hook
}

// setController stores the controller and attaches the session to it.
func (s *Base) setController(controller Controller) {
	s.controller = controller
	if s.controller != nil {
		s.controller.AttachSession(s)
	}
	s.initCodecHeaderIndexingStrategy()
}

// OnBody delivers a chunk of ingress body for txn, updating the shared
// ingress accounting. It returns true only on the edge where buffered
// ingress first exceeds the session limit; the caller should then pause
// reads until NotifyBodyProcessed returns true.
func (s *Base) OnBody(txn Transaction, body []byte, padding uint16) bool {
	defer s.acquireGuard()()

	crossedAbove := s.ingress.RecordIngress(uint32(len(body)), uint32(padding))
	txn.OnIngressBody(body, padding)

	logger.Debug("enqueued ingress",
		logger.KeySessionID, s.id,
		logger.KeyTxnID, txn.ID(),
		logger.KeyPendingBytes, s.ingress.Current(),
		logger.KeyLimit, s.ingress.Limit())

	if crossedAbove {
		if s.infoCallback != nil {
			s.infoCallback.OnIngressLimitExceeded(s)
		}
		return true
	}
	return false
}

// NotifyBodyProcessed records that the application consumed bytes of
// buffered ingress. It returns true only on the edge where buffered ingress
// drops back to at-or-below the session limit, signaling that reads may
// resume.
func (s *Base) NotifyBodyProcessed(bytes uint32) bool {
	defer s.acquireGuard()()

	crossedBelow := s.ingress.RecordConsumed(bytes)

	logger.Debug("dequeued ingress",
		logger.KeySessionID, s.id,
		logger.KeyBytes, bytes,
		logger.KeyPendingBytes, s.ingress.Current(),
		logger.KeyLimit, s.ingress.Limit())

	return crossedBelow
}

// SetByteEventTracker installs tracker as the session's byte-event tracker,
// wiring cb as its event sink.
//
// When a tracker is already installed and tracker is a different, non-nil
// instance, the new tracker absorbs the old one's pending events first, so
// no in-flight timing event is lost across the replacement. The current
// stats sink is re-applied to whatever tracker ends up installed.
func (s *Base) SetByteEventTracker(tracker ByteEventTracker, cb ByteEventCallback) {
	if tracker != nil && s.tracker != nil && tracker != s.tracker {
		tracker.Absorb(s.tracker)
	}
	s.tracker = tracker
	if s.tracker != nil {
		s.tracker.SetCallback(cb)
		s.tracker.SetStats(s.sessionStats)
	}
}

// ByteEventTracker returns the installed tracker, or nil.
func (s *Base) ByteEventTracker() ByteEventTracker { return s.tracker }

// SetCodec replaces the session codec and runs the codec-change protocol.
func (s *Base) SetCodec(c codec.Codec) {
	s.codec = c
	s.OnCodecChanged()
}

// OnCodecChanged notifies the controller of a codec change and re-derives
// the controller-supplied codec configuration. The indexing strategy is
// recomputed on every change rather than cached, so a controller swap or
// protocol upgrade can never leave a stale policy in place.
func (s *Base) OnCodecChanged() {
	defer s.acquireGuard()()

	if s.controller != nil {
		s.controller.OnSessionCodecChange(s)
	}
	s.initCodecHeaderIndexingStrategy()
}

// initCodecHeaderIndexingStrategy applies the controller's header-indexing
// strategy when the codec exposes that capability for its current protocol.
// The capability query replaces an unconditional downcast: HTTP/1.x codecs
// simply do not implement it.
func (s *Base) initCodecHeaderIndexingStrategy() {
	if s.controller == nil {
		return
	}
	configurer, ok := s.codec.(codec.HeaderIndexingConfigurer)
	if !ok || !s.codec.Protocol().IsHTTP2() {
		return
	}
	configurer.SetHeaderIndexingStrategy(s.controller.GetHeaderIndexingStrategy())
}

// EnableExHeadersSettings advertises extended header support through the
// codec's egress settings. A no-op for codecs without a settings exchange.
func (s *Base) EnableExHeadersSettings() {
	settings := s.codec.EgressSettings()
	if settings == nil {
		return
	}
	settings.Set(codec.SettingEnableExHeaders, 1)
	s.exHeadersEnabled = true
}

// HandleErrorDirectly dispatches a parse error for txn and reports whether a
// handler took it over.
//
// Upstream sessions cannot meaningfully recover from a parse error
// mid-response, so the transaction is aborted without consulting the
// controller. Downstream sessions ask the controller for a parse-error
// handler; when one is produced it is installed on the transaction, the
// observer is told about the ingress error, and the error is delivered
// through the transaction's normal error path. Without a handler the
// transaction is aborted.
func (s *Base) HandleErrorDirectly(txn Transaction, err *httperr.Error) bool {
	defer s.acquireGuard()()

	handler := s.getParseErrorHandler(txn, err)
	if handler == nil {
		logger.Debug("aborting transaction on parse error",
			logger.KeySessionID, s.id,
			logger.KeyTxnID, txn.ID(),
			logger.KeyErrorCode, err.Code)
		if s.sessionStats != nil {
			s.sessionStats.RecordTransactionAborted()
		}
		txn.SendAbort()
		return false
	}

	txn.SetHandler(handler)
	if s.infoCallback != nil {
		s.infoCallback.OnIngressError(s, err.Code)
	}
	txn.OnError(err)
	return true
}

// getParseErrorHandler returns the handler to install for a parse error, or
// nil when the transaction must be aborted.
func (s *Base) getParseErrorHandler(txn Transaction, err *httperr.Error) Handler {
	if s.codec.TransportDirection() == codec.DirectionUpstream {
		// All an upstream session can do with malformed ingress is abort.
		return nil
	}
	if s.controller == nil {
		return nil
	}
	return s.controller.GetParseErrorHandler(txn, err, s.localAddr)
}

// Destroy tears the session down: the observer is notified, the controller
// is detached exactly once, and the teardown hook runs. Destroy is
// idempotent, and a Destroy issued from inside a callback while a public
// entry point is still on the stack is deferred until that entry point
// returns.
func (s *Base) Destroy() {
	if s.destroyed || s.destroyPending {
		return
	}
	if s.guards > 0 {
		s.destroyPending = true
		return
	}
	s.teardown()
}

// Destroyed reports whether teardown has completed.
func (s *Base) Destroyed() bool { return s.destroyed }

func (s *Base) teardown() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.destroyPending = false

	logger.Debug("session teardown",
		logger.KeySessionID, s.id,
		logger.KeyPeerAddr, s.peerAddr)

	if s.infoCallback != nil {
		s.infoCallback.OnDestroy(s)
	}
	if s.controller != nil {
		controller := s.controller
		s.controller = nil
		controller.DetachSession(s)
	}
	if s.teardownHook != nil {
		s.teardownHook(s)
	}
}

// acquireGuard marks a public entry point as in progress and returns the
// matching release. While any guard is held, callback-triggered destruction
// is deferred so the receiver stays valid for the rest of the call.
func (s *Base) acquireGuard() func() {
	s.guards++
	return s.releaseGuard
}

func (s *Base) releaseGuard() {
	s.guards--
	if s.guards == 0 && s.destroyPending {
		s.teardown()
	}
}
