package session

import (
	"net/netip"

	"github.com/sepcity/proxygen/pkg/http/codec"
	"github.com/sepcity/proxygen/pkg/http/httperr"
)

// Controller is the policy and lifecycle delegate a session reports to.
//
// The reference a session holds is non-owning: the controller either
// outlives the session or is detached before the session is destroyed. The
// binding protocol is strict - at most one AttachSession without an
// intervening DetachSession, and DetachSession is called exactly once during
// session teardown, even if teardown is re-entered from a callback.
type Controller interface {
	// AttachSession tells the controller it now manages s.
	AttachSession(s *Base)

	// DetachSession tells the controller s is going away. After this call
	// the session never touches the controller again.
	DetachSession(s *Base)

	// OnSessionCodecChange notifies the controller that s swapped its
	// codec. The session re-derives controller-supplied codec
	// configuration (e.g. the header-indexing strategy) after this call.
	OnSessionCodecChange(s *Base)

	// GetParseErrorHandler returns the handler to install on a
	// transaction whose ingress failed to parse, or nil when the error
	// should abort the transaction. Only consulted for downstream
	// sessions; localAddr identifies the listening address the policy may
	// key on.
	GetParseErrorHandler(txn Transaction, err *httperr.Error, localAddr netip.AddrPort) Handler

	// GetHeaderIndexingStrategy returns the HPACK indexing policy the
	// controller wants in effect for sessions it manages.
	GetHeaderIndexingStrategy() codec.HeaderIndexingStrategy
}
