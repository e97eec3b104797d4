package session

import (
	"github.com/sepcity/proxygen/pkg/http/httperr"
)

// Handler consumes a transaction's events on behalf of the application.
// Parse-error handlers returned by a Controller implement this so malformed
// ingress can still produce an application-visible error response.
type Handler interface {
	// OnError delivers an error through the transaction's normal
	// error-handling path.
	OnError(err *httperr.Error)
}

// Transaction is the session-facing surface of a single request/response
// exchange. Concrete transactions own per-stream state (headers, body
// buffers, egress); the session core only delivers ingress, rewires
// handlers, and aborts.
type Transaction interface {
	// ID returns a stable identifier for logging.
	ID() string

	// OnIngressBody delivers a chunk of ingress body data. The
	// transaction buffers it until its handler consumes it and the
	// session is told via NotifyBodyProcessed.
	OnIngressBody(body []byte, padding uint16)

	// SetHandler replaces the transaction's active handler.
	SetHandler(h Handler)

	// OnError delivers an error to the transaction's handler.
	OnError(err *httperr.Error)

	// SendAbort aborts the transaction immediately, discarding any
	// buffered state.
	SendAbort()
}
