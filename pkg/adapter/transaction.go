package adapter

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"

	"github.com/sepcity/proxygen/internal/logger"
	"github.com/sepcity/proxygen/pkg/http/httperr"
	"github.com/sepcity/proxygen/pkg/http/session"
)

// Txn is the HTTP/1.1 server-side transaction: one request/response
// exchange on a connection. Ingress body is buffered here until the
// response is written, at which point the connection consumes it and
// reports the freed bytes back to the session's flow-control accounting.
type Txn struct {
	id      string
	conn    *HTTPConnection
	handler session.Handler
	body    bytes.Buffer
	aborted bool
}

func newTxn(conn *HTTPConnection) *Txn {
	return &Txn{
		id:   uuid.NewString(),
		conn: conn,
	}
}

// ID implements session.Transaction.
func (t *Txn) ID() string { return t.id }

// OnIngressBody implements session.Transaction. Padding carries no payload
// and is not buffered; it was already counted by the session.
func (t *Txn) OnIngressBody(body []byte, _ uint16) {
	t.body.Write(body)
}

// SetHandler implements session.Transaction.
func (t *Txn) SetHandler(h session.Handler) {
	t.handler = h
}

// OnError implements session.Transaction.
func (t *Txn) OnError(err *httperr.Error) {
	if t.handler == nil {
		logger.Debug("transaction error with no handler",
			logger.KeyTxnID, t.id,
			logger.KeyErrorCode, err.Code)
		return
	}
	t.handler.OnError(err)
}

// SendAbort implements session.Transaction. For HTTP/1.1 the only abort
// mechanism is closing the connection.
func (t *Txn) SendAbort() {
	t.aborted = true
	t.body.Reset()
	t.conn.abort()
}

// SendErrorResponse implements ErrorResponder: a controller-supplied parse
// error handler uses it to answer malformed ingress before the connection
// closes.
func (t *Txn) SendErrorResponse(statusCode int) {
	body := fmt.Sprintf("%d %s\r\n", statusCode, statusText(statusCode))
	t.conn.writeResponse(t, statusCode, []byte(body), true)
}

// consumePending drains the buffered ingress body, returning the number of
// bytes freed.
func (t *Txn) consumePending() int {
	n := t.body.Len()
	t.body.Reset()
	return n
}

func statusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 408:
		return "Request Timeout"
	case 431:
		return "Request Header Fields Too Large"
	case 500:
		return "Internal Server Error"
	default:
		return "Error"
	}
}
