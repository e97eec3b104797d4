package adapter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/sepcity/proxygen/internal/logger"
	"github.com/sepcity/proxygen/internal/telemetry"
	"github.com/sepcity/proxygen/pkg/http/codec"
	"github.com/sepcity/proxygen/pkg/http/httperr"
	"github.com/sepcity/proxygen/pkg/http/session"
	"github.com/sepcity/proxygen/pkg/metrics"
)

// HTTPAdapter serves downstream HTTP/1.1 sessions over TCP.
type HTTPAdapter struct {
	base       *BaseAdapter
	controller *ServerController
	observer   *metrics.SessionObserver
}

// NewHTTPAdapter creates the HTTP adapter. observer may be nil to disable
// metrics.
func NewHTTPAdapter(cfg BaseConfig, controller *ServerController, observer *metrics.SessionObserver) *HTTPAdapter {
	return &HTTPAdapter{
		base:       NewBaseAdapter(cfg),
		controller: controller,
		observer:   observer,
	}
}

// Base exposes the underlying TCP adapter for lifecycle control.
func (a *HTTPAdapter) Base() *BaseAdapter { return a.base }

// Serve runs the accept loop until ctx is cancelled.
func (a *HTTPAdapter) Serve(ctx context.Context) error {
	return a.base.Serve(ctx, a)
}

// NewConnection implements ConnectionFactory.
func (a *HTTPAdapter) NewConnection(conn net.Conn) ConnectionHandler {
	return newHTTPConnection(conn, a.controller, a.observer)
}

// HTTPConnection owns one accepted connection and its session. All session
// mutation happens on the connection's serve goroutine.
type HTTPConnection struct {
	id       uuid.UUID
	conn     net.Conn
	br       *bufio.Reader
	sess     *session.Base
	observer *metrics.SessionObserver

	readPaused   bool
	egressOffset uint64
	closing      bool
}

func newHTTPConnection(conn net.Conn, controller *ServerController, observer *metrics.SessionObserver) *HTTPConnection {
	c := &HTTPConnection{
		id:       uuid.New(),
		conn:     conn,
		br:       bufio.NewReaderSize(conn, int(session.MaxReadBufferSize())),
		observer: observer,
	}

	var info session.InfoCallback
	if observer != nil {
		info = observer
	}

	localAddr := addrPortOf(conn.LocalAddr())
	peerAddr := addrPortOf(conn.RemoteAddr())
	httpCodec := codec.NewHTTP1Codec(codec.DirectionDownstream)
	c.sess = session.NewBase(localAddr, peerAddr, controller, httpCodec, info)
	c.sess.SetTeardownHook(func(*session.Base) {
		_ = c.conn.Close()
	})
	if observer != nil {
		c.sess.SetSessionStats(observer)
		observer.OnSessionCreated(c.sess)
	}
	c.sess.SetByteEventTracker(session.NewStdByteEventTracker(c), c)

	return c
}

// addrPortOf extracts a netip.AddrPort from a net.Addr, falling back to the
// zero value for non-TCP transports (tests with pipes).
func addrPortOf(addr net.Addr) netip.AddrPort {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.AddrPort()
	}
	if ap, err := netip.ParseAddrPort(addr.String()); err == nil {
		return ap
	}
	return netip.AddrPort{}
}

// OnByteEvent implements session.ByteEventCallback.
func (c *HTTPConnection) OnByteEvent(ev session.ByteEvent) {
	logger.Debug("byte event",
		logger.KeyConnID, c.id,
		logger.KeyTxnID, ev.Txn.ID(),
		logger.KeyOffset, ev.Offset,
		"kind", ev.Kind)
}

// Serve implements ConnectionHandler: reads requests until the peer closes,
// the context is cancelled, or a transaction aborts the connection.
func (c *HTTPConnection) Serve(ctx context.Context) {
	defer c.sess.Destroy()

	logger.Debug("session started",
		logger.KeyConnID, c.id,
		logger.KeySessionID, c.sess.ID(),
		logger.KeyPeerAddr, c.sess.PeerAddr(),
		logger.KeyProtocol, c.sess.Codec().Protocol(),
		logger.KeyDirection, c.sess.Codec().TransportDirection())

	for {
		if ctx.Err() != nil || c.closing {
			return
		}

		req, err := http.ReadRequest(c.br)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			c.handleParseError(err)
			return
		}

		_, span := telemetry.StartSpan(ctx, "http.request",
			trace.WithAttributes(
				telemetry.HTTPMethod(req.Method),
				telemetry.HTTPTarget(req.URL.Path),
				telemetry.PeerAddr(c.sess.PeerAddr().String()),
			))

		txn := newTxn(c)
		if err := c.readBody(req, txn); err != nil {
			span.End()
			c.handleParseError(err)
			return
		}
		if txn.aborted {
			span.End()
			return
		}

		c.respond(txn, req)
		span.End()

		// The response is out; the buffered request body is consumed.
		if n := txn.consumePending(); n > 0 {
			resumed := c.sess.NotifyBodyProcessed(uint32(n))
			if resumed && c.readPaused {
				c.readPaused = false
				logger.Debug("ingress resumed",
					logger.KeyConnID, c.id,
					logger.KeyPendingBytes, c.sess.PendingReadSize())
			}
		}

		if txn.aborted || req.Close {
			return
		}
	}
}

// handleParseError routes a malformed request through session error
// dispatch. HTTP/1.1 framing cannot be resynchronized after a parse error,
// so the connection closes either way; dispatch decides whether an error
// response goes out first.
func (c *HTTPConnection) handleParseError(err error) {
	perr := httperr.Wrap(httperr.CodeParseHeader, err, "malformed request").WithStatusCode(400)
	txn := newTxn(c)
	c.sess.HandleErrorDirectly(txn, perr)
}

// readBody streams the request body into the transaction in bounded chunks,
// keeping the session's ingress accounting current. A true return from
// OnBody records the backpressure edge; the body is still read to its end,
// because an HTTP/1.1 request is only consumed after its response is
// written, so stopping here would deadlock the exchange.
func (c *HTTPConnection) readBody(req *http.Request, txn *Txn) error {
	defer req.Body.Close()

	chunk := make([]byte, session.MaxReadBufferSize())
	for {
		n, err := req.Body.Read(chunk)
		if n > 0 {
			paused := c.sess.OnBody(txn, chunk[:n], 0)
			if c.observer != nil {
				c.observer.RecordIngressBytes(n)
			}
			if paused {
				c.readPaused = true
				logger.Debug("ingress paused",
					logger.KeyConnID, c.id,
					logger.KeyPendingBytes, c.sess.PendingReadSize(),
					logger.KeyLimit, c.sess.ReadBufferLimit())
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return httperr.Wrap(httperr.CodeParseBody, err, "reading request body")
		}
	}
}

// respond writes a minimal response echoing the received body size, with
// first/last byte events armed for TTLB measurement.
func (c *HTTPConnection) respond(txn *Txn, req *http.Request) {
	body := fmt.Sprintf("received %d bytes for %s\r\n", txn.body.Len(), req.URL.Path)
	c.writeResponse(txn, 200, []byte(body), req.Close)
}

// writeResponse sends an HTTP/1.1 response and fires the byte events the
// write satisfies. Egress byte offsets are cumulative per connection.
func (c *HTTPConnection) writeResponse(txn *Txn, statusCode int, body []byte, close bool) {
	connHeader := "keep-alive"
	if close {
		connHeader = "close"
	}
	head := fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Length: %d\r\nConnection: %s\r\n\r\n",
		statusCode, statusText(statusCode), len(body), connHeader)

	payload := append([]byte(head), body...)

	if tracker := c.sess.ByteEventTracker(); tracker != nil {
		tracker.RegisterByteEvent(c.egressOffset+1, session.ByteEventFirstByte, txn)
		tracker.RegisterByteEvent(c.egressOffset+uint64(len(payload)), session.ByteEventLastByte, txn)
	}

	n, err := c.conn.Write(payload)
	c.egressOffset += uint64(n)
	if err != nil {
		logger.Debug("write failed",
			logger.KeyConnID, c.id,
			logger.KeyError, err)
		c.closing = true
		return
	}

	if tracker := c.sess.ByteEventTracker(); tracker != nil {
		tracker.ProcessByteEvents(c.egressOffset)
	}
}

// abort marks the connection for closure after the current operation.
func (c *HTTPConnection) abort() {
	c.closing = true
	_ = c.conn.Close()
}
