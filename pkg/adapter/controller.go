package adapter

import (
	"net/netip"
	"sync"

	"github.com/sepcity/proxygen/internal/logger"
	"github.com/sepcity/proxygen/pkg/http/codec"
	"github.com/sepcity/proxygen/pkg/http/httperr"
	"github.com/sepcity/proxygen/pkg/http/session"
)

// ServerController is the session.Controller for server-side (downstream)
// sessions. It tracks attached sessions and supplies the parse-error policy:
// malformed requests are answered with an error response instead of a bare
// connection abort.
type ServerController struct {
	mu       sync.Mutex
	sessions map[*session.Base]struct{}

	indexingStrategy codec.HeaderIndexingStrategy
}

// NewServerController creates a controller with the default header-indexing
// strategy.
func NewServerController() *ServerController {
	return &ServerController{
		sessions:         make(map[*session.Base]struct{}),
		indexingStrategy: &codec.DefaultHeaderIndexingStrategy{},
	}
}

// AttachSession implements session.Controller.
func (c *ServerController) AttachSession(s *session.Base) {
	c.mu.Lock()
	c.sessions[s] = struct{}{}
	c.mu.Unlock()
}

// DetachSession implements session.Controller.
func (c *ServerController) DetachSession(s *session.Base) {
	c.mu.Lock()
	delete(c.sessions, s)
	c.mu.Unlock()
}

// OnSessionCodecChange implements session.Controller.
func (c *ServerController) OnSessionCodecChange(s *session.Base) {
	logger.Debug("session codec changed",
		logger.KeySessionID, s.ID(),
		logger.KeyProtocol, s.Codec().Protocol())
}

// GetParseErrorHandler implements session.Controller. Server sessions get a
// handler that turns the parse error into an HTTP error response on the
// offending transaction.
func (c *ServerController) GetParseErrorHandler(txn session.Transaction, _ *httperr.Error, _ netip.AddrPort) session.Handler {
	responder, ok := txn.(ErrorResponder)
	if !ok {
		return nil
	}
	return &parseErrorHandler{responder: responder}
}

// GetHeaderIndexingStrategy implements session.Controller.
func (c *ServerController) GetHeaderIndexingStrategy() codec.HeaderIndexingStrategy {
	return c.indexingStrategy
}

// SessionCount returns the number of currently attached sessions.
func (c *ServerController) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// ErrorResponder is implemented by transactions that can send a synthesized
// error response.
type ErrorResponder interface {
	SendErrorResponse(statusCode int)
}

// parseErrorHandler answers malformed ingress with an HTTP error response.
type parseErrorHandler struct {
	responder ErrorResponder
}

// OnError implements session.Handler.
func (h *parseErrorHandler) OnError(err *httperr.Error) {
	status := err.StatusCode
	if status == 0 {
		status = 400
	}
	h.responder.SendErrorResponse(status)
}
