// Package adapter provides the TCP server that hosts HTTP sessions.
//
// BaseAdapter owns listener lifecycle, graceful shutdown, and connection
// accounting; the HTTP-specific connection handling lives in http.go and
// plugs in through ConnectionFactory.
package adapter

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sepcity/proxygen/internal/logger"
)

// ConnectionHandler serves a single accepted connection. Serve blocks until
// the connection is closed or the context is cancelled.
type ConnectionHandler interface {
	Serve(ctx context.Context)
}

// ConnectionFactory creates connection handlers for accepted TCP
// connections.
type ConnectionFactory interface {
	NewConnection(conn net.Conn) ConnectionHandler
}

// BaseConfig holds listener configuration.
type BaseConfig struct {
	// BindAddress is the IP address to bind to. Empty binds all interfaces.
	BindAddress string

	// Port is the TCP port to listen on.
	Port int

	// MaxConnections limits concurrent client connections. 0 is unlimited.
	MaxConnections int

	// ShutdownTimeout bounds the wait for active connections during
	// graceful shutdown.
	ShutdownTimeout time.Duration

	// StatsLogInterval is the period for connection stats logging.
	// 0 disables it.
	StatsLogInterval time.Duration
}

// BaseAdapter provides TCP lifecycle management for the HTTP server.
//
// All exported methods are safe for concurrent use. Shutdown is idempotent.
type BaseAdapter struct {
	Config BaseConfig

	listener   net.Listener
	listenerMu sync.RWMutex

	activeConns  sync.WaitGroup
	shutdownOnce sync.Once
	shutdown     chan struct{}
	connCount    atomic.Int32

	// connSemaphore limits concurrency when MaxConnections > 0; nil otherwise.
	connSemaphore chan struct{}

	// ListenerReady is closed once the listener accepts connections.
	// Tests use it to synchronize with startup.
	ListenerReady chan struct{}
}

// NewBaseAdapter creates a stopped adapter. Call Serve to start it.
func NewBaseAdapter(config BaseConfig) *BaseAdapter {
	var sem chan struct{}
	if config.MaxConnections > 0 {
		sem = make(chan struct{}, config.MaxConnections)
	}
	return &BaseAdapter{
		Config:        config,
		shutdown:      make(chan struct{}),
		connSemaphore: sem,
		ListenerReady: make(chan struct{}),
	}
}

// ConnCount returns the number of currently active connections.
func (b *BaseAdapter) ConnCount() int32 {
	return b.connCount.Load()
}

// Addr returns the bound listener address, or nil before Serve.
func (b *BaseAdapter) Addr() net.Addr {
	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()
	if b.listener == nil {
		return nil
	}
	return b.listener.Addr()
}

// Serve runs the accept loop until ctx is cancelled, delegating per
// connection to factory. Returns nil on graceful shutdown.
func (b *BaseAdapter) Serve(ctx context.Context, factory ConnectionFactory) error {
	listenAddr := fmt.Sprintf("%s:%d", b.Config.BindAddress, b.Config.Port)
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listenAddr, err)
	}

	b.listenerMu.Lock()
	b.listener = listener
	b.listenerMu.Unlock()
	close(b.ListenerReady)

	logger.Info("http server listening",
		logger.KeyAddr, listener.Addr())

	go func() {
		<-ctx.Done()
		b.initiateShutdown()
	}()

	if b.Config.StatsLogInterval > 0 {
		go b.logStats(ctx)
	}

	for {
		if b.connSemaphore != nil {
			select {
			case b.connSemaphore <- struct{}{}:
			case <-b.shutdown:
				return b.gracefulShutdown()
			}
		}

		tcpConn, err := listener.Accept()
		if err != nil {
			if b.connSemaphore != nil {
				<-b.connSemaphore
			}
			select {
			case <-b.shutdown:
				return b.gracefulShutdown()
			default:
				logger.Debug("accept failed",
					logger.KeyError, err)
				continue
			}
		}

		if tcp, ok := tcpConn.(*net.TCPConn); ok {
			_ = tcp.SetNoDelay(true)
		}

		b.activeConns.Add(1)
		active := b.connCount.Add(1)
		logger.Debug("connection accepted",
			logger.KeyPeerAddr, tcpConn.RemoteAddr(),
			logger.KeyConnections, active)

		handler := factory.NewConnection(tcpConn)
		go func(tcp net.Conn) {
			defer func() {
				b.activeConns.Done()
				b.connCount.Add(-1)
				if b.connSemaphore != nil {
					<-b.connSemaphore
				}
				logger.Debug("connection closed",
					logger.KeyPeerAddr, tcp.RemoteAddr(),
					logger.KeyConnections, b.connCount.Load())
			}()
			handler.Serve(ctx)
		}(tcpConn)
	}
}

// Stop initiates graceful shutdown from outside the accept loop.
func (b *BaseAdapter) Stop() {
	b.initiateShutdown()
}

func (b *BaseAdapter) initiateShutdown() {
	b.shutdownOnce.Do(func() {
		close(b.shutdown)
		b.listenerMu.RLock()
		if b.listener != nil {
			_ = b.listener.Close()
		}
		b.listenerMu.RUnlock()
	})
}

// gracefulShutdown waits for active connections up to ShutdownTimeout.
func (b *BaseAdapter) gracefulShutdown() error {
	done := make(chan struct{})
	go func() {
		b.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("http server stopped")
		return nil
	case <-time.After(b.Config.ShutdownTimeout):
		remaining := b.connCount.Load()
		logger.Warn("shutdown timeout with connections still active",
			logger.KeyConnections, remaining)
		return fmt.Errorf("shutdown timed out with %d active connections", remaining)
	}
}

func (b *BaseAdapter) logStats(ctx context.Context) {
	ticker := time.NewTicker(b.Config.StatsLogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			logger.Info("http server stats",
				logger.KeyConnections, b.connCount.Load())
		case <-ctx.Done():
			return
		case <-b.shutdown:
			return
		}
	}
}
