package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sepcity/proxygen/internal/logger"
)

// ServerConfig configures the metrics HTTP server.
type ServerConfig struct {
	// Port is the TCP port to serve on.
	Port int

	// Path is the scrape path, typically /metrics.
	Path string
}

// Server exposes the Prometheus scrape endpoint plus a health check.
type Server struct {
	cfg      ServerConfig
	gatherer prometheus.Gatherer
	httpSrv  *http.Server
}

// NewServer creates a metrics server for the given gatherer
// (typically prometheus.DefaultGatherer).
func NewServer(cfg ServerConfig, gatherer prometheus.Gatherer) *Server {
	return &Server{cfg: cfg, gatherer: gatherer}
}

// Start begins serving in a background goroutine and returns immediately.
func (s *Server) Start() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle(s.cfg.Path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server listening",
			logger.KeyAddr, s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed",
				logger.KeyError, err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
