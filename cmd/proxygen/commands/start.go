package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sepcity/proxygen/internal/logger"
	"github.com/sepcity/proxygen/internal/telemetry"
	"github.com/sepcity/proxygen/pkg/adapter"
	"github.com/sepcity/proxygen/pkg/config"
	"github.com/sepcity/proxygen/pkg/http/session"
	"github.com/sepcity/proxygen/pkg/metrics"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the proxygen server",
	Long: `Start the proxygen HTTP server with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/proxygen/config.yaml.

Examples:
  # Start with default config location
  proxygen start

  # Start with custom config
  proxygen start --config /etc/proxygen/config.yaml

  # Override config with environment variables
  PROXYGEN_LOGGING_LEVEL=DEBUG proxygen start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
		ServiceName:    "proxygen",
		ServiceVersion: Version,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", logger.KeyError, err)
		}
	}()

	// Apply process-wide session limits before any session exists.
	session.SetDefaultIngressBufferLimit(cfg.Session.IngressBufferLimit.Uint32())
	session.SetDefaultEgressBufferLimit(cfg.Session.EgressBufferLimit.Uint32())
	session.SetDefaultEgressBodySizeLimit(cfg.Session.EgressBodySizeLimit.Uint32())

	var observer *metrics.SessionObserver
	if cfg.Metrics.Enabled {
		sessionMetrics := metrics.NewSessionMetrics(prometheus.DefaultRegisterer)
		observer = metrics.NewSessionObserver(sessionMetrics)

		metricsSrv := metrics.NewServer(metrics.ServerConfig{
			Port: cfg.Metrics.Port,
			Path: cfg.Metrics.Path,
		}, prometheus.DefaultGatherer)
		metricsSrv.Start()
		defer func() {
			if err := metricsSrv.Stop(context.Background()); err != nil {
				logger.Warn("metrics server shutdown failed", logger.KeyError, err)
			}
		}()
	}

	httpAdapter := adapter.NewHTTPAdapter(adapter.BaseConfig{
		BindAddress:      cfg.Server.BindAddress,
		Port:             cfg.Server.Port,
		MaxConnections:   cfg.Server.MaxConnections,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
		StatsLogInterval: cfg.Server.StatsLogInterval,
	}, adapter.NewServerController(), observer)

	logger.Info("proxygen starting",
		"version", Version,
		logger.KeyLimit, cfg.Session.IngressBufferLimit)

	return httpAdapter.Serve(ctx)
}
