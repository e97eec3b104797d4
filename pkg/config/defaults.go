package config

import (
	"strings"
	"time"

	"github.com/sepcity/proxygen/internal/bytesize"
)

// Default session limits. These mirror the process-wide defaults in
// pkg/http/session.
const (
	DefaultIngressBufferLimit  = 64 * bytesize.KiB
	DefaultEgressBufferLimit   = 64 * bytesize.KiB
	DefaultEgressBodySizeLimit = 4 * bytesize.KiB
)

// Default returns a fully populated configuration.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in defaults for any unspecified fields. Zero values
// are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyServerDefaults(&cfg.Server)
	applySessionDefaults(&cfg.Session)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false; tracing is opt-in.
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.StatsLogInterval == 0 {
		cfg.StatsLogInterval = time.Minute
	}
}

func applySessionDefaults(cfg *SessionConfig) {
	if cfg.IngressBufferLimit == 0 {
		cfg.IngressBufferLimit = DefaultIngressBufferLimit
	}
	if cfg.EgressBufferLimit == 0 {
		cfg.EgressBufferLimit = DefaultEgressBufferLimit
	}
	if cfg.EgressBodySizeLimit == 0 {
		cfg.EgressBodySizeLimit = DefaultEgressBodySizeLimit
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
}
