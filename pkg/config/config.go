// Package config loads and validates the proxygen server configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (PROXYGEN_*)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sepcity/proxygen/internal/bytesize"
)

// Config is the proxygen server configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Server configures the HTTP listener
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Session configures per-session flow-control limits
	Session SessionConfig `mapstructure:"session" yaml:"session"`

	// Metrics configures the Prometheus metrics endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is the minimum log level: DEBUG, INFO, WARN, ERROR
	Level string `mapstructure:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR" yaml:"level"`

	// Format is the output format: text or json
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json" yaml:"format"`

	// Output is the destination: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output"`
}

// TelemetryConfig controls OTLP trace export.
type TelemetryConfig struct {
	// Enabled turns tracing on (opt-in)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS on the exporter connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the trace sampling ratio in [0,1]
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1" yaml:"sample_rate"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// BindAddress is the IP address to bind to; empty binds all interfaces
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`

	// Port is the TCP port to listen on
	Port int `mapstructure:"port" validate:"required,gt=0,lte=65535" yaml:"port"`

	// MaxConnections limits concurrent client connections; 0 is unlimited
	MaxConnections int `mapstructure:"max_connections" validate:"gte=0" yaml:"max_connections"`

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// StatsLogInterval is how often connection stats are logged; 0 disables
	StatsLogInterval time.Duration `mapstructure:"stats_log_interval" validate:"gte=0" yaml:"stats_log_interval"`
}

// SessionConfig configures process-wide session flow-control defaults.
// Each limit is a positive byte count and accepts human-readable sizes
// ("64Ki", "4Mi").
type SessionConfig struct {
	// IngressBufferLimit is the per-session unconsumed ingress byte limit
	// above which backpressure is signaled
	IngressBufferLimit bytesize.ByteSize `mapstructure:"ingress_buffer_limit" validate:"required,gt=0" yaml:"ingress_buffer_limit"`

	// EgressBufferLimit is the per-session buffered egress byte limit
	EgressBufferLimit bytesize.ByteSize `mapstructure:"egress_buffer_limit" validate:"required,gt=0" yaml:"egress_buffer_limit"`

	// EgressBodySizeLimit is the chunk size egress bodies are split into
	EgressBodySizeLimit bytesize.ByteSize `mapstructure:"egress_body_size_limit" validate:"required,gt=0" yaml:"egress_body_size_limit"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns the metrics HTTP server on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the metrics server port
	Port int `mapstructure:"port" validate:"omitempty,gt=0,lte=65535" yaml:"port"`

	// Path is the scrape path
	Path string `mapstructure:"path" yaml:"path"`
}

// Load reads configuration from configPath (or the default search locations
// when empty), applies environment overrides and defaults, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := Default()
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks structural constraints declared on the config types.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// WriteSample writes a commented sample configuration file to path.
// Fails if the file already exists unless force is set.
func WriteSample(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to render sample config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultPath returns the default config file location,
// $XDG_CONFIG_HOME/proxygen/config.yaml.
func DefaultPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "proxygen")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "proxygen")
}

// setupViper configures environment overrides and the config file search.
// Environment variables use the PROXYGEN_ prefix with underscores, e.g.
// PROXYGEN_LOGGING_LEVEL=DEBUG or PROXYGEN_SESSION_INGRESS_BUFFER_LIMIT=128Ki.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("PROXYGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(configDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the config file, reporting whether one was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns the mapstructure hooks used when unmarshaling:
// duration strings and human-readable byte sizes.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		byteSizeDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and integers to bytesize.ByteSize.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}
