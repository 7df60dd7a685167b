// Package config loads and validates the daemon configuration from file,
// environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete daemon configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DRIFTFS_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains the NFS front end settings
	Server ServerConfig `mapstructure:"server"`

	// Portmap controls rpcbind registration
	Portmap PortmapConfig `mapstructure:"portmap"`

	// Metrics controls Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Trace controls the request trace bus
	Trace TraceConfig `mapstructure:"trace"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains the NFS front end settings.
type ServerConfig struct {
	// Address is the TCP listen address (host:port). Standard NFS port
	// is 2049.
	Address string `mapstructure:"address" validate:"required"`

	// MaxWorkersPerConn bounds concurrent request execution per
	// connection. 0 selects the built-in default.
	MaxWorkersPerConn int `mapstructure:"max_workers_per_conn" validate:"min=0"`

	// ReadBufferSize is the per-connection stream read chunk size in
	// bytes. 0 selects the built-in default.
	ReadBufferSize int `mapstructure:"read_buffer_size" validate:"min=0"`

	// RequestTimeout bounds each filesystem operation. Operations that
	// exceed it fail with JUKEBOX so clients retry. 0 disables the limit.
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=0"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	// or takeover drain.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// PortmapConfig controls rpcbind registration.
type PortmapConfig struct {
	// Enabled turns registration on. Registration failures are logged,
	// not fatal.
	Enabled bool `mapstructure:"enabled"`

	// Address is the rpcbind endpoint, host:port.
	Address string `mapstructure:"address"`
}

// MetricsConfig controls Prometheus metrics collection.
type MetricsConfig struct {
	// Enabled turns metrics collection on.
	Enabled bool `mapstructure:"enabled"`
}

// TraceConfig controls the request trace bus.
type TraceConfig struct {
	// BufferSize bounds undelivered trace events. 0 selects the built-in
	// default; events beyond the buffer are dropped, never blocking
	// request processing.
	BufferSize int `mapstructure:"buffer_size" validate:"min=0"`

	// Subscribers lists the sinks attached to the bus at startup. An empty
	// list defaults to a single latency tracker.
	Subscribers []TraceSubscriberConfig `mapstructure:"subscribers" validate:"dive"`
}

// TraceSubscriberConfig selects one trace sink and its type-specific options.
type TraceSubscriberConfig struct {
	// Type names the sink implementation. Supported types: "latency", "log".
	Type string `mapstructure:"type" validate:"required"`

	// Options carries sink-specific settings, decoded by the factory for
	// the selected type.
	Options map[string]any `mapstructure:"options"`
}

// Load loads configuration from file, environment, and defaults.
//
// An empty configPath uses the default location
// ($XDG_CONFIG_HOME/driftfs/config.yaml); a missing file there is not an
// error, defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable support and config file search.
func setupViper(v *viper.Viper, configPath string) {
	// Example: DRIFTFS_SERVER_ADDRESS=:2049
	v.SetEnvPrefix("DRIFTFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing file
// at the default location is acceptable; an explicitly given path that
// cannot be read is not.
func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && configPath == "" {
			return nil
		}
		if os.IsNotExist(err) && configPath == "" {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path, following
// XDG_CONFIG_HOME with a ~/.config fallback.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "driftfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "driftfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
