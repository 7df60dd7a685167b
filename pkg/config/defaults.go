package config

import (
	"strings"
	"time"

	"github.com/driftfs/driftfs/internal/portmap"
	"github.com/driftfs/driftfs/internal/server"
	"github.com/driftfs/driftfs/internal/trace"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyPortmapDefaults(&cfg.Portmap)
	applyTraceDefaults(&cfg.Trace)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Address == "" {
		cfg.Address = ":2049"
	}
	if cfg.MaxWorkersPerConn == 0 {
		cfg.MaxWorkersPerConn = server.DefaultMaxWorkers
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = server.DefaultReadBufferSize
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyPortmapDefaults(cfg *PortmapConfig) {
	if cfg.Address == "" {
		cfg.Address = portmap.DefaultAddr
	}
}

func applyTraceDefaults(cfg *TraceConfig) {
	if cfg.BufferSize == 0 {
		cfg.BufferSize = trace.DefaultBufferSize
	}
	if len(cfg.Subscribers) == 0 {
		cfg.Subscribers = []TraceSubscriberConfig{{Type: "latency"}}
	}
}
