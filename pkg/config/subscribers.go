package config

import (
	"fmt"

	"github.com/juju/clock"
	"github.com/mitchellh/mapstructure"

	"github.com/driftfs/driftfs/internal/trace"
)

// CreateTraceSinks builds the configured trace subscribers.
//
// The factory uses each entry's Type field to select a sink implementation,
// then decodes the type-specific options from the corresponding map and
// passes them to the sink's constructor.
//
// Supported types:
//   - "latency": per-request latency tracking with outstanding snapshots
//   - "log": writes lifecycle events to the daemon log
func CreateTraceSinks(cfg TraceConfig, clk clock.Clock) ([]trace.Sink, error) {
	sinks := make([]trace.Sink, 0, len(cfg.Subscribers))
	for i, sub := range cfg.Subscribers {
		sink, err := createTraceSink(sub, clk)
		if err != nil {
			return nil, fmt.Errorf("trace.subscribers[%d]: %w", i, err)
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}

func createTraceSink(cfg TraceSubscriberConfig, clk clock.Clock) (trace.Sink, error) {
	switch cfg.Type {
	case "latency":
		return trace.NewLatencyTracker(clk), nil
	case "log":
		var logCfg trace.LogSinkConfig
		if err := mapstructure.Decode(cfg.Options, &logCfg); err != nil {
			return nil, fmt.Errorf("failed to decode log subscriber options: %w", err)
		}
		return trace.NewLogSink(logCfg), nil
	default:
		return nil, fmt.Errorf("unknown trace subscriber type: %q", cfg.Type)
	}
}
