package trace

import (
	"github.com/driftfs/driftfs/internal/logger"
)

// LogSinkConfig configures a LogSink.
type LogSinkConfig struct {
	// FailuresOnly suppresses finish events whose status is NFS3_OK.
	FailuresOnly bool `mapstructure:"failures_only"`

	// IncludeStarts also logs request start events (at DEBUG level),
	// including the sampled argument summary when one was captured.
	IncludeStarts bool `mapstructure:"include_starts"`
}

// LogSink writes request lifecycle events to the daemon log. It is meant for
// operator debugging; the latency tracker remains the structured consumer.
type LogSink struct {
	cfg LogSinkConfig
}

// NewLogSink creates a sink that logs bus events.
func NewLogSink(cfg LogSinkConfig) *LogSink {
	return &LogSink{cfg: cfg}
}

// Consume implements Sink.
func (s *LogSink) Consume(ev Event) {
	switch ev.Kind {
	case EventStart:
		if !s.cfg.IncludeStarts {
			return
		}
		if ev.Args != "" {
			logger.Debug("trace: %s xid=%d %s", ev.Procedure, ev.XID, ev.Args)
		} else {
			logger.Debug("trace: %s xid=%d", ev.Procedure, ev.XID)
		}
	case EventFinish:
		if s.cfg.FailuresOnly && ev.Status == 0 {
			return
		}
		logger.Info("trace: %s xid=%d status=%d", ev.Procedure, ev.XID, ev.Status)
	}
}
