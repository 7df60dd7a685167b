package config

import (
	"testing"

	"github.com/juju/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/internal/trace"
)

// ============================================================================
// Trace Subscriber Factory Tests
// ============================================================================

func TestCreateTraceSinks(t *testing.T) {
	t.Run("LatencySubscriber", func(t *testing.T) {
		cfg := TraceConfig{Subscribers: []TraceSubscriberConfig{{Type: "latency"}}}

		sinks, err := CreateTraceSinks(cfg, clock.WallClock)
		require.NoError(t, err)
		require.Len(t, sinks, 1)
		assert.IsType(t, &trace.LatencyTracker{}, sinks[0])
	})

	t.Run("LogSubscriberWithOptions", func(t *testing.T) {
		cfg := TraceConfig{Subscribers: []TraceSubscriberConfig{{
			Type: "log",
			Options: map[string]any{
				"failures_only":  true,
				"include_starts": true,
			},
		}}}

		sinks, err := CreateTraceSinks(cfg, clock.WallClock)
		require.NoError(t, err)
		require.Len(t, sinks, 1)
		assert.IsType(t, &trace.LogSink{}, sinks[0])
	})

	t.Run("MultipleSubscribers", func(t *testing.T) {
		cfg := TraceConfig{Subscribers: []TraceSubscriberConfig{
			{Type: "latency"},
			{Type: "log"},
		}}

		sinks, err := CreateTraceSinks(cfg, clock.WallClock)
		require.NoError(t, err)
		assert.Len(t, sinks, 2)
	})

	t.Run("UnknownTypeFails", func(t *testing.T) {
		cfg := TraceConfig{Subscribers: []TraceSubscriberConfig{{Type: "statsd"}}}

		_, err := CreateTraceSinks(cfg, clock.WallClock)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown trace subscriber type: "statsd"`)
	})

	t.Run("BadOptionsFail", func(t *testing.T) {
		cfg := TraceConfig{Subscribers: []TraceSubscriberConfig{
			{Type: "latency"},
			{Type: "log", Options: map[string]any{"failures_only": "definitely"}},
		}}

		_, err := CreateTraceSinks(cfg, clock.WallClock)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "trace.subscribers[1]")
	})

	t.Run("EmptyListBuildsNoSinks", func(t *testing.T) {
		sinks, err := CreateTraceSinks(TraceConfig{}, clock.WallClock)
		require.NoError(t, err)
		assert.Empty(t, sinks)
	})
}
