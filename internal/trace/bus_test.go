package trace

import (
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectSink records delivered events for later inspection.
type collectSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *collectSink) Consume(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *collectSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// ============================================================================
// Bus Tests
// ============================================================================

func TestBusDelivery(t *testing.T) {
	bus := NewBus(nil, 16)
	defer bus.Close()

	sink := &collectSink{}
	bus.Subscribe(sink)

	bus.Start(1, "GETATTR", "")
	bus.Finish(1, "GETATTR", 0)

	require.Eventually(t, func() bool {
		return sink.count() == 2
	}, time.Second, time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, EventStart, sink.events[0].Kind)
	assert.Equal(t, EventFinish, sink.events[1].Kind)
	assert.Equal(t, uint32(1), sink.events[0].XID)
	assert.Equal(t, "GETATTR", sink.events[0].Procedure)
	assert.Zero(t, bus.Dropped())
}

func TestBusDropsWhenFull(t *testing.T) {
	// A bus with no delivery headroom must drop rather than block. The
	// delivery goroutine is racing us, so only a lower bound is asserted.
	bus := NewBus(nil, 1)
	defer bus.Close()

	blocker := make(chan struct{})
	bus.Subscribe(sinkFunc(func(Event) { <-blocker }))

	for i := 0; i < 100; i++ {
		bus.Start(uint32(i), "WRITE", "")
	}
	close(blocker)

	assert.Greater(t, bus.Dropped(), uint64(0))
}

func TestBusCloseDropsLatePublishes(t *testing.T) {
	bus := NewBus(nil, 16)
	bus.Close()

	bus.Start(1, "READ", "")
	assert.Equal(t, uint64(1), bus.Dropped())
}

type sinkFunc func(Event)

func (f sinkFunc) Consume(ev Event) { f(ev) }

// ============================================================================
// Latency Tracker Tests
// ============================================================================

func TestLatencyTracker(t *testing.T) {
	t.Run("ObservesLatencyOnFinish", func(t *testing.T) {
		clk := testclock.NewClock(time.Unix(1000, 0))
		tracker := NewLatencyTracker(clk)

		var gotProcedure string
		var gotLatency time.Duration
		tracker.Observe = func(procedure string, status uint32, latency time.Duration) {
			gotProcedure = procedure
			gotLatency = latency
		}

		start := clk.Now()
		tracker.Consume(Event{Kind: EventStart, XID: 7, Procedure: "READ", Time: start})
		tracker.Consume(Event{Kind: EventFinish, XID: 7, Procedure: "READ", Time: start.Add(250 * time.Millisecond)})

		assert.Equal(t, "READ", gotProcedure)
		assert.Equal(t, 250*time.Millisecond, gotLatency)
		assert.Empty(t, tracker.Outstanding())
	})

	t.Run("DuplicateStartKeepsOriginalTime", func(t *testing.T) {
		clk := testclock.NewClock(time.Unix(1000, 0))
		tracker := NewLatencyTracker(clk)

		var gotLatency time.Duration
		tracker.Observe = func(procedure string, status uint32, latency time.Duration) {
			gotLatency = latency
		}

		start := clk.Now()
		tracker.Consume(Event{Kind: EventStart, XID: 9, Procedure: "WRITE", Time: start})
		// Retransmitted call reuses the xid a second later.
		tracker.Consume(Event{Kind: EventStart, XID: 9, Procedure: "WRITE", Time: start.Add(time.Second)})
		tracker.Consume(Event{Kind: EventFinish, XID: 9, Procedure: "WRITE", Time: start.Add(2 * time.Second)})

		assert.Equal(t, 2*time.Second, gotLatency)
	})

	t.Run("OrphanFinishIgnored", func(t *testing.T) {
		tracker := NewLatencyTracker(nil)
		observed := false
		tracker.Observe = func(string, uint32, time.Duration) { observed = true }

		tracker.Consume(Event{Kind: EventFinish, XID: 42, Procedure: "READ", Time: time.Now()})

		assert.False(t, observed)
		assert.Empty(t, tracker.Outstanding())
	})

	t.Run("OutstandingSnapshot", func(t *testing.T) {
		clk := testclock.NewClock(time.Unix(1000, 0))
		tracker := NewLatencyTracker(clk)

		start := clk.Now()
		tracker.Consume(Event{Kind: EventStart, XID: 1, Procedure: "READ", Time: start})
		tracker.Consume(Event{Kind: EventStart, XID: 2, Procedure: "COMMIT", Time: start})

		clk.Advance(3 * time.Second)

		out := tracker.Outstanding()
		require.Len(t, out, 2)
		for _, req := range out {
			assert.Equal(t, 3*time.Second, req.Elapsed)
		}

		tracker.Consume(Event{Kind: EventFinish, XID: 1, Procedure: "READ", Time: clk.Now()})
		out = tracker.Outstanding()
		require.Len(t, out, 1)
		assert.Equal(t, uint32(2), out[0].XID)
		assert.Equal(t, "COMMIT", out[0].Procedure)
	})
}
