package trace

import (
	"sync"
	"time"

	"github.com/juju/clock"
)

// OutstandingRequest describes one request that has started but not yet
// finished.
type OutstandingRequest struct {
	XID       uint32
	Procedure string
	Elapsed   time.Duration
}

// LatencyTracker is a bus sink that correlates start and finish events by
// xid. It answers "what is outstanding right now" and observes per-request
// latency through a callback.
//
// A duplicate start for an xid already tracked (client retransmit) keeps the
// original start time. A finish with no matching start is ignored.
type LatencyTracker struct {
	clock clock.Clock

	// Observe, when non-nil, receives the latency of every completed request.
	Observe func(procedure string, status uint32, latency time.Duration)

	mu      sync.Mutex
	pending map[uint32]pendingStart
}

type pendingStart struct {
	procedure string
	startedAt time.Time
}

// NewLatencyTracker creates a tracker. A nil clk falls back to the wall
// clock.
func NewLatencyTracker(clk clock.Clock) *LatencyTracker {
	if clk == nil {
		clk = clock.WallClock
	}
	return &LatencyTracker{
		clock:   clk,
		pending: make(map[uint32]pendingStart),
	}
}

// Consume implements Sink.
func (t *LatencyTracker) Consume(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Kind {
	case EventStart:
		if _, exists := t.pending[ev.XID]; exists {
			return
		}
		t.pending[ev.XID] = pendingStart{procedure: ev.Procedure, startedAt: ev.Time}
	case EventFinish:
		start, exists := t.pending[ev.XID]
		if !exists {
			return
		}
		delete(t.pending, ev.XID)
		if t.Observe != nil {
			t.Observe(start.procedure, ev.Status, ev.Time.Sub(start.startedAt))
		}
	}
}

// Outstanding returns a snapshot of requests that have started but not
// finished, with elapsed time computed against the tracker's clock.
func (t *LatencyTracker) Outstanding() []OutstandingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	out := make([]OutstandingRequest, 0, len(t.pending))
	for xid, start := range t.pending {
		out = append(out, OutstandingRequest{
			XID:       xid,
			Procedure: start.procedure,
			Elapsed:   now.Sub(start.startedAt),
		})
	}
	return out
}
