// Package trace publishes per-request protocol events for latency and
// outstanding-request introspection.
//
// The bus is bounded and never blocks the publisher: when subscribers fall
// behind, events are dropped and counted rather than stalling the dispatch
// path. Telemetry loss is acceptable; request latency is not.
package trace

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/clock"
)

// EventKind distinguishes request start from completion.
type EventKind uint8

const (
	// EventStart - request decoded and handed to the worker pool
	EventStart EventKind = iota

	// EventFinish - reply produced (or discarded after a stop)
	EventFinish
)

// Event is one request lifecycle notification.
type Event struct {
	Kind      EventKind
	XID       uint32
	Procedure string

	// Args carries the sampled argument summary on start events; empty when
	// the procedure was not sampled this time or on finish events.
	Args string

	// Status is the NFS status of the reply; meaningful on finish only.
	Status uint32

	Time time.Time
}

// Sink consumes bus events. Implementations must be safe for calls from the
// bus delivery goroutine and must not block.
type Sink interface {
	Consume(Event)
}

// Bus fans request events out to registered sinks.
type Bus struct {
	clock  clock.Clock
	events chan Event

	mu    sync.RWMutex
	sinks []Sink

	dropped atomic.Uint64
	done    chan struct{}
	once    sync.Once
}

// DefaultBufferSize bounds pending undelivered events.
const DefaultBufferSize = 1024

// NewBus creates a bus and starts its delivery goroutine. A nil clk falls
// back to the wall clock.
func NewBus(clk clock.Clock, bufferSize int) *Bus {
	if clk == nil {
		clk = clock.WallClock
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	b := &Bus{
		clock:  clk,
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
	go b.deliver()
	return b
}

// Subscribe registers a sink for all subsequent events.
func (b *Bus) Subscribe(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Start publishes a request start event.
func (b *Bus) Start(xid uint32, procedure, args string) {
	b.publish(Event{
		Kind:      EventStart,
		XID:       xid,
		Procedure: procedure,
		Args:      args,
		Time:      b.clock.Now(),
	})
}

// Finish publishes a request completion event.
func (b *Bus) Finish(xid uint32, procedure string, status uint32) {
	b.publish(Event{
		Kind:      EventFinish,
		XID:       xid,
		Procedure: procedure,
		Status:    status,
		Time:      b.clock.Now(),
	})
}

// Dropped returns how many events were discarded because the buffer was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close stops delivery. Events published after Close are dropped.
func (b *Bus) Close() {
	b.once.Do(func() {
		close(b.done)
	})
}

func (b *Bus) publish(ev Event) {
	select {
	case <-b.done:
		b.dropped.Add(1)
	default:
		select {
		case b.events <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *Bus) deliver() {
	for {
		select {
		case <-b.done:
			return
		case ev := <-b.events:
			b.mu.RLock()
			sinks := b.sinks
			b.mu.RUnlock()
			for _, s := range sinks {
				s.Consume(ev)
			}
		}
	}
}
