package server

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/internal/protocol/nfs"
	"github.com/driftfs/driftfs/internal/protocol/rpc"
	"github.com/driftfs/driftfs/pkg/metrics"
)

// StopReason records why a connection stopped. Set at most once per
// connection, never cleared; when several causes race, the first one
// recorded wins.
type StopReason uint8

const (
	// StopUnmount - the client closed the connection (EOF)
	StopUnmount StopReason = iota

	// StopError - a transport failure made the connection unusable
	StopError

	// StopTakeover - the socket is being handed to a replacement process
	StopTakeover
)

func (r StopReason) String() string {
	switch r {
	case StopUnmount:
		return "unmount"
	case StopError:
		return "error"
	case StopTakeover:
		return "takeover"
	default:
		return "unknown"
	}
}

// StopData is emitted exactly once per connection, after the last in-flight
// request completes. For takeover stops File carries the detached socket
// descriptor, still open and connected; for all other reasons File is nil
// and the socket has been closed.
type StopData struct {
	Reason StopReason
	File   *os.File
}

// ConnConfig carries the collaborators of a Conn.
type ConnConfig struct {
	// Processor handles decoded RPC messages.
	Processor *nfs.Processor

	// MaxWorkers bounds concurrently executing requests on this connection.
	// Zero selects DefaultMaxWorkers.
	MaxWorkers int

	// ReadBufferSize is the stream read chunk size. Zero selects
	// DefaultReadBufferSize.
	ReadBufferSize int

	// Metrics receives connection and byte counters. Nil selects the no-op
	// implementation.
	Metrics metrics.NFSMetrics

	// OnShutdown receives the connection's StopData. Called exactly once,
	// from the goroutine that completed the shutdown.
	OnShutdown func(*Conn, StopData)
}

// Defaults for ConnConfig zero values.
const (
	DefaultMaxWorkers     = 16
	DefaultReadBufferSize = 64 * 1024
)

// Conn owns one accepted client socket.
//
// The read loop reassembles record-marked messages and hands each one to the
// worker pool; replies are written back in completion order under a write
// lock. Stop causes - peer EOF, transport error, takeover - funnel through
// requestStop, which records the first reason and defers the actual shutdown
// until the last in-flight request completes.
type Conn struct {
	conn       net.Conn
	processor  *nfs.Processor
	records    rpc.RecordBuffer
	workers    chan struct{}
	bufferSize int
	metrics    metrics.NFSMetrics
	onShutdown func(*Conn, StopData)

	writeMu sync.Mutex

	// mu guards the request/stop state machine below. pending counts
	// dispatched requests not yet completed; stopReason is the first stop
	// cause recorded; finished flips when StopData has been emitted.
	mu         sync.Mutex
	pending    uint
	stopReason *StopReason
	finished   bool

	// done closes when StopData has been emitted. Used by the server's
	// drain logic and by tests.
	done chan struct{}
}

// NewConn wraps an accepted socket. Call Serve to start the read loop.
func NewConn(conn net.Conn, cfg ConnConfig) *Conn {
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = DefaultMaxWorkers
	}
	bufferSize := cfg.ReadBufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultReadBufferSize
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewNFSMetrics()
	}
	return &Conn{
		conn:       conn,
		processor:  cfg.Processor,
		workers:    make(chan struct{}, workers),
		bufferSize: bufferSize,
		metrics:    m,
		onShutdown: cfg.OnShutdown,
		done:       make(chan struct{}),
	}
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Done closes once StopData has been emitted.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Serve runs the read loop until the connection stops. It blocks; callers
// run it on its own goroutine.
//
// A panic anywhere in the loop stops the connection with reason ERROR
// instead of crashing the daemon.
func (c *Conn) Serve(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in connection read loop from %s: %v", c.RemoteAddr(), r)
			c.RequestStop(StopError)
		}
	}()

	logger.Debug("connection read loop started for %s", c.RemoteAddr())

	buf := make([]byte, c.bufferSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.records.Append(buf[:n])
			if !c.drainRecords(ctx) {
				return
			}
		}
		if err != nil {
			c.handleReadError(err)
			return
		}
		if c.stopping() {
			return
		}
	}
}

// handleReadError classifies a read failure into a stop reason. A timeout
// while a stop is already recorded is our own deadline poke unblocking the
// loop, not a new failure.
func (c *Conn) handleReadError(err error) {
	if errors.Is(err, io.EOF) {
		logger.Debug("connection from %s closed by client", c.RemoteAddr())
		c.RequestStop(StopUnmount)
		return
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() && c.stopping() {
		return
	}

	logger.WarnKV("connection transport failure",
		"client", c.RemoteAddr(), "error", err.Error())
	c.RequestStop(StopError)
}

// drainRecords dispatches every complete buffered message. Returns false
// when the connection must stop reading.
func (c *Conn) drainRecords(ctx context.Context) bool {
	for {
		message, ok, err := c.records.Next()
		if err != nil {
			if errors.Is(err, rpc.ErrFragmentedRecord) {
				// The offending record was discarded; later records on
				// this stream parse normally.
				logger.WarnKV("rejected multi-fragment record",
					"client", c.RemoteAddr(), "error", err.Error())
				continue
			}
			logger.ErrorKV("unrecoverable framing failure",
				"client", c.RemoteAddr(), "error", err.Error())
			c.RequestStop(StopError)
			return false
		}
		if !ok {
			return true
		}

		if !c.beginRequest() {
			// Stop already recorded: drop silently, the client will
			// retransmit against the successor.
			return false
		}
		c.metrics.RecordBytesTransferred("read", int64(len(message)))

		c.workers <- struct{}{}
		go func(msg []byte) {
			defer func() { <-c.workers }()
			defer c.endRequest()
			c.processMessage(ctx, msg)
		}(message)
	}
}

// processMessage runs one request through the processor and writes the
// reply.
func (c *Conn) processMessage(ctx context.Context, message []byte) {
	reply, err := c.processor.Process(ctx, message)
	if err != nil {
		logger.ErrorKV("unparseable RPC call, stopping connection",
			"client", c.RemoteAddr(), "error", err.Error())
		c.RequestStop(StopError)
		return
	}
	c.writeReply(reply)
}

// writeReply frames and writes one reply. Write failures stop the
// connection; a reply that cannot be delivered is discarded.
func (c *Conn) writeReply(reply []byte) {
	framed := rpc.MarshalRecord(reply)

	c.writeMu.Lock()
	_, err := c.conn.Write(framed)
	c.writeMu.Unlock()

	if err != nil {
		logger.DebugKV("discarding reply after write failure",
			"client", c.RemoteAddr(), "error", err.Error())
		c.RequestStop(StopError)
		return
	}
	c.metrics.RecordBytesTransferred("write", int64(len(framed)))
}

// RequestStop records a stop reason and begins shutdown. The first recorded
// reason wins; later calls are no-ops. When no requests are in flight the
// shutdown completes on this call, otherwise it is deferred to the last
// completing request.
func (c *Conn) RequestStop(reason StopReason) {
	c.mu.Lock()
	if c.stopReason != nil {
		c.mu.Unlock()
		return
	}
	r := reason
	c.stopReason = &r
	finishReason, finish := c.tryFinishLocked()
	c.mu.Unlock()

	// Unblock a read loop parked in Read without closing the socket; the
	// socket must survive in-flight replies and a possible takeover detach.
	_ = c.conn.SetReadDeadline(time.Now())

	if finish {
		c.finishStop(finishReason)
	}
}

// stopping reports whether a stop reason has been recorded.
func (c *Conn) stopping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopReason != nil
}

// Pending returns the number of in-flight requests.
func (c *Conn) Pending() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// beginRequest admits a request into the in-flight set. Returns false once a
// stop has been recorded: no new request may begin after STOPPING.
func (c *Conn) beginRequest() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopReason != nil {
		return false
	}
	c.pending++
	return true
}

// endRequest retires a request. The completion that observes zero pending
// with a stop recorded performs the shutdown, exactly once.
func (c *Conn) endRequest() {
	c.mu.Lock()
	if c.pending == 0 {
		c.mu.Unlock()
		logger.Error("request accounting underflow on connection from %s", c.RemoteAddr())
		return
	}
	c.pending--
	reason, finish := c.tryFinishLocked()
	c.mu.Unlock()

	if finish {
		c.finishStop(reason)
	}
}

// tryFinishLocked decides whether this caller performs the shutdown. Callers
// hold mu.
func (c *Conn) tryFinishLocked() (StopReason, bool) {
	if c.stopReason == nil || c.pending != 0 || c.finished {
		return 0, false
	}
	c.finished = true
	return *c.stopReason, true
}

// finishStop completes the shutdown: detach or close the socket, then emit
// StopData. Runs exactly once per connection, only after pending reached
// zero, so the detach can never race an in-flight write.
func (c *Conn) finishStop(reason StopReason) {
	data := StopData{Reason: reason}

	if reason == StopTakeover {
		file, err := detachConn(c.conn)
		if err != nil {
			logger.ErrorKV("failed to detach socket for takeover, closing instead",
				"client", c.RemoteAddr(), "error", err.Error())
		} else {
			data.File = file
		}
	}
	_ = c.conn.Close()

	c.metrics.RecordConnectionClosed()
	logger.InfoKV("connection stopped",
		"client", c.RemoteAddr(), "reason", reason.String())

	if c.onShutdown != nil {
		c.onShutdown(c, data)
	}
	close(c.done)
}
