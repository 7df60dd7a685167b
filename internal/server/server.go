// Package server owns the NFS front end's sockets: the listener, one Conn
// per accepted client, and the graceful takeover orchestration that hands
// live sockets to a replacement process.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/internal/protocol/nfs"
	"github.com/driftfs/driftfs/pkg/metrics"
)

// Config holds the server's transport settings.
type Config struct {
	// Address is the TCP listen address, e.g. ":2049".
	Address string

	// MaxWorkersPerConn bounds concurrent request execution per connection.
	MaxWorkersPerConn int

	// ReadBufferSize is the per-connection stream read chunk size.
	ReadBufferSize int
}

// TakeoverResult carries the descriptors handed to a replacement process:
// one file per drained client connection plus the listening socket. All
// descriptors have close-on-exec cleared.
type TakeoverResult struct {
	Conns    []*os.File
	Listener *os.File
}

// Server accepts client connections and orchestrates their lifecycle.
//
// The handler set is owned by the run loop; every mutation - register on
// accept, unregister on shutdown, takeover enumeration - arrives as a
// message on the commands channel and executes on that single goroutine, so
// the set needs no lock and takeover snapshots cannot race registration.
type Server struct {
	cfg       Config
	processor *nfs.Processor
	metrics   metrics.NFSMetrics

	listener *net.TCPListener
	handoff  []net.Conn

	commands   chan command
	acceptDone chan struct{}
	serveDone  chan struct{}

	// acceptStopped flips once, before the takeover drain snapshot, so a
	// connection accepted during takeover is either registered before the
	// snapshot or never registered at all.
	acceptStopped atomic.Bool

	connCount atomic.Int32
	started   atomic.Bool
}

type command interface{}

type registerCmd struct {
	conn    net.Conn
	handoff bool
}

type unregisterCmd struct {
	conn *Conn
	data StopData
}

type takeoverCmd struct {
	reply chan takeoverReply
}

type takeoverReply struct {
	result *TakeoverResult
	err    error
}

type stopCmd struct {
	reply chan struct{}
}

// New creates a Server. A nil metrics collector selects the no-op
// implementation.
func New(processor *nfs.Processor, cfg Config, m metrics.NFSMetrics) *Server {
	if cfg.Address == "" {
		cfg.Address = ":2049"
	}
	if m == nil {
		m = metrics.NewNFSMetrics()
	}
	return &Server{
		cfg:        cfg,
		processor:  processor,
		metrics:    m,
		commands:   make(chan command),
		acceptDone: make(chan struct{}),
		serveDone:  make(chan struct{}),
	}
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	addr, err := net.ResolveTCPAddr("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", s.cfg.Address, err)
	}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %q: %w", s.cfg.Address, err)
	}
	s.listener = listener
	logger.Info("NFS server listening on %s", listener.Addr())
	return nil
}

// ListenFromHandoff adopts descriptors transferred by a predecessor: the
// listening socket plus already-connected client sockets. The *os.File
// arguments are consumed and closed.
func (s *Server) ListenFromHandoff(listenerFile *os.File, connFiles []*os.File) error {
	defer func() {
		_ = listenerFile.Close()
		for _, f := range connFiles {
			_ = f.Close()
		}
	}()

	fl, err := net.FileListener(listenerFile)
	if err != nil {
		return fmt.Errorf("adopt listener descriptor: %w", err)
	}
	tcp, ok := fl.(*net.TCPListener)
	if !ok {
		_ = fl.Close()
		return fmt.Errorf("adopted descriptor is %T, not a TCP listener", fl)
	}
	s.listener = tcp

	for _, f := range connFiles {
		conn, err := net.FileConn(f)
		if err != nil {
			return fmt.Errorf("adopt connection descriptor: %w", err)
		}
		s.handoff = append(s.handoff, conn)
	}

	logger.Info("NFS server adopted listener on %s and %d live connection(s)",
		tcp.Addr(), len(s.handoff))
	return nil
}

// Addr returns the listening address. Valid after Listen or
// ListenFromHandoff.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// ActiveConnections returns the current number of registered connections.
func (s *Server) ActiveConnections() int32 {
	return s.connCount.Load()
}

// Serve runs the server until Stop or TakeoverStop completes, or ctx is
// cancelled. It blocks; Listen or ListenFromHandoff must have succeeded
// first.
func (s *Server) Serve(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("server already started")
	}
	defer close(s.serveDone)

	go s.acceptLoop()

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Stop(context.Background())
		case <-s.serveDone:
		}
	}()

	s.runLoop()
	return nil
}

// Stop gracefully shuts the server down: accepting stops, live connections
// drain their in-flight requests and close. Safe to call from any
// goroutine.
func (s *Server) Stop(ctx context.Context) error {
	cmd := stopCmd{reply: make(chan struct{})}
	select {
	case s.commands <- cmd:
	case <-s.serveDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TakeoverStop drains the server for handoff: accepting stops first, every
// live connection transitions to STOPPING(TAKEOVER) and completes its
// in-flight requests, and once all have detached their sockets the
// listening descriptor is duplicated. The caller passes the returned
// descriptors to the replacement process.
func (s *Server) TakeoverStop(ctx context.Context) (*TakeoverResult, error) {
	cmd := takeoverCmd{reply: make(chan takeoverReply, 1)}
	select {
	case s.commands <- cmd:
	case <-s.serveDone:
		return nil, errors.New("server already stopped")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case reply := <-cmd.reply:
		return reply.result, reply.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// acceptLoop accepts connections until accepting is stopped or the listener
// closes, forwarding each accepted socket to the run loop.
func (s *Server) acceptLoop() {
	defer close(s.acceptDone)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.acceptStopped.Load() {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			logger.Error("accept failed: %v", err)
			return
		}

		if s.acceptStopped.Load() {
			// Raced the accept-stop: refuse cleanly rather than register a
			// connection the drain snapshot will never see.
			logger.Warn("closing connection from %s accepted during stop", conn.RemoteAddr())
			_ = conn.Close()
			return
		}

		s.commands <- registerCmd{conn: conn}
	}
}

// stopAccepting halts the accept loop and waits for it to exit, servicing
// run-loop commands meanwhile so a racing registration is never stranded in
// the channel. Runs on the run loop.
func (s *Server) stopAccepting(handlers map[*Conn]struct{}) {
	s.acceptStopped.Store(true)
	_ = s.listener.SetDeadline(time.Now())

	for {
		select {
		case <-s.acceptDone:
			// Drain any registration still queued ahead of the snapshot.
			for {
				select {
				case cmd := <-s.commands:
					s.handleCommand(cmd, handlers)
				default:
					return
				}
			}
		case cmd := <-s.commands:
			s.handleCommand(cmd, handlers)
		}
	}
}

// runLoop is the single owner of the handler set.
func (s *Server) runLoop() {
	handlers := make(map[*Conn]struct{})

	// Connections adopted from a predecessor register before any accept.
	for _, conn := range s.handoff {
		s.register(conn, true, handlers)
	}
	s.handoff = nil

	for {
		cmd := <-s.commands
		switch c := cmd.(type) {
		case takeoverCmd:
			c.reply <- s.runTakeover(handlers)
			return
		case stopCmd:
			s.runStop(handlers)
			close(c.reply)
			return
		default:
			s.handleCommand(cmd, handlers)
		}
	}
}

// handleCommand processes register/unregister messages. Runs on the run
// loop.
func (s *Server) handleCommand(cmd command, handlers map[*Conn]struct{}) {
	switch c := cmd.(type) {
	case registerCmd:
		s.register(c.conn, c.handoff, handlers)
	case unregisterCmd:
		if _, ok := handlers[c.conn]; !ok {
			return
		}
		delete(handlers, c.conn)
		s.connCount.Store(int32(len(handlers)))
		s.metrics.SetActiveConnections(int32(len(handlers)))
		if c.data.File != nil {
			// A takeover detach with no drain in progress has no
			// recipient; close rather than leak the descriptor.
			_ = c.data.File.Close()
		}
	}
}

// register wraps an accepted or adopted socket in a Conn and starts its
// read loop. Runs on the run loop.
func (s *Server) register(conn net.Conn, adopted bool, handlers map[*Conn]struct{}) {
	if len(handlers) >= 1 {
		// A single connected client is the expected deployment; more are
		// served but worth flagging.
		logger.Warn("additional client connected from %s (%d already active)",
			conn.RemoteAddr(), len(handlers))
	}

	handler := NewConn(conn, ConnConfig{
		Processor:      s.processor,
		MaxWorkers:     s.cfg.MaxWorkersPerConn,
		ReadBufferSize: s.cfg.ReadBufferSize,
		Metrics:        s.metrics,
		OnShutdown: func(c *Conn, data StopData) {
			select {
			case s.commands <- unregisterCmd{conn: c, data: data}:
			case <-s.serveDone:
				if data.File != nil {
					_ = data.File.Close()
				}
			}
		},
	})
	handlers[handler] = struct{}{}
	s.connCount.Store(int32(len(handlers)))

	s.metrics.RecordConnectionAccepted()
	s.metrics.SetActiveConnections(int32(len(handlers)))
	if adopted {
		logger.Info("resumed connection from %s after takeover", conn.RemoteAddr())
	} else {
		logger.Debug("connection accepted from %s", conn.RemoteAddr())
	}

	go handler.Serve(context.Background())
}

// runTakeover executes the takeover sequence on the run loop: accept-stop,
// then the drain snapshot, then the listener duplication - strictly in that
// order.
func (s *Server) runTakeover(handlers map[*Conn]struct{}) takeoverReply {
	logger.Info("takeover requested, draining %d connection(s)", len(handlers))

	s.stopAccepting(handlers)

	// Snapshot after accept-stop: every connection registered up to this
	// point is part of the transfer; none can register after.
	snapshot := make(map[*Conn]struct{}, len(handlers))
	for h := range handlers {
		snapshot[h] = struct{}{}
		// An idle connection completes its shutdown inside RequestStop and
		// reports back through the commands channel; issue the stop off the
		// run loop so that report always has a receiver.
		go h.RequestStop(StopTakeover)
	}

	result := &TakeoverResult{}
	for len(snapshot) > 0 {
		cmd := <-s.commands
		unreg, ok := cmd.(unregisterCmd)
		if !ok {
			s.handleCommand(cmd, handlers)
			continue
		}
		s.handleTakeoverUnregister(unreg, handlers, snapshot, result)
	}

	listenerFile, err := detachListener(s.listener)
	_ = s.listener.Close()
	if err != nil {
		for _, f := range result.Conns {
			_ = f.Close()
		}
		return takeoverReply{err: fmt.Errorf("detach listener: %w", err)}
	}
	result.Listener = listenerFile

	s.metrics.RecordTakeover()
	logger.Info("takeover drain complete: %d connection(s) transferred", len(result.Conns))
	return takeoverReply{result: result}
}

// handleTakeoverUnregister collects one drained connection during takeover.
// A connection that stopped for its own reasons mid-drain (client unmount,
// transport error) leaves the transfer set without a descriptor.
func (s *Server) handleTakeoverUnregister(unreg unregisterCmd, handlers, snapshot map[*Conn]struct{}, result *TakeoverResult) {
	delete(handlers, unreg.conn)
	delete(snapshot, unreg.conn)
	s.connCount.Store(int32(len(handlers)))
	s.metrics.SetActiveConnections(int32(len(handlers)))

	switch {
	case unreg.data.Reason == StopTakeover && unreg.data.File != nil:
		result.Conns = append(result.Conns, unreg.data.File)
	case unreg.data.File != nil:
		_ = unreg.data.File.Close()
	default:
		logger.Info("connection from %s stopped during drain (%s), not transferred",
			unreg.conn.RemoteAddr(), unreg.data.Reason)
	}
}

// runStop executes graceful shutdown on the run loop.
func (s *Server) runStop(handlers map[*Conn]struct{}) {
	logger.Info("shutdown requested, closing %d connection(s)", len(handlers))

	s.stopAccepting(handlers)
	_ = s.listener.Close()

	for h := range handlers {
		go h.RequestStop(StopUnmount)
	}
	for len(handlers) > 0 {
		cmd := <-s.commands
		s.handleCommand(cmd, handlers)
	}
	logger.Info("shutdown complete")
}
