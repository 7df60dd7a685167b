package server

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/internal/protocol/nfs"
	"github.com/driftfs/driftfs/internal/protocol/rpc"
	"github.com/driftfs/driftfs/pkg/vfs"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

func newTestServer(t *testing.T) *Server {
	t.Helper()

	processor := nfs.NewProcessor(vfs.Unimplemented{}, nfs.ProcessorConfig{})
	s := New(processor, Config{Address: "127.0.0.1:0"}, nil)
	require.NoError(t, s.Listen())
	return s
}

func serveInBackground(s *Server) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(context.Background())
	}()
	return errCh
}

func waitServed(t *testing.T, errCh <-chan error) {
	t.Helper()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func dialServer(t *testing.T, s *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	return conn
}

func waitConnections(t *testing.T, s *Server, want int32) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.ActiveConnections() == want
	}, 5*time.Second, 5*time.Millisecond)
}

// exchangeNull performs a NULL round trip and asserts an accepted success.
func exchangeNull(t *testing.T, conn net.Conn, xid uint32) {
	t.Helper()

	_, err := conn.Write(frameCall(t, xid, nfs.ProcNull, nil))
	require.NoError(t, err)

	reply := readReply(t, conn)
	assert.Equal(t, xid, binary.BigEndian.Uint32(reply[0:4]))
	assert.Equal(t, uint32(rpc.AcceptSuccess), binary.BigEndian.Uint32(reply[20:24]))
}

// ============================================================================
// Serving Tests
// ============================================================================

func TestServerServesClients(t *testing.T) {
	s := newTestServer(t)
	errCh := serveInBackground(s)

	client := dialServer(t, s)
	defer client.Close()
	exchangeNull(t, client, 100)

	// A second simultaneous client is served, not rejected.
	second := dialServer(t, s)
	defer second.Close()
	exchangeNull(t, second, 200)
	waitConnections(t, s, 2)

	require.NoError(t, s.Stop(context.Background()))
	waitServed(t, errCh)
}

func TestServerServeTwiceFails(t *testing.T) {
	s := newTestServer(t)
	errCh := serveInBackground(s)

	// Wait for the first Serve to take ownership.
	require.Eventually(t, func() bool {
		return s.started.Load()
	}, time.Second, time.Millisecond)
	assert.Error(t, s.Serve(context.Background()))

	require.NoError(t, s.Stop(context.Background()))
	waitServed(t, errCh)
}

func TestServerContextCancelStops(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ctx)
	}()

	client := dialServer(t, s)
	defer client.Close()
	waitConnections(t, s, 1)

	cancel()
	waitServed(t, errCh)
}

// ============================================================================
// Graceful Stop Tests
// ============================================================================

func TestServerStopDrainsConnections(t *testing.T) {
	s := newTestServer(t)
	errCh := serveInBackground(s)

	client := dialServer(t, s)
	defer client.Close()
	exchangeNull(t, client, 1)
	waitConnections(t, s, 1)

	require.NoError(t, s.Stop(context.Background()))
	waitServed(t, errCh)
	assert.Equal(t, int32(0), s.ActiveConnections())

	// The server closed the socket from its side.
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := client.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestServerStopAfterStoppedIsNoOp(t *testing.T) {
	s := newTestServer(t)
	errCh := serveInBackground(s)

	require.NoError(t, s.Stop(context.Background()))
	waitServed(t, errCh)

	assert.NoError(t, s.Stop(context.Background()))
}

// ============================================================================
// Takeover Tests
// ============================================================================

func TestServerTakeoverTransfersSockets(t *testing.T) {
	s := newTestServer(t)
	errCh := serveInBackground(s)

	client := dialServer(t, s)
	defer client.Close()
	exchangeNull(t, client, 1)
	waitConnections(t, s, 1)

	result, err := s.TakeoverStop(context.Background())
	require.NoError(t, err)
	waitServed(t, errCh)

	require.NotNil(t, result.Listener, "takeover must transfer the listening socket")
	require.Len(t, result.Conns, 1, "the live client connection must be transferred")

	// A successor adopts the descriptors and keeps serving: the existing
	// client continues on its original socket, and new clients can connect
	// to the same address.
	successor := New(nfs.NewProcessor(vfs.Unimplemented{}, nfs.ProcessorConfig{}),
		Config{}, nil)
	require.NoError(t, successor.ListenFromHandoff(result.Listener, result.Conns))
	successorErr := serveInBackground(successor)
	waitConnections(t, successor, 1)

	exchangeNull(t, client, 2)

	fresh := dialServer(t, successor)
	defer fresh.Close()
	exchangeNull(t, fresh, 3)

	require.NoError(t, successor.Stop(context.Background()))
	waitServed(t, successorErr)
}

func TestServerTakeoverWithNoClients(t *testing.T) {
	s := newTestServer(t)
	errCh := serveInBackground(s)

	result, err := s.TakeoverStop(context.Background())
	require.NoError(t, err)
	waitServed(t, errCh)

	require.NotNil(t, result.Listener)
	assert.Empty(t, result.Conns)
	require.NoError(t, result.Listener.Close())
}

func TestServerTakeoverAfterStoppedFails(t *testing.T) {
	s := newTestServer(t)
	errCh := serveInBackground(s)
	require.NoError(t, s.Stop(context.Background()))
	waitServed(t, errCh)

	_, err := s.TakeoverStop(context.Background())
	assert.Error(t, err)
}
