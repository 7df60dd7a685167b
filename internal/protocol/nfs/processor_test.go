package nfs

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"strings"
	"testing"
	"time"

	xdr2 "github.com/rasky/go-xdr/xdr2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/internal/protocol/nfs/xdr"
	"github.com/driftfs/driftfs/internal/protocol/rpc"
	"github.com/driftfs/driftfs/internal/trace"
	"github.com/driftfs/driftfs/pkg/vfs"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// buildCall assembles a wire-format RPC call message.
func buildCall(t *testing.T, xid, rpcvers, program, version, procedure uint32, args []byte) []byte {
	t.Helper()

	call := rpc.CallMessage{
		XID:        xid,
		MsgType:    rpc.MsgCall,
		RPCVersion: rpcvers,
		Program:    program,
		Version:    version,
		Procedure:  procedure,
		Cred:       rpc.OpaqueAuth{Flavor: rpc.AuthNull, Body: []byte{}},
		Verf:       rpc.OpaqueAuth{Flavor: rpc.AuthNull, Body: []byte{}},
	}

	var buf bytes.Buffer
	_, err := xdr2.Marshal(&buf, &call)
	require.NoError(t, err)
	buf.Write(args)
	return buf.Bytes()
}

func buildNFSCall(t *testing.T, xid, procedure uint32, args []byte) []byte {
	return buildCall(t, xid, rpc.RPCVersion, rpc.ProgramNFS, NFSVersion, procedure, args)
}

// Reply layout: XID(4) MsgType(4) ReplyState(4) VerfFlavor(4) VerfLen(4)
// AcceptStat(4), then the body.
func acceptStat(t *testing.T, reply []byte) uint32 {
	t.Helper()
	require.GreaterOrEqual(t, len(reply), 24)
	require.Equal(t, uint32(rpc.MsgAccepted), binary.BigEndian.Uint32(reply[8:12]))
	return binary.BigEndian.Uint32(reply[20:24])
}

func resultStatus(t *testing.T, reply []byte) uint32 {
	t.Helper()
	require.GreaterOrEqual(t, len(reply), 28)
	return binary.BigEndian.Uint32(reply[24:28])
}

// encodeHandleArg builds the GETATTR-shaped argument body.
func encodeHandleArg(handle []byte) []byte {
	enc := xdr.NewEncoder()
	enc.Opaque(handle)
	return enc.Bytes()
}

// stubDispatcher overrides individual operations of the not-supported base.
type stubDispatcher struct {
	vfs.Unimplemented

	getAttr func(ctx context.Context, args *vfs.GetAttrArgs) (*vfs.GetAttrResult, error)
}

func (s *stubDispatcher) GetAttr(ctx context.Context, args *vfs.GetAttrArgs) (*vfs.GetAttrResult, error) {
	if s.getAttr != nil {
		return s.getAttr(ctx, args)
	}
	return s.Unimplemented.GetAttr(ctx, args)
}

func newTestProcessor(d vfs.Dispatcher) *Processor {
	return NewProcessor(d, ProcessorConfig{})
}

// ============================================================================
// Envelope Validation Tests
// ============================================================================

func TestProcessEnvelopeValidation(t *testing.T) {
	p := newTestProcessor(&stubDispatcher{})

	t.Run("WrongRPCVersionIsDenied", func(t *testing.T) {
		msg := buildCall(t, 1, 3, rpc.ProgramNFS, NFSVersion, ProcNull, nil)
		reply, err := p.Process(context.Background(), msg)
		require.NoError(t, err)

		assert.Equal(t, uint32(rpc.MsgDenied), binary.BigEndian.Uint32(reply[8:12]))
		assert.Equal(t, uint32(rpc.RejectRPCMismatch), binary.BigEndian.Uint32(reply[12:16]))
		// Supported range 2..2 follows the reject stat.
		assert.Equal(t, uint32(rpc.RPCVersion), binary.BigEndian.Uint32(reply[16:20]))
		assert.Equal(t, uint32(rpc.RPCVersion), binary.BigEndian.Uint32(reply[20:24]))
	})

	t.Run("UnsupportedAuthFlavorIsDenied", func(t *testing.T) {
		call := rpc.CallMessage{
			XID:        9,
			MsgType:    rpc.MsgCall,
			RPCVersion: rpc.RPCVersion,
			Program:    rpc.ProgramNFS,
			Version:    NFSVersion,
			Procedure:  ProcNull,
			Cred:       rpc.OpaqueAuth{Flavor: 3, Body: []byte{}},
			Verf:       rpc.OpaqueAuth{Flavor: rpc.AuthNull, Body: []byte{}},
		}
		var buf bytes.Buffer
		_, err := xdr2.Marshal(&buf, &call)
		require.NoError(t, err)

		reply, err := p.Process(context.Background(), buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, uint32(rpc.MsgDenied), binary.BigEndian.Uint32(reply[8:12]))
		assert.Equal(t, uint32(rpc.RejectAuthError), binary.BigEndian.Uint32(reply[12:16]))
		assert.Equal(t, uint32(rpc.AuthRejectedCred), binary.BigEndian.Uint32(reply[16:20]))
	})

	t.Run("WrongProgramIsProgUnavail", func(t *testing.T) {
		msg := buildCall(t, 2, rpc.RPCVersion, 100017, NFSVersion, ProcNull, nil)
		reply, err := p.Process(context.Background(), msg)
		require.NoError(t, err)
		assert.Equal(t, uint32(rpc.AcceptProgUnavail), acceptStat(t, reply))
	})

	t.Run("WrongVersionIsProgMismatch", func(t *testing.T) {
		msg := buildCall(t, 3, rpc.RPCVersion, rpc.ProgramNFS, 2, ProcNull, nil)
		reply, err := p.Process(context.Background(), msg)
		require.NoError(t, err)

		require.Equal(t, uint32(rpc.AcceptProgMismatch), acceptStat(t, reply))
		assert.Equal(t, uint32(NFSVersion), binary.BigEndian.Uint32(reply[24:28]))
		assert.Equal(t, uint32(NFSVersion), binary.BigEndian.Uint32(reply[28:32]))
	})

	t.Run("ProcedureBeyondTableIsProcUnavail", func(t *testing.T) {
		for _, procedure := range []uint32{ProcedureCount, ProcedureCount + 1, 100, 1 << 30} {
			msg := buildNFSCall(t, 4, procedure, nil)
			reply, err := p.Process(context.Background(), msg)
			require.NoError(t, err)
			assert.Equal(t, uint32(rpc.AcceptProcUnavail), acceptStat(t, reply))
		}
	})

	t.Run("ReplyMessageIsFatal", func(t *testing.T) {
		msg := buildNFSCall(t, 5, ProcNull, nil)
		binary.BigEndian.PutUint32(msg[4:8], rpc.MsgReply)
		_, err := p.Process(context.Background(), msg)
		assert.Error(t, err)
	})

	t.Run("TruncatedHeaderIsFatal", func(t *testing.T) {
		_, err := p.Process(context.Background(), []byte{0x00, 0x01, 0x02})
		assert.Error(t, err)
	})
}

// ============================================================================
// Dispatch Tests
// ============================================================================

func TestProcessDispatch(t *testing.T) {
	t.Run("NullSucceedsWithEmptyBody", func(t *testing.T) {
		p := newTestProcessor(&stubDispatcher{})
		reply, err := p.Process(context.Background(), buildNFSCall(t, 10, ProcNull, nil))
		require.NoError(t, err)
		assert.Equal(t, uint32(rpc.AcceptSuccess), acceptStat(t, reply))
		assert.Len(t, reply, 24)
	})

	t.Run("GetAttrSuccess", func(t *testing.T) {
		attr := vfs.FileAttr{
			Type:   vfs.TypeRegular,
			Mode:   0o644,
			Nlink:  1,
			Size:   1024,
			FileID: 42,
			Atime:  time.Unix(100, 0),
			Mtime:  time.Unix(200, 0),
			Ctime:  time.Unix(300, 0),
		}
		p := newTestProcessor(&stubDispatcher{
			getAttr: func(ctx context.Context, args *vfs.GetAttrArgs) (*vfs.GetAttrResult, error) {
				return &vfs.GetAttrResult{Attr: attr}, nil
			},
		})

		msg := buildNFSCall(t, 11, ProcGetAttr, encodeHandleArg([]byte{1, 2, 3, 4}))
		reply, err := p.Process(context.Background(), msg)
		require.NoError(t, err)
		require.Equal(t, uint32(rpc.AcceptSuccess), acceptStat(t, reply))
		assert.Equal(t, uint32(StatusOK), resultStatus(t, reply))
		// status + fattr3
		assert.Len(t, reply, 24+4+84)
	})

	t.Run("OperationFailureStaysInBody", func(t *testing.T) {
		p := newTestProcessor(&stubDispatcher{
			getAttr: func(ctx context.Context, args *vfs.GetAttrArgs) (*vfs.GetAttrResult, error) {
				return nil, &vfs.OpError{Code: vfs.ErrStale}
			},
		})

		msg := buildNFSCall(t, 12, ProcGetAttr, encodeHandleArg([]byte{1, 2, 3, 4}))
		reply, err := p.Process(context.Background(), msg)
		require.NoError(t, err)
		require.Equal(t, uint32(rpc.AcceptSuccess), acceptStat(t, reply))
		assert.Equal(t, uint32(StatusErrStale), resultStatus(t, reply))
	})

	t.Run("NotSupportedBaseMapsToNotSupp", func(t *testing.T) {
		p := newTestProcessor(&stubDispatcher{})
		msg := buildNFSCall(t, 13, ProcGetAttr, encodeHandleArg([]byte{1, 2, 3, 4}))
		reply, err := p.Process(context.Background(), msg)
		require.NoError(t, err)
		require.Equal(t, uint32(rpc.AcceptSuccess), acceptStat(t, reply))
		assert.Equal(t, uint32(StatusErrNotSupp), resultStatus(t, reply))
	})

	t.Run("PanicInHandlerIsSystemErr", func(t *testing.T) {
		p := newTestProcessor(&stubDispatcher{
			getAttr: func(ctx context.Context, args *vfs.GetAttrArgs) (*vfs.GetAttrResult, error) {
				panic("corrupted inode table")
			},
		})

		msg := buildNFSCall(t, 14, ProcGetAttr, encodeHandleArg([]byte{1, 2, 3, 4}))
		reply, err := p.Process(context.Background(), msg)
		require.NoError(t, err)
		assert.Equal(t, uint32(rpc.AcceptSystemErr), acceptStat(t, reply))
	})
}

// ============================================================================
// Garbage Argument Tests
// ============================================================================

func TestProcessGarbageArgs(t *testing.T) {
	// Every argument-taking procedure must reject a truncated body with
	// GARBAGE_ARGS and log exactly one parse failure naming the procedure.
	for procedure := uint32(ProcGetAttr); procedure < ProcedureCount; procedure++ {
		entry := LookupProc(procedure)
		require.NotNil(t, entry)

		t.Run(entry.Name, func(t *testing.T) {
			var logBuf bytes.Buffer
			logger.SetOutput(&logBuf)
			defer logger.SetOutput(os.Stdout)

			p := newTestProcessor(&stubDispatcher{})
			msg := buildNFSCall(t, 20+procedure, procedure, []byte{0xDE, 0xAD})
			reply, err := p.Process(context.Background(), msg)
			require.NoError(t, err)
			assert.Equal(t, uint32(rpc.AcceptGarbageArgs), acceptStat(t, reply))

			entries := strings.Count(logBuf.String(), "failed to parse procedure arguments")
			assert.Equal(t, 1, entries)
			assert.Contains(t, logBuf.String(), entry.Name)
		})
	}
}

// ============================================================================
// Trace Accounting Tests
// ============================================================================

func TestProcessTraceBalance(t *testing.T) {
	bus := trace.NewBus(nil, 64)
	defer bus.Close()
	tracker := trace.NewLatencyTracker(nil)
	bus.Subscribe(tracker)

	p := NewProcessor(&stubDispatcher{}, ProcessorConfig{Bus: bus})

	for xid := uint32(1); xid <= 5; xid++ {
		_, err := p.Process(context.Background(), buildNFSCall(t, xid, ProcNull, nil))
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		return len(tracker.Outstanding()) == 0
	}, time.Second, 5*time.Millisecond, "every start event must be matched by a finish")
}
