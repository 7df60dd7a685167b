package rpc

import (
	"bytes"
	"encoding/binary"
	"testing"

	xdr "github.com/rasky/go-xdr/xdr2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

func encodeCall(t *testing.T, call *CallMessage, args []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	_, err := xdr.Marshal(&buf, call)
	require.NoError(t, err)
	buf.Write(args)
	return buf.Bytes()
}

func sampleCall() *CallMessage {
	return &CallMessage{
		XID:        0xDEADBEEF,
		MsgType:    MsgCall,
		RPCVersion: RPCVersion,
		Program:    ProgramNFS,
		Version:    3,
		Procedure:  1,
		Cred:       OpaqueAuth{Flavor: AuthNull, Body: []byte{}},
		Verf:       OpaqueAuth{Flavor: AuthNull, Body: []byte{}},
	}
}

// ============================================================================
// ReadCall Tests
// ============================================================================

func TestReadCall(t *testing.T) {
	t.Run("ParsesValidCall", func(t *testing.T) {
		message := encodeCall(t, sampleCall(), nil)

		call, err := ReadCall(message)
		require.NoError(t, err)
		assert.Equal(t, uint32(0xDEADBEEF), call.XID)
		assert.Equal(t, uint32(ProgramNFS), call.Program)
		assert.Equal(t, uint32(3), call.Version)
		assert.Equal(t, uint32(1), call.Procedure)
		assert.Equal(t, uint32(AuthNull), call.AuthFlavor())
	})

	t.Run("RejectsReplyMessage", func(t *testing.T) {
		call := sampleCall()
		call.MsgType = MsgReply
		message := encodeCall(t, call, nil)

		_, err := ReadCall(message)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected CALL")
	})

	t.Run("RejectsTruncatedHeader", func(t *testing.T) {
		message := encodeCall(t, sampleCall(), nil)

		_, err := ReadCall(message[:10])
		require.Error(t, err)
	})
}

// ============================================================================
// SplitBody Tests
// ============================================================================

func TestSplitBody(t *testing.T) {
	t.Run("ReturnsArgumentsAfterAuth", func(t *testing.T) {
		args := []byte{0x01, 0x02, 0x03, 0x04}
		message := encodeCall(t, sampleCall(), args)

		body, err := SplitBody(message)
		require.NoError(t, err)
		assert.Equal(t, args, body)
	})

	t.Run("EmptyArguments", func(t *testing.T) {
		message := encodeCall(t, sampleCall(), nil)

		body, err := SplitBody(message)
		require.NoError(t, err)
		assert.Empty(t, body)
	})

	t.Run("SkipsPaddedCredential", func(t *testing.T) {
		call := sampleCall()
		// 5-byte body forces 3 bytes of XDR padding.
		call.Cred = OpaqueAuth{Flavor: AuthUnix, Body: []byte{1, 2, 3, 4, 5}}
		args := []byte{0xAA, 0xBB, 0xCC, 0xDD}
		message := encodeCall(t, call, args)

		body, err := SplitBody(message)
		require.NoError(t, err)
		assert.Equal(t, args, body)
	})

	t.Run("RejectsTruncatedAuth", func(t *testing.T) {
		message := encodeCall(t, sampleCall(), nil)

		_, err := SplitBody(message[:26])
		require.Error(t, err)
	})

	t.Run("RejectsAuthBodyOverrun", func(t *testing.T) {
		message := encodeCall(t, sampleCall(), nil)
		// Corrupt the credential length to point past the end.
		binary.BigEndian.PutUint32(message[28:32], 1<<20)

		_, err := SplitBody(message)
		require.Error(t, err)
	})
}

// ============================================================================
// Reply Builder Tests
// ============================================================================

func TestMakeAcceptedReply(t *testing.T) {
	t.Run("SuccessCarriesBody", func(t *testing.T) {
		body := []byte{0xDE, 0xAD}
		reply, err := MakeAcceptedReply(42, AcceptSuccess, body)
		require.NoError(t, err)

		assert.Equal(t, uint32(42), binary.BigEndian.Uint32(reply[0:4]))
		assert.Equal(t, uint32(MsgReply), binary.BigEndian.Uint32(reply[4:8]))
		assert.Equal(t, uint32(MsgAccepted), binary.BigEndian.Uint32(reply[8:12]))
		// verf: AUTH_NULL flavor + zero length = 8 bytes
		assert.Equal(t, uint32(AcceptSuccess), binary.BigEndian.Uint32(reply[20:24]))
		assert.Equal(t, body, reply[24:])
	})

	t.Run("FailureStatsHaveEmptyBody", func(t *testing.T) {
		for _, stat := range []uint32{AcceptProgUnavail, AcceptProcUnavail, AcceptGarbageArgs, AcceptSystemErr} {
			reply, err := MakeAcceptedReply(7, stat, nil)
			require.NoError(t, err)
			assert.Len(t, reply, 24)
			assert.Equal(t, stat, binary.BigEndian.Uint32(reply[20:24]))
		}
	})
}

func TestMakeMismatchReply(t *testing.T) {
	reply, err := MakeMismatchReply(9, 3, 3)
	require.NoError(t, err)

	require.Len(t, reply, 32)
	assert.Equal(t, uint32(AcceptProgMismatch), binary.BigEndian.Uint32(reply[20:24]))
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(reply[24:28]))
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(reply[28:32]))
}

func TestMakeRPCMismatchReply(t *testing.T) {
	reply, err := MakeRPCMismatchReply(11)
	require.NoError(t, err)

	require.Len(t, reply, 24)
	assert.Equal(t, uint32(MsgDenied), binary.BigEndian.Uint32(reply[8:12]))
	assert.Equal(t, uint32(RejectRPCMismatch), binary.BigEndian.Uint32(reply[12:16]))
	assert.Equal(t, uint32(RPCVersion), binary.BigEndian.Uint32(reply[16:20]))
	assert.Equal(t, uint32(RPCVersion), binary.BigEndian.Uint32(reply[20:24]))
}

func TestMakeAuthErrorReply(t *testing.T) {
	reply, err := MakeAuthErrorReply(13, AuthTooWeak)
	require.NoError(t, err)

	require.Len(t, reply, 20)
	assert.Equal(t, uint32(MsgDenied), binary.BigEndian.Uint32(reply[8:12]))
	assert.Equal(t, uint32(RejectAuthError), binary.BigEndian.Uint32(reply[12:16]))
	assert.Equal(t, uint32(AuthTooWeak), binary.BigEndian.Uint32(reply[16:20]))
}
