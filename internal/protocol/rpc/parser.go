package rpc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// ReadCall decodes the RPC call header from a message payload.
//
// Only the header is decoded; procedure arguments stay opaque and are
// recovered separately with SplitBody.
func ReadCall(data []byte) (*CallMessage, error) {
	call := &CallMessage{}
	_, err := xdr.Unmarshal(bytes.NewReader(data), call)
	if err != nil {
		return nil, fmt.Errorf("unmarshal RPC call: %w", err)
	}

	if call.MsgType != MsgCall {
		return nil, fmt.Errorf("expected CALL (%d), got %d", MsgCall, call.MsgType)
	}

	return call, nil
}

// SplitBody returns the procedure arguments that follow the RPC call header,
// skipping the variable-length credential and verifier.
//
// The returned slice aliases message; callers must not retain it past the
// message buffer's lifetime.
func SplitBody(message []byte) ([]byte, error) {
	// XID, MsgType, RPCVersion, Program, Version, Procedure = 6 * 4 bytes
	offset := 24

	for i := 0; i < 2; i++ { // cred, then verf
		if offset+8 > len(message) {
			return nil, fmt.Errorf("truncated auth at offset %d", offset)
		}
		offset += 4 // flavor
		bodyLen := binary.BigEndian.Uint32(message[offset : offset+4])
		offset += 4

		padded := int(bodyLen) + int((4-(bodyLen%4))%4)
		if offset+padded > len(message) {
			return nil, fmt.Errorf("auth body of %d bytes overruns message", bodyLen)
		}
		offset += padded
	}

	if offset >= len(message) {
		return []byte{}, nil
	}
	return message[offset:], nil
}

// MakeAcceptedReply builds a MSG_ACCEPTED reply with the given accept stat,
// appending body after the reply header. For AcceptSuccess the body is the
// serialized procedure result; for the failure stats it is normally empty.
//
// The returned bytes are the bare reply message, not yet record-marked.
func MakeAcceptedReply(xid uint32, stat uint32, body []byte) ([]byte, error) {
	header := acceptedReplyHeader{
		XID:        xid,
		MsgType:    MsgReply,
		ReplyState: MsgAccepted,
		Verf: OpaqueAuth{
			Flavor: AuthNull,
			Body:   []byte{},
		},
		AcceptStat: stat,
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &header); err != nil {
		return nil, fmt.Errorf("marshal accepted reply: %w", err)
	}
	buf.Write(body)

	return buf.Bytes(), nil
}

// MakeMismatchReply builds a PROG_MISMATCH reply carrying the supported
// version range for the requested program.
func MakeMismatchReply(xid uint32, low, high uint32) ([]byte, error) {
	var rng bytes.Buffer
	if _, err := xdr.Marshal(&rng, &struct{ Low, High uint32 }{low, high}); err != nil {
		return nil, fmt.Errorf("marshal version range: %w", err)
	}
	return MakeAcceptedReply(xid, AcceptProgMismatch, rng.Bytes())
}

// MakeRPCMismatchReply builds a MSG_DENIED/RPC_MISMATCH reply for a call
// whose rpcvers is not 2. The detail carries the supported range.
func MakeRPCMismatchReply(xid uint32) ([]byte, error) {
	header := deniedReplyHeader{
		XID:        xid,
		MsgType:    MsgReply,
		ReplyState: MsgDenied,
		RejectStat: RejectRPCMismatch,
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &header); err != nil {
		return nil, fmt.Errorf("marshal denied reply: %w", err)
	}
	if _, err := xdr.Marshal(&buf, &struct{ Low, High uint32 }{RPCVersion, RPCVersion}); err != nil {
		return nil, fmt.Errorf("marshal rpcvers range: %w", err)
	}

	return buf.Bytes(), nil
}

// MakeAuthErrorReply builds a MSG_DENIED/AUTH_ERROR reply with the given
// auth stat detail.
func MakeAuthErrorReply(xid uint32, authStat uint32) ([]byte, error) {
	header := deniedReplyHeader{
		XID:        xid,
		MsgType:    MsgReply,
		ReplyState: MsgDenied,
		RejectStat: RejectAuthError,
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &header); err != nil {
		return nil, fmt.Errorf("marshal denied reply: %w", err)
	}
	if _, err := xdr.Marshal(&buf, &authStat); err != nil {
		return nil, fmt.Errorf("marshal auth stat: %w", err)
	}

	return buf.Bytes(), nil
}
