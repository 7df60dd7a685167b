// Package portmap registers the NFS service with the host's rpcbind
// (portmapper) daemon so clients can discover the port. Registration is
// best-effort: most deployments mount with the port given explicitly, and a
// missing rpcbind only costs discovery.
package portmap

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	xdr "github.com/rasky/go-xdr/xdr2"

	"github.com/driftfs/driftfs/internal/protocol/rpc"
)

// Portmapper protocol constants (RFC 1833).
const (
	// DefaultAddr is the conventional rpcbind endpoint.
	DefaultAddr = "127.0.0.1:111"

	// Version is the portmapper program version spoken here.
	Version = 2

	// ProtoTCP is the IPPROTO_TCP transport selector in mappings.
	ProtoTCP = 6

	procSet   = 1
	procUnset = 2
)

// mapping is the PMAPPROC_SET/UNSET argument structure.
type mapping struct {
	Program  uint32
	Version  uint32
	Protocol uint32
	Port     uint32
}

type replyHeader struct {
	XID        uint32
	MsgType    uint32
	ReplyState uint32
	Verf       rpc.OpaqueAuth
	AcceptStat uint32
}

// Client talks to one rpcbind endpoint.
type Client struct {
	addr    string
	timeout time.Duration
	xid     atomic.Uint32
}

// NewClient creates a Client for the given rpcbind address; empty selects
// DefaultAddr.
func NewClient(addr string) *Client {
	if addr == "" {
		addr = DefaultAddr
	}
	c := &Client{addr: addr, timeout: 5 * time.Second}
	c.xid.Store(uint32(time.Now().UnixNano()))
	return c
}

// Set registers program/version as reachable on the given TCP port. Returns
// false when rpcbind refused the mapping (usually a stale registration by
// another owner).
func (c *Client) Set(ctx context.Context, program, version, port uint32) (bool, error) {
	return c.call(ctx, procSet, mapping{
		Program:  program,
		Version:  version,
		Protocol: ProtoTCP,
		Port:     port,
	})
}

// Unset removes the registration for program/version.
func (c *Client) Unset(ctx context.Context, program, version uint32) (bool, error) {
	return c.call(ctx, procUnset, mapping{
		Program: program,
		Version: version,
	})
}

func (c *Client) call(ctx context.Context, procedure uint32, args mapping) (bool, error) {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return false, fmt.Errorf("connect to rpcbind at %s: %w", c.addr, err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(c.timeout))
	}

	xidValue := c.xid.Add(1)
	call := rpc.CallMessage{
		XID:        xidValue,
		MsgType:    rpc.MsgCall,
		RPCVersion: rpc.RPCVersion,
		Program:    rpc.ProgramPortmap,
		Version:    Version,
		Procedure:  procedure,
		Cred:       rpc.OpaqueAuth{Flavor: rpc.AuthNull, Body: []byte{}},
		Verf:       rpc.OpaqueAuth{Flavor: rpc.AuthNull, Body: []byte{}},
	}

	var payload bytes.Buffer
	if _, err := xdr.Marshal(&payload, &call); err != nil {
		return false, fmt.Errorf("marshal portmap call: %w", err)
	}
	if _, err := xdr.Marshal(&payload, &args); err != nil {
		return false, fmt.Errorf("marshal mapping: %w", err)
	}

	if _, err := conn.Write(rpc.MarshalRecord(payload.Bytes())); err != nil {
		return false, fmt.Errorf("write portmap call: %w", err)
	}

	reply, err := readRecord(conn)
	if err != nil {
		return false, fmt.Errorf("read portmap reply: %w", err)
	}
	return parseReply(reply, xidValue)
}

// readRecord reads one record-marked message. rpcbind replies are single
// fragment in practice; anything else is rejected.
func readRecord(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	raw := binary.BigEndian.Uint32(header[:])
	if raw&0x80000000 == 0 {
		return nil, fmt.Errorf("multi-fragment portmap reply not supported")
	}
	length := raw & 0x7FFFFFFF
	if length > rpc.MaxFragmentSize {
		return nil, fmt.Errorf("portmap reply of %d bytes too large", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func parseReply(reply []byte, wantXID uint32) (bool, error) {
	r := bytes.NewReader(reply)

	var header replyHeader
	if _, err := xdr.Unmarshal(r, &header); err != nil {
		return false, fmt.Errorf("unmarshal reply header: %w", err)
	}
	if header.XID != wantXID {
		return false, fmt.Errorf("reply xid %#x does not match call xid %#x", header.XID, wantXID)
	}
	if header.ReplyState != rpc.MsgAccepted {
		return false, fmt.Errorf("portmap call denied (reply state %d)", header.ReplyState)
	}
	if header.AcceptStat != rpc.AcceptSuccess {
		return false, fmt.Errorf("portmap call failed with accept stat %d", header.AcceptStat)
	}

	var accepted bool
	if _, err := xdr.Unmarshal(r, &accepted); err != nil {
		return false, fmt.Errorf("unmarshal result: %w", err)
	}
	return accepted, nil
}
