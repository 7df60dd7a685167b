package rpc

// CallMessage is the header of an RPC call as it appears on the wire.
//
// Wire format (XDR):
//   - XID:        4 bytes (client-chosen transaction id)
//   - MsgType:    4 bytes (must be 0 for CALL)
//   - RPCVersion: 4 bytes (must be 2)
//   - Program:    4 bytes
//   - Version:    4 bytes
//   - Procedure:  4 bytes
//   - Cred, Verf: variable (opaque auth)
//   - procedure-specific arguments follow
//
// The XID correlates calls with replies. It is chosen by the client and is
// not unique across retransmits - a retransmitted call reuses its XID.
//
// Reference: RFC 5531 Section 9.
type CallMessage struct {
	XID        uint32
	MsgType    uint32
	RPCVersion uint32
	Program    uint32
	Version    uint32
	Procedure  uint32
	Cred       OpaqueAuth
	Verf       OpaqueAuth
}

// acceptedReplyHeader is the fixed prefix of a MSG_ACCEPTED reply. The body
// that follows depends on the accept stat.
type acceptedReplyHeader struct {
	XID        uint32
	MsgType    uint32
	ReplyState uint32
	Verf       OpaqueAuth
	AcceptStat uint32
}

// deniedReplyHeader is the fixed prefix of a MSG_DENIED reply. The reject
// detail that follows depends on the reject stat.
type deniedReplyHeader struct {
	XID        uint32
	MsgType    uint32
	ReplyState uint32
	RejectStat uint32
}

// OpaqueAuth carries a credential or verifier. The RPC layer never
// interprets the body; the flavor says how a consumer would.
//
// Reference: RFC 5531 Section 8.
type OpaqueAuth struct {
	Flavor uint32
	Body   []byte `xdr:"opaque"`
}

// AuthFlavor returns the credential flavor of the call.
func (c *CallMessage) AuthFlavor() uint32 {
	return c.Cred.Flavor
}
