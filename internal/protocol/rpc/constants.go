package rpc

// RPC Program Numbers
//
// Program numbers are assigned by IANA and identify different services
// reachable over ONC RPC. Reference: RFC 1057 / RFC 5531.
const (
	// ProgramPortmap is the port mapper program number (RFC 1833).
	ProgramPortmap = 100000

	// ProgramNFS is the NFS version 3 program number (RFC 1813).
	ProgramNFS = 100003
)

// RPCVersion is the only ONC RPC protocol version this server speaks.
// Calls carrying any other rpcvers are denied with RPC_MISMATCH.
const RPCVersion = 2

// RPC Message Types (RFC 5531 Section 9)
const (
	// MsgCall indicates an RPC call message.
	MsgCall = 0

	// MsgReply indicates an RPC reply message.
	MsgReply = 1
)

// RPC Reply States (RFC 5531 Section 9)
const (
	// MsgAccepted indicates the server recognized the call and attempted to
	// execute it; the accept stat carries the outcome.
	MsgAccepted = 0

	// MsgDenied indicates the call was rejected before execution, either for
	// an RPC version mismatch or an authentication failure.
	MsgDenied = 1
)

// RPC Accept Status (RFC 5531 Section 9)
//
// Carried in accepted replies to report the execution outcome.
const (
	// AcceptSuccess - the procedure executed and its results follow.
	AcceptSuccess = 0

	// AcceptProgUnavail - the server does not export the requested program.
	AcceptProgUnavail = 1

	// AcceptProgMismatch - the program exists but not at the requested
	// version; the reply carries the supported low/high range.
	AcceptProgMismatch = 2

	// AcceptProcUnavail - the procedure number is not in the program's table.
	AcceptProcUnavail = 3

	// AcceptGarbageArgs - the procedure arguments could not be decoded.
	AcceptGarbageArgs = 4

	// AcceptSystemErr - the server failed internally while executing.
	AcceptSystemErr = 5
)

// RPC Reject Status (RFC 5531 Section 9)
const (
	// RejectRPCMismatch - rpcvers was not 2; the reply carries the
	// supported low/high RPC versions.
	RejectRPCMismatch = 0

	// RejectAuthError - the credential or verifier was refused.
	RejectAuthError = 1
)

// Authentication flavors (RFC 5531 Section 8.2)
const (
	AuthNull  = 0
	AuthUnix  = 1
	AuthShort = 2
	AuthDES   = 3
)

// Auth failure detail carried in AUTH_ERROR rejections.
const (
	AuthBadCred      = 1
	AuthRejectedCred = 2
	AuthBadVerf      = 3
	AuthRejectedVerf = 4
	AuthTooWeak      = 5
)
