package nfs

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/internal/protocol/nfs/xdr"
	"github.com/driftfs/driftfs/internal/protocol/rpc"
	"github.com/driftfs/driftfs/internal/trace"
	"github.com/driftfs/driftfs/pkg/metrics"
	"github.com/driftfs/driftfs/pkg/vfs"
)

// hexDumpLimit bounds how many argument bytes a parse-failure log entry
// carries.
const hexDumpLimit = 64

// ProcessorConfig carries the optional collaborators of a Processor. Zero
// values select safe defaults: wall clock, no tracing, no-op metrics, no
// request timeout.
type ProcessorConfig struct {
	// RequestTimeout bounds each dispatched operation. Zero means no limit.
	RequestTimeout time.Duration

	// Clock drives latency measurement. Nil falls back to the wall clock.
	Clock clock.Clock

	// Bus receives start/finish events per request.
	Bus *trace.Bus

	// Metrics receives request counters and durations.
	Metrics metrics.NFSMetrics
}

// Processor turns one RPC call message into one reply message.
//
// It validates the RPC envelope (rpcvers, program, version, procedure),
// routes the argument bytes through the procedure table, and maps every
// failure class to its protocol-level outcome. Application failures never
// escape as RPC-level errors; only an unparseable call header - no xid to
// reply to - is returned as an error, which is fatal to the connection.
type Processor struct {
	dispatcher vfs.Dispatcher
	timeout    time.Duration
	clock      clock.Clock
	bus        *trace.Bus
	metrics    metrics.NFSMetrics
}

// NewProcessor creates a Processor bound to a Dispatcher.
func NewProcessor(dispatcher vfs.Dispatcher, cfg ProcessorConfig) *Processor {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewNFSMetrics()
	}
	return &Processor{
		dispatcher: dispatcher,
		timeout:    cfg.RequestTimeout,
		clock:      clk,
		bus:        cfg.Bus,
		metrics:    m,
	}
}

// Process handles one record-framed RPC message and returns the reply bytes
// (not yet record-marked).
//
// A non-nil error means no reply could be produced - the call header itself
// was unparseable - and the connection should stop with reason ERROR.
func (p *Processor) Process(ctx context.Context, message []byte) ([]byte, error) {
	call, err := rpc.ReadCall(message)
	if err != nil {
		return nil, err
	}

	if call.RPCVersion != rpc.RPCVersion {
		logger.WarnKV("denying call with unsupported RPC version",
			"xid", call.XID, "rpcvers", call.RPCVersion)
		p.metrics.RecordRejection("RPC_MISMATCH")
		return rpc.MakeRPCMismatchReply(call.XID)
	}

	switch call.AuthFlavor() {
	case rpc.AuthNull, rpc.AuthUnix:
		// Credentials are accepted but not enforced; access control lives
		// behind the Dispatcher.
	default:
		logger.WarnKV("denying call with unsupported auth flavor",
			"xid", call.XID, "flavor", call.AuthFlavor())
		p.metrics.RecordRejection("AUTH_ERROR")
		return rpc.MakeAuthErrorReply(call.XID, rpc.AuthRejectedCred)
	}

	if call.Program != rpc.ProgramNFS {
		logger.WarnKV("rejecting call for unknown program",
			"xid", call.XID, "program", call.Program)
		p.metrics.RecordRejection("PROG_UNAVAIL")
		return rpc.MakeAcceptedReply(call.XID, rpc.AcceptProgUnavail, nil)
	}

	if call.Version != NFSVersion {
		logger.WarnKV("rejecting call for unsupported NFS version",
			"xid", call.XID, "version", call.Version)
		p.metrics.RecordRejection("PROG_MISMATCH")
		return rpc.MakeMismatchReply(call.XID, NFSVersion, NFSVersion)
	}

	entry := LookupProc(call.Procedure)
	if entry == nil {
		logger.WarnKV("rejecting call for unknown procedure",
			"xid", call.XID, "procedure", call.Procedure)
		p.metrics.RecordRejection("PROC_UNAVAIL")
		return rpc.MakeAcceptedReply(call.XID, rpc.AcceptProcUnavail, nil)
	}

	args, err := rpc.SplitBody(message)
	if err != nil {
		p.logGarbage(entry.Name, call.XID, message, err)
		p.metrics.RecordRejection("GARBAGE_ARGS")
		return rpc.MakeAcceptedReply(call.XID, rpc.AcceptGarbageArgs, nil)
	}

	stat, body := p.execute(ctx, call, entry, args)
	if stat != rpc.AcceptSuccess {
		p.metrics.RecordRejection(acceptStatName(stat))
	}
	return rpc.MakeAcceptedReply(call.XID, stat, body)
}

// execute runs the procedure handler with tracing, metrics and panic
// containment. It returns the accept stat and the result body.
func (p *Processor) execute(ctx context.Context, call *rpc.CallMessage, entry *ProcEntry, args []byte) (stat uint32, body []byte) {
	count := entry.calls.Add(1)

	summary := ""
	if count%entry.Sampling.Interval() == 0 {
		summary = entry.FormatArgs(args)
	}

	status := uint32(StatusErrServerFault)
	started := p.clock.Now()
	if p.bus != nil {
		p.bus.Start(call.XID, entry.Name, summary)
	}
	p.metrics.RecordRequestStart(entry.Name)
	defer func() {
		// Finish is published unconditionally so latency and outstanding
		// accounting stay balanced even across panics.
		p.metrics.RecordRequestEnd(entry.Name)
		p.metrics.RecordRequest(entry.Name, status, p.clock.Now().Sub(started))
		if p.bus != nil {
			p.bus.Finish(call.XID, entry.Name, status)
		}
	}()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, p.timeout, vfs.ErrRequestTimeout)
		defer cancel()
	}

	body, err := p.invoke(ctx, entry, args)
	switch {
	case err == nil:
		stat = rpc.AcceptSuccess
		status = replyStatus(body)
	case isDecodeError(err):
		p.logGarbage(entry.Name, call.XID, args, err)
		stat = rpc.AcceptGarbageArgs
		body = nil
	default:
		logger.ErrorKV("procedure failed internally",
			"procedure", entry.Name,
			"program", call.Program,
			"version", call.Version,
			"xid", call.XID,
			"error", err.Error())
		stat = rpc.AcceptSystemErr
		body = nil
	}
	return stat, body
}

// invoke calls the handler, converting a panic into an error so one broken
// request cannot take down the connection.
func (p *Processor) invoke(ctx context.Context, entry *ProcEntry, args []byte) (body []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(entry.Name, r)
		}
	}()
	return entry.Handler(ctx, p.dispatcher, args)
}

func (p *Processor) logGarbage(procedure string, xid uint32, data []byte, err error) {
	dump := data
	if len(dump) > hexDumpLimit {
		dump = dump[:hexDumpLimit]
	}
	logger.WarnKV("failed to parse procedure arguments",
		"procedure", procedure,
		"xid", xid,
		"error", err.Error(),
		"bytes", hex.EncodeToString(dump))
}

func isDecodeError(err error) bool {
	var decodeErr *xdr.DecodeError
	return errors.As(err, &decodeErr)
}

// replyStatus extracts the NFS status from an encoded result body. NULL has
// an empty body, which reads as OK.
func replyStatus(body []byte) uint32 {
	if len(body) < 4 {
		return StatusOK
	}
	return binary.BigEndian.Uint32(body[:4])
}

func acceptStatName(stat uint32) string {
	switch stat {
	case rpc.AcceptProgUnavail:
		return "PROG_UNAVAIL"
	case rpc.AcceptProgMismatch:
		return "PROG_MISMATCH"
	case rpc.AcceptProcUnavail:
		return "PROC_UNAVAIL"
	case rpc.AcceptGarbageArgs:
		return "GARBAGE_ARGS"
	case rpc.AcceptSystemErr:
		return "SYSTEM_ERR"
	default:
		return "SUCCESS"
	}
}

type panicError struct {
	procedure string
	value     any
}

func newPanicError(procedure string, value any) error {
	return &panicError{procedure: procedure, value: value}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic in %s handler: %v", e.procedure, e.value)
}
