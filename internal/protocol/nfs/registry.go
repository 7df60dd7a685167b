package nfs

import (
	"context"
	"sync/atomic"

	"github.com/driftfs/driftfs/pkg/vfs"
)

// AccessClass categorizes a procedure by the kind of access it performs.
// Used for metrics labels; the front end does not enforce permissions
// beyond what the Dispatcher reports.
type AccessClass uint8

const (
	// AccessNone - connectivity probes (NULL)
	AccessNone AccessClass = iota

	// AccessRead - procedures that only observe state
	AccessRead

	// AccessModify - procedures that change state
	AccessModify
)

func (c AccessClass) String() string {
	switch c {
	case AccessNone:
		return "none"
	case AccessRead:
		return "read"
	case AccessModify:
		return "modify"
	default:
		return "unknown"
	}
}

// SampleGroup controls how often a procedure's argument summary is attached
// to trace start events. High-volume data procedures are sampled sparsely so
// telemetry cost stays bounded; control-plane procedures are always sampled.
type SampleGroup uint8

const (
	// SampleAlways - every call carries an argument summary
	SampleAlways SampleGroup = iota

	// SampleCommon - metadata operations, sampled 1 in 64
	SampleCommon

	// SampleBulk - data-path operations (READ, WRITE, READDIR), 1 in 256
	SampleBulk
)

// Interval returns the sampling interval for the group: an argument summary
// is produced when the procedure's call count is a multiple of the interval.
func (g SampleGroup) Interval() uint64 {
	switch g {
	case SampleCommon:
		return 64
	case SampleBulk:
		return 256
	default:
		return 1
	}
}

// handlerFunc decodes the argument payload, performs the operation through
// the Dispatcher and returns the encoded result body (status included).
//
// Error contract: a *xdr.DecodeError return means the arguments were
// malformed (GARBAGE_ARGS); any other error is a server-side failure
// (SYSTEM_ERR). Operation failures never come back as errors - handlers
// encode them into the result body with the mapped NFS status.
type handlerFunc func(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error)

// formatterFunc renders a compact argument summary for trace events. It
// decodes from its own reader over the payload and must not touch any
// dispatch state; it may run for logging only, or not at all.
type formatterFunc func(data []byte) string

// ProcEntry describes one procedure in the dispatch table.
type ProcEntry struct {
	// Name is the RFC 1813 procedure name (for logs, metrics, traces).
	Name string

	// Handler processes the procedure.
	Handler handlerFunc

	// FormatArgs renders the argument summary for sampled trace events.
	FormatArgs formatterFunc

	// Access is the procedure's access class.
	Access AccessClass

	// Sampling selects the argument-summary sampling group.
	Sampling SampleGroup

	// calls counts dispatches to this procedure since process start. Also
	// drives summary sampling.
	calls atomic.Uint64
}

// Calls returns the number of times the procedure has been dispatched.
func (p *ProcEntry) Calls() uint64 {
	return p.calls.Load()
}

// procTable is the process-wide dispatch table, indexed by procedure
// number. Built once by init, read-only afterwards. Procedure numbers at or
// beyond ProcedureCount are rejected with PROC_UNAVAIL before any lookup.
var procTable [ProcedureCount]*ProcEntry

func init() {
	procTable = [ProcedureCount]*ProcEntry{
		ProcNull:        {Name: "NULL", Handler: handleNull, FormatArgs: formatNoArgs, Access: AccessNone, Sampling: SampleAlways},
		ProcGetAttr:     {Name: "GETATTR", Handler: handleGetAttr, FormatArgs: formatHandleArg, Access: AccessRead, Sampling: SampleCommon},
		ProcSetAttr:     {Name: "SETATTR", Handler: handleSetAttr, FormatArgs: formatHandleArg, Access: AccessModify, Sampling: SampleAlways},
		ProcLookup:      {Name: "LOOKUP", Handler: handleLookup, FormatArgs: formatDirOpArgs, Access: AccessRead, Sampling: SampleCommon},
		ProcAccess:      {Name: "ACCESS", Handler: handleAccess, FormatArgs: formatHandleArg, Access: AccessRead, Sampling: SampleCommon},
		ProcReadLink:    {Name: "READLINK", Handler: handleReadLink, FormatArgs: formatHandleArg, Access: AccessRead, Sampling: SampleAlways},
		ProcRead:        {Name: "READ", Handler: handleRead, FormatArgs: formatReadArgs, Access: AccessRead, Sampling: SampleBulk},
		ProcWrite:       {Name: "WRITE", Handler: handleWrite, FormatArgs: formatWriteArgs, Access: AccessModify, Sampling: SampleBulk},
		ProcCreate:      {Name: "CREATE", Handler: handleCreate, FormatArgs: formatDirOpArgs, Access: AccessModify, Sampling: SampleAlways},
		ProcMkdir:       {Name: "MKDIR", Handler: handleMkdir, FormatArgs: formatDirOpArgs, Access: AccessModify, Sampling: SampleAlways},
		ProcSymlink:     {Name: "SYMLINK", Handler: handleSymlink, FormatArgs: formatDirOpArgs, Access: AccessModify, Sampling: SampleAlways},
		ProcMknod:       {Name: "MKNOD", Handler: handleMknod, FormatArgs: formatDirOpArgs, Access: AccessModify, Sampling: SampleAlways},
		ProcRemove:      {Name: "REMOVE", Handler: handleRemove, FormatArgs: formatDirOpArgs, Access: AccessModify, Sampling: SampleAlways},
		ProcRmdir:       {Name: "RMDIR", Handler: handleRmdir, FormatArgs: formatDirOpArgs, Access: AccessModify, Sampling: SampleAlways},
		ProcRename:      {Name: "RENAME", Handler: handleRename, FormatArgs: formatRenameArgs, Access: AccessModify, Sampling: SampleAlways},
		ProcLink:        {Name: "LINK", Handler: handleLink, FormatArgs: formatDirOpArgs, Access: AccessModify, Sampling: SampleAlways},
		ProcReadDir:     {Name: "READDIR", Handler: handleReadDir, FormatArgs: formatHandleArg, Access: AccessRead, Sampling: SampleBulk},
		ProcReadDirPlus: {Name: "READDIRPLUS", Handler: handleReadDirPlus, FormatArgs: formatHandleArg, Access: AccessRead, Sampling: SampleBulk},
		ProcFSStat:      {Name: "FSSTAT", Handler: handleFSStat, FormatArgs: formatHandleArg, Access: AccessRead, Sampling: SampleAlways},
		ProcFSInfo:      {Name: "FSINFO", Handler: handleFSInfo, FormatArgs: formatHandleArg, Access: AccessRead, Sampling: SampleAlways},
		ProcPathConf:    {Name: "PATHCONF", Handler: handlePathConf, FormatArgs: formatHandleArg, Access: AccessRead, Sampling: SampleAlways},
		ProcCommit:      {Name: "COMMIT", Handler: handleCommit, FormatArgs: formatReadArgs, Access: AccessModify, Sampling: SampleAlways},
	}
}

// LookupProc returns the table entry for a procedure number, or nil when the
// number is out of range.
func LookupProc(procedure uint32) *ProcEntry {
	if procedure >= ProcedureCount {
		return nil
	}
	return procTable[procedure]
}

// ProcNames returns the procedure names in table order. Used by metrics
// initialization to pre-register per-procedure series.
func ProcNames() []string {
	names := make([]string, ProcedureCount)
	for i, entry := range procTable {
		names[i] = entry.Name
	}
	return names
}
