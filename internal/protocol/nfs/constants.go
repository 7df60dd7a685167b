package nfs

// NFSVersion is the only protocol version served. Requests for other
// versions get PROG_MISMATCH with this as both bounds.
const NFSVersion = 3

// NFS v3 procedure numbers (RFC 1813 Section 3)
const (
	ProcNull = iota
	ProcGetAttr
	ProcSetAttr
	ProcLookup
	ProcAccess
	ProcReadLink
	ProcRead
	ProcWrite
	ProcCreate
	ProcMkdir
	ProcSymlink
	ProcMknod
	ProcRemove
	ProcRmdir
	ProcRename
	ProcLink
	ProcReadDir
	ProcReadDirPlus
	ProcFSStat
	ProcFSInfo
	ProcPathConf
	ProcCommit

	// ProcedureCount is the size of the procedure table.
	ProcedureCount
)

// NFS v3 status codes (RFC 1813 Section 2.6, nfsstat3)
const (
	// StatusOK - the operation completed successfully
	StatusOK = 0

	// StatusErrPerm - not owner
	StatusErrPerm = 1

	// StatusErrNoEnt - no such file or directory
	StatusErrNoEnt = 2

	// StatusErrIO - hard I/O error
	StatusErrIO = 5

	// StatusErrNXIO - no such device or address
	StatusErrNXIO = 6

	// StatusErrAcces - permission denied
	StatusErrAcces = 13

	// StatusErrExist - file exists
	StatusErrExist = 17

	// StatusErrXDev - attempted cross-device hard link
	StatusErrXDev = 18

	// StatusErrNoDev - no such device
	StatusErrNoDev = 19

	// StatusErrNotDir - not a directory
	StatusErrNotDir = 20

	// StatusErrIsDir - is a directory
	StatusErrIsDir = 21

	// StatusErrInval - invalid argument
	StatusErrInval = 22

	// StatusErrFBig - file too large
	StatusErrFBig = 27

	// StatusErrNoSpc - no space left on device
	StatusErrNoSpc = 28

	// StatusErrROFS - read-only file system
	StatusErrROFS = 30

	// StatusErrMLink - too many hard links
	StatusErrMLink = 31

	// StatusErrNameTooLong - filename too long
	StatusErrNameTooLong = 63

	// StatusErrNotEmpty - directory not empty
	StatusErrNotEmpty = 66

	// StatusErrDQuot - disk quota exceeded
	StatusErrDQuot = 69

	// StatusErrStale - stale file handle
	StatusErrStale = 70

	// StatusErrBadHandle - malformed file handle
	StatusErrBadHandle = 10001

	// StatusErrNotSupp - operation not supported
	StatusErrNotSupp = 10004

	// StatusErrTooSmall - READDIR reply would not fit the client's buffer
	StatusErrTooSmall = 10005

	// StatusErrServerFault - undifferentiated server failure
	StatusErrServerFault = 10006

	// StatusErrJukebox - resource temporarily unavailable, retry later.
	// Used for timeouts and transient exhaustion so clients back off
	// instead of erroring out.
	StatusErrJukebox = 10008
)

// FSINFO properties bits (RFC 1813 Section 3.3.19)
const (
	FSFLink        = 0x0001
	FSFSymlink     = 0x0002
	FSFHomogeneous = 0x0008
	FSFCanSetTime  = 0x0010
)
