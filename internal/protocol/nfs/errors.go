package nfs

import (
	"context"
	"errors"
	"fmt"

	"github.com/driftfs/driftfs/pkg/vfs"
)

// errBadDiscriminant reports an out-of-range XDR union discriminant.
func errBadDiscriminant(value uint32) error {
	return fmt.Errorf("unknown discriminant %d", value)
}

// StatusFromCode maps a Dispatcher failure code to its NFS status.
//
// The mapping is total: codes this front end does not recognize come back as
// NFS3ERR_SERVERFAULT rather than leaking raw values to clients. Transient
// conditions (timeouts, resource exhaustion) map to JUKEBOX so clients retry
// instead of failing the I/O.
func StatusFromCode(code vfs.ErrorCode) uint32 {
	switch code {
	case vfs.ErrPermission:
		return StatusErrPerm
	case vfs.ErrNotFound:
		return StatusErrNoEnt
	case vfs.ErrIO, vfs.ErrTextBusy:
		return StatusErrIO
	case vfs.ErrNoDevice:
		return StatusErrNXIO
	case vfs.ErrAccess:
		return StatusErrAcces
	case vfs.ErrExists:
		return StatusErrExist
	case vfs.ErrCrossDevice:
		return StatusErrXDev
	case vfs.ErrNotDirectory:
		return StatusErrNotDir
	case vfs.ErrIsDirectory:
		return StatusErrIsDir
	case vfs.ErrInvalid:
		return StatusErrInval
	case vfs.ErrTooLarge:
		return StatusErrFBig
	case vfs.ErrReadOnly:
		return StatusErrROFS
	case vfs.ErrTooManyLinks:
		return StatusErrMLink
	case vfs.ErrNameTooLong:
		return StatusErrNameTooLong
	case vfs.ErrNotEmpty:
		return StatusErrNotEmpty
	case vfs.ErrQuota:
		return StatusErrDQuot
	case vfs.ErrStale:
		return StatusErrStale
	case vfs.ErrTimeout, vfs.ErrUnavailable, vfs.ErrNoMemory:
		return StatusErrJukebox
	case vfs.ErrNotSupported:
		return StatusErrNotSupp
	default:
		return StatusErrServerFault
	}
}

// StatusFromError maps any Dispatcher error to an NFS status.
//
// Typed *vfs.OpError values go through StatusFromCode. A request that the
// front end itself timed out, and context deadline expiry inside the core,
// both surface as JUKEBOX. Everything else is a server fault.
func StatusFromError(err error) uint32 {
	if err == nil {
		return StatusOK
	}

	var opErr *vfs.OpError
	if errors.As(err, &opErr) {
		return StatusFromCode(opErr.Code)
	}

	if errors.Is(err, vfs.ErrRequestTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return StatusErrJukebox
	}

	return StatusErrServerFault
}
