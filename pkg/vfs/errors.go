package vfs

import "errors"

// OpError is a typed failure returned by Dispatcher operations.
//
// These are domain failures (file not found, permission denied, quota
// exceeded) as opposed to infrastructure failures. The protocol layer
// translates the Code into the matching NFS status; any other error value
// reaching the dispatch boundary becomes a generic server fault.
type OpError struct {
	// Code is the failure category.
	Code ErrorCode

	// Message is a human-readable description for operator logs.
	Message string

	// Path is the filesystem path related to the failure, when known.
	Path string
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// NewOpError builds an OpError with the given code and message.
func NewOpError(code ErrorCode, message string) *OpError {
	return &OpError{Code: code, Message: message}
}

// ErrorCode is the category of a Dispatcher failure.
//
// The set mirrors the OS error codes a filesystem core surfaces. Protocol
// handlers map each code to a protocol status; codes unknown to the mapper
// fall back to a server fault.
type ErrorCode int

const (
	// ErrPermission - operation not permitted for the caller (EPERM)
	ErrPermission ErrorCode = iota

	// ErrNotFound - no such file or directory (ENOENT)
	ErrNotFound

	// ErrIO - underlying I/O failure (EIO)
	ErrIO

	// ErrTextBusy - text file busy, surfaced as an I/O failure (ETXTBSY)
	ErrTextBusy

	// ErrNoDevice - no such device or address (ENXIO)
	ErrNoDevice

	// ErrAccess - access denied by permission bits (EACCES)
	ErrAccess

	// ErrExists - object already exists (EEXIST)
	ErrExists

	// ErrCrossDevice - link across filesystems (EXDEV)
	ErrCrossDevice

	// ErrNotDirectory - a directory was required (ENOTDIR)
	ErrNotDirectory

	// ErrIsDirectory - a non-directory was required (EISDIR)
	ErrIsDirectory

	// ErrInvalid - invalid argument (EINVAL)
	ErrInvalid

	// ErrTooLarge - file exceeds the size limit (EFBIG)
	ErrTooLarge

	// ErrReadOnly - filesystem is read-only (EROFS)
	ErrReadOnly

	// ErrTooManyLinks - link count limit reached (EMLINK)
	ErrTooManyLinks

	// ErrNameTooLong - component name exceeds the limit (ENAMETOOLONG)
	ErrNameTooLong

	// ErrNotEmpty - directory not empty (ENOTEMPTY)
	ErrNotEmpty

	// ErrQuota - disk quota exceeded (EDQUOT)
	ErrQuota

	// ErrStale - handle refers to a deleted object (ESTALE)
	ErrStale

	// ErrTimeout - the operation timed out inside the core (ETIMEDOUT)
	ErrTimeout

	// ErrUnavailable - resource temporarily unavailable (EAGAIN)
	ErrUnavailable

	// ErrNoMemory - allocation failure inside the core (ENOMEM)
	ErrNoMemory

	// ErrNotSupported - operation not supported by this core (ENOTSUP)
	ErrNotSupported
)

// ErrRequestTimeout is returned when the front end gives up waiting on an
// operation, as opposed to a timeout reported by the core itself. Distinct
// from ErrTimeout so the deadline owner is visible in logs; both map to the
// retriable JUKEBOX status.
var ErrRequestTimeout = errors.New("request deadline exceeded")
