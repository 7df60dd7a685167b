// Package vfs defines the boundary between the NFS front end and the
// filesystem core. The core implements the Dispatcher interface; the protocol
// layer translates wire requests into the typed operations defined here and
// maps OpError codes back to NFS status codes.
package vfs

import "time"

// Handle is an opaque file handle issued by the filesystem core.
//
// Handles are at most 64 bytes on the wire (RFC 1813 NFS3_FHSIZE). The
// protocol layer enforces the limit during decode; the core is free to use
// any internal structure.
type Handle []byte

// MaxHandleSize is the largest handle accepted on the wire (NFS3_FHSIZE).
const MaxHandleSize = 64

// FileType identifies the kind of a filesystem object (ftype3).
type FileType uint32

const (
	TypeRegular FileType = iota + 1
	TypeDirectory
	TypeBlockDevice
	TypeCharDevice
	TypeSymlink
	TypeSocket
	TypeFifo
)

// FileAttr holds the attributes of a filesystem object (fattr3).
type FileAttr struct {
	Type   FileType
	Mode   uint32
	Nlink  uint32
	UID    uint32
	GID    uint32
	Size   uint64
	Used   uint64
	Rdev   SpecData
	FSID   uint64
	FileID uint64
	Atime  time.Time
	Mtime  time.Time
	Ctime  time.Time
}

// SpecData carries device numbers for block and character specials.
type SpecData struct {
	Major uint32
	Minor uint32
}

// SetAttr describes a partial attribute update (sattr3). Nil pointer fields
// are left unchanged.
type SetAttr struct {
	Mode  *uint32
	UID   *uint32
	GID   *uint32
	Size  *uint64
	Atime *time.Time
	Mtime *time.Time

	// SetAtimeToServer/SetMtimeToServer request the server clock instead of
	// a client-supplied timestamp (SET_TO_SERVER_TIME).
	SetAtimeToServer bool
	SetMtimeToServer bool
}

// DirEntry is a single READDIR result entry.
type DirEntry struct {
	FileID uint64
	Name   string
	Cookie uint64
}

// DirEntryPlus extends DirEntry with the attributes and handle that
// READDIRPLUS returns alongside each name.
type DirEntryPlus struct {
	DirEntry
	Attr   *FileAttr
	Handle Handle
}

// WccAttr is the pre-operation attribute subset used for weak cache
// consistency (wcc_attr).
type WccAttr struct {
	Size  uint64
	Mtime time.Time
	Ctime time.Time
}

// StableHow selects the durability level of a WRITE (stable_how).
type StableHow uint32

const (
	Unstable StableHow = iota
	DataSync
	FileSync
)

// Access permission bits checked by the ACCESS procedure.
const (
	AccessRead    = 0x0001
	AccessLookup  = 0x0002
	AccessModify  = 0x0004
	AccessExtend  = 0x0008
	AccessDelete  = 0x0010
	AccessExecute = 0x0020
)
