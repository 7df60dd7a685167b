package xdr

import "github.com/driftfs/driftfs/pkg/vfs"

// FileAttr encodes a full fattr3 structure (RFC 1813 Section 2.3.1).
func (e *Encoder) FileAttr(attr *vfs.FileAttr) {
	e.Uint32(uint32(attr.Type))
	e.Uint32(attr.Mode)
	e.Uint32(attr.Nlink)
	e.Uint32(attr.UID)
	e.Uint32(attr.GID)
	e.Uint64(attr.Size)
	e.Uint64(attr.Used)
	e.Uint32(attr.Rdev.Major)
	e.Uint32(attr.Rdev.Minor)
	e.Uint64(attr.FSID)
	e.Uint64(attr.FileID)
	e.Time(attr.Atime)
	e.Time(attr.Mtime)
	e.Time(attr.Ctime)
}

// PostOpAttr encodes a post_op_attr: an attribute-follows boolean, then the
// fattr3 when present (RFC 1813 Section 2.6). A nil attr encodes as absent,
// which clients treat as "attributes unavailable" - legal in every reply.
func (e *Encoder) PostOpAttr(attr *vfs.FileAttr) {
	if attr == nil {
		e.Bool(false)
		return
	}
	e.Bool(true)
	e.FileAttr(attr)
}

// PreOpAttr encodes a pre_op_attr (optional wcc_attr).
func (e *Encoder) PreOpAttr(attr *vfs.WccAttr) {
	if attr == nil {
		e.Bool(false)
		return
	}
	e.Bool(true)
	e.Uint64(attr.Size)
	e.Time(attr.Mtime)
	e.Time(attr.Ctime)
}

// WccData encodes a wcc_data pair: pre-op then post-op attributes of the
// same object (RFC 1813 Section 2.6).
func (e *Encoder) WccData(before *vfs.WccAttr, after *vfs.FileAttr) {
	e.PreOpAttr(before)
	e.PostOpAttr(after)
}

// Handle encodes an nfs_fh3.
func (e *Encoder) Handle(h vfs.Handle) {
	e.Opaque(h)
}

// PostOpHandle encodes a post_op_fh3: a handle-follows boolean, then the
// handle when present.
func (e *Encoder) PostOpHandle(h vfs.Handle) {
	if len(h) == 0 {
		e.Bool(false)
		return
	}
	e.Bool(true)
	e.Opaque(h)
}
