package nfs

import (
	"context"

	"github.com/driftfs/driftfs/internal/protocol/nfs/xdr"
	"github.com/driftfs/driftfs/pkg/vfs"
)

// encodeCreateResult is the shared success shape of CREATE, MKDIR, SYMLINK
// and MKNOD: optional new handle, optional attributes, then wcc_data for
// the parent directory.
func encodeCreateResult(handle vfs.Handle, attr *vfs.FileAttr, dirBefore *vfs.WccAttr, dirAfter *vfs.FileAttr) []byte {
	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.PostOpHandle(handle)
	enc.PostOpAttr(attr)
	enc.WccData(dirBefore, dirAfter)
	return enc.Bytes()
}

// handleCreate creates a regular file.
// RFC 1813 Section 3.3.8
func handleCreate(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	dir, err := dec.Handle("dir")
	if err != nil {
		return nil, err
	}
	name, err := dec.Name("name")
	if err != nil {
		return nil, err
	}
	mode, err := dec.Uint32("createmode")
	if err != nil {
		return nil, err
	}

	args := &vfs.CreateArgs{Dir: dir, Name: name, Mode: vfs.CreateMode(mode)}
	switch vfs.CreateMode(mode) {
	case vfs.CreateUnchecked, vfs.CreateGuarded:
		attr, err := dec.SetAttr()
		if err != nil {
			return nil, err
		}
		args.Attr = attr
	case vfs.CreateExclusive:
		verifier, err := dec.Uint64("verifier")
		if err != nil {
			return nil, err
		}
		args.Verifier = verifier
	default:
		return nil, &xdr.DecodeError{Field: "createmode", Err: errBadDiscriminant(mode)}
	}

	res, err := d.Create(ctx, args)
	if err != nil {
		return statusWcc(StatusFromError(err)), nil
	}
	return encodeCreateResult(res.Handle, res.Attr, res.DirBefore, res.DirAfter), nil
}

// handleMkdir creates a directory.
// RFC 1813 Section 3.3.9
func handleMkdir(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	dir, err := dec.Handle("dir")
	if err != nil {
		return nil, err
	}
	name, err := dec.Name("name")
	if err != nil {
		return nil, err
	}
	attr, err := dec.SetAttr()
	if err != nil {
		return nil, err
	}

	res, err := d.Mkdir(ctx, &vfs.MkdirArgs{Dir: dir, Name: name, Attr: attr})
	if err != nil {
		return statusWcc(StatusFromError(err)), nil
	}
	return encodeCreateResult(res.Handle, res.Attr, res.DirBefore, res.DirAfter), nil
}

// handleSymlink creates a symbolic link.
// RFC 1813 Section 3.3.10
func handleSymlink(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	dir, err := dec.Handle("dir")
	if err != nil {
		return nil, err
	}
	name, err := dec.Name("name")
	if err != nil {
		return nil, err
	}
	attr, err := dec.SetAttr()
	if err != nil {
		return nil, err
	}
	target, err := dec.String("target", maxWriteSize)
	if err != nil {
		return nil, err
	}

	res, err := d.Symlink(ctx, &vfs.SymlinkArgs{Dir: dir, Name: name, Attr: attr, Target: target})
	if err != nil {
		return statusWcc(StatusFromError(err)), nil
	}
	return encodeCreateResult(res.Handle, res.Attr, res.DirBefore, res.DirAfter), nil
}

// handleMknod creates a special file (device node, socket or fifo).
// RFC 1813 Section 3.3.11
func handleMknod(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	dir, err := dec.Handle("dir")
	if err != nil {
		return nil, err
	}
	name, err := dec.Name("name")
	if err != nil {
		return nil, err
	}
	ftype, err := dec.Uint32("type")
	if err != nil {
		return nil, err
	}

	args := &vfs.MknodArgs{Dir: dir, Name: name, Type: vfs.FileType(ftype)}
	switch vfs.FileType(ftype) {
	case vfs.TypeBlockDevice, vfs.TypeCharDevice:
		attr, err := dec.SetAttr()
		if err != nil {
			return nil, err
		}
		args.Attr = attr
		major, err := dec.Uint32("spec major")
		if err != nil {
			return nil, err
		}
		minor, err := dec.Uint32("spec minor")
		if err != nil {
			return nil, err
		}
		args.Spec = vfs.SpecData{Major: major, Minor: minor}
	case vfs.TypeSocket, vfs.TypeFifo:
		attr, err := dec.SetAttr()
		if err != nil {
			return nil, err
		}
		args.Attr = attr
	default:
		return nil, &xdr.DecodeError{Field: "type", Err: errBadDiscriminant(ftype)}
	}

	res, err := d.Mknod(ctx, args)
	if err != nil {
		return statusWcc(StatusFromError(err)), nil
	}
	return encodeCreateResult(res.Handle, res.Attr, res.DirBefore, res.DirAfter), nil
}
