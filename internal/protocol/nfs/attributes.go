package nfs

import (
	"context"

	"github.com/driftfs/driftfs/internal/protocol/nfs/xdr"
	"github.com/driftfs/driftfs/pkg/vfs"
)

// handleGetAttr returns the attributes of a filesystem object.
// RFC 1813 Section 3.3.1
func handleGetAttr(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	handle, err := dec.Handle("object")
	if err != nil {
		return nil, err
	}

	res, err := d.GetAttr(ctx, &vfs.GetAttrArgs{Handle: handle})
	if err != nil {
		return statusOnly(StatusFromError(err)), nil
	}

	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.FileAttr(&res.Attr)
	return enc.Bytes(), nil
}

// handleSetAttr applies a partial attribute update, optionally guarded by
// the object's current ctime.
// RFC 1813 Section 3.3.2
func handleSetAttr(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	handle, err := dec.Handle("object")
	if err != nil {
		return nil, err
	}
	attr, err := dec.SetAttr()
	if err != nil {
		return nil, err
	}

	args := &vfs.SetAttrArgs{Handle: handle, Attr: attr}
	guarded, err := dec.Bool("guard check")
	if err != nil {
		return nil, err
	}
	if guarded {
		ctime, err := dec.Time("guard ctime")
		if err != nil {
			return nil, err
		}
		args.Guard = &vfs.GuardCtime{Ctime: ctime.Unix(), Nsec: uint32(ctime.Nanosecond())}
	}

	res, err := d.SetAttr(ctx, args)
	if err != nil {
		return statusWcc(StatusFromError(err)), nil
	}

	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.WccData(res.Before, res.After)
	return enc.Bytes(), nil
}

// handleAccess checks access permissions for the caller.
// RFC 1813 Section 3.3.4
func handleAccess(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	handle, err := dec.Handle("object")
	if err != nil {
		return nil, err
	}
	check, err := dec.Uint32("access")
	if err != nil {
		return nil, err
	}

	res, err := d.Access(ctx, &vfs.AccessArgs{Handle: handle, Check: check})
	if err != nil {
		return statusPostOp(StatusFromError(err)), nil
	}

	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.PostOpAttr(res.Attr)
	enc.Uint32(res.Granted)
	return enc.Bytes(), nil
}
