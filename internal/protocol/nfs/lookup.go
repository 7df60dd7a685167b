package nfs

import (
	"context"

	"github.com/driftfs/driftfs/internal/protocol/nfs/xdr"
	"github.com/driftfs/driftfs/pkg/vfs"
)

// handleLookup resolves a name within a directory to a handle.
// RFC 1813 Section 3.3.3
func handleLookup(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	dir, err := dec.Handle("dir")
	if err != nil {
		return nil, err
	}
	name, err := dec.Name("name")
	if err != nil {
		return nil, err
	}

	res, err := d.Lookup(ctx, &vfs.LookupArgs{Dir: dir, Name: name})
	if err != nil {
		return statusPostOp(StatusFromError(err)), nil
	}

	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.Handle(res.Handle)
	enc.PostOpAttr(res.Attr)
	enc.PostOpAttr(res.DirAttr)
	return enc.Bytes(), nil
}

// handleReadLink reads a symbolic link's target.
// RFC 1813 Section 3.3.5
func handleReadLink(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	handle, err := dec.Handle("symlink")
	if err != nil {
		return nil, err
	}

	res, err := d.ReadLink(ctx, &vfs.ReadLinkArgs{Handle: handle})
	if err != nil {
		return statusPostOp(StatusFromError(err)), nil
	}

	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.PostOpAttr(res.Attr)
	enc.String(res.Target)
	return enc.Bytes(), nil
}
