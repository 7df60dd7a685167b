package nfs

import (
	"context"

	"github.com/driftfs/driftfs/internal/protocol/nfs/xdr"
	"github.com/driftfs/driftfs/pkg/vfs"
)

// handleRemove removes a file.
// RFC 1813 Section 3.3.12
func handleRemove(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	dir, err := dec.Handle("dir")
	if err != nil {
		return nil, err
	}
	name, err := dec.Name("name")
	if err != nil {
		return nil, err
	}

	res, err := d.Remove(ctx, &vfs.RemoveArgs{Dir: dir, Name: name})
	if err != nil {
		return statusWcc(StatusFromError(err)), nil
	}

	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.WccData(res.DirBefore, res.DirAfter)
	return enc.Bytes(), nil
}

// handleRmdir removes a directory.
// RFC 1813 Section 3.3.13
func handleRmdir(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	dir, err := dec.Handle("dir")
	if err != nil {
		return nil, err
	}
	name, err := dec.Name("name")
	if err != nil {
		return nil, err
	}

	res, err := d.Rmdir(ctx, &vfs.RmdirArgs{Dir: dir, Name: name})
	if err != nil {
		return statusWcc(StatusFromError(err)), nil
	}

	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.WccData(res.DirBefore, res.DirAfter)
	return enc.Bytes(), nil
}

// handleRename renames an entry across directories on the same filesystem.
// RFC 1813 Section 3.3.14
func handleRename(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	fromDir, err := dec.Handle("from dir")
	if err != nil {
		return nil, err
	}
	fromName, err := dec.Name("from name")
	if err != nil {
		return nil, err
	}
	toDir, err := dec.Handle("to dir")
	if err != nil {
		return nil, err
	}
	toName, err := dec.Name("to name")
	if err != nil {
		return nil, err
	}

	res, err := d.Rename(ctx, &vfs.RenameArgs{
		FromDir:  fromDir,
		FromName: fromName,
		ToDir:    toDir,
		ToName:   toName,
	})
	if err != nil {
		return statusWccPair(StatusFromError(err)), nil
	}

	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.WccData(res.FromBefore, res.FromAfter)
	enc.WccData(res.ToBefore, res.ToAfter)
	return enc.Bytes(), nil
}

// handleLink creates a hard link.
// RFC 1813 Section 3.3.15
func handleLink(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	handle, err := dec.Handle("file")
	if err != nil {
		return nil, err
	}
	dir, err := dec.Handle("link dir")
	if err != nil {
		return nil, err
	}
	name, err := dec.Name("link name")
	if err != nil {
		return nil, err
	}

	res, err := d.Link(ctx, &vfs.LinkArgs{Handle: handle, Dir: dir, Name: name})
	if err != nil {
		return statusPostOpWcc(StatusFromError(err)), nil
	}

	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.PostOpAttr(res.Attr)
	enc.WccData(res.DirBefore, res.DirAfter)
	return enc.Bytes(), nil
}
