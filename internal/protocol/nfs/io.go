package nfs

import (
	"context"

	"github.com/driftfs/driftfs/internal/protocol/nfs/xdr"
	"github.com/driftfs/driftfs/pkg/vfs"
)

// maxWriteSize bounds a single WRITE payload. Matches the transfer sizes
// advertised through FSINFO by typical cores; larger writes would not fit
// the record cap anyway.
const maxWriteSize = 1 << 20

// handleRead reads a byte range from a file.
// RFC 1813 Section 3.3.6
func handleRead(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	handle, err := dec.Handle("file")
	if err != nil {
		return nil, err
	}
	offset, err := dec.Uint64("offset")
	if err != nil {
		return nil, err
	}
	count, err := dec.Uint32("count")
	if err != nil {
		return nil, err
	}

	res, err := d.Read(ctx, &vfs.ReadArgs{Handle: handle, Offset: offset, Count: count})
	if err != nil {
		return statusPostOp(StatusFromError(err)), nil
	}

	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.PostOpAttr(res.Attr)
	enc.Uint32(res.Count)
	enc.Bool(res.EOF)
	enc.Opaque(res.Data)
	return enc.Bytes(), nil
}

// handleWrite writes a byte range to a file.
// RFC 1813 Section 3.3.7
func handleWrite(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	handle, err := dec.Handle("file")
	if err != nil {
		return nil, err
	}
	offset, err := dec.Uint64("offset")
	if err != nil {
		return nil, err
	}
	count, err := dec.Uint32("count")
	if err != nil {
		return nil, err
	}
	stable, err := dec.Uint32("stable")
	if err != nil {
		return nil, err
	}
	payload, err := dec.Opaque("data", maxWriteSize)
	if err != nil {
		return nil, err
	}

	// The count field and the opaque length are redundant on the wire;
	// trust the opaque but cap it at count per RFC 1813.
	if uint32(len(payload)) > count {
		payload = payload[:count]
	}

	res, err := d.Write(ctx, &vfs.WriteArgs{
		Handle: handle,
		Offset: offset,
		Stable: vfs.StableHow(stable),
		Data:   payload,
	})
	if err != nil {
		return statusWcc(StatusFromError(err)), nil
	}

	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.WccData(res.Before, res.After)
	enc.Uint32(res.Count)
	enc.Uint32(uint32(res.Committed))
	enc.Uint64(res.Verifier)
	return enc.Bytes(), nil
}

// handleCommit flushes previously unstable writes to stable storage.
// RFC 1813 Section 3.3.21
func handleCommit(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	handle, err := dec.Handle("file")
	if err != nil {
		return nil, err
	}
	offset, err := dec.Uint64("offset")
	if err != nil {
		return nil, err
	}
	count, err := dec.Uint32("count")
	if err != nil {
		return nil, err
	}

	res, err := d.Commit(ctx, &vfs.CommitArgs{Handle: handle, Offset: offset, Count: count})
	if err != nil {
		return statusWcc(StatusFromError(err)), nil
	}

	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.WccData(res.Before, res.After)
	enc.Uint64(res.Verifier)
	return enc.Bytes(), nil
}
