package nfs

import (
	"context"

	"github.com/driftfs/driftfs/internal/protocol/nfs/xdr"
	"github.com/driftfs/driftfs/pkg/vfs"
)

// handleFSStat reports dynamic filesystem usage.
// RFC 1813 Section 3.3.18
func handleFSStat(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	handle, err := dec.Handle("root")
	if err != nil {
		return nil, err
	}

	res, err := d.FSStat(ctx, &vfs.FSStatArgs{Handle: handle})
	if err != nil {
		return statusPostOp(StatusFromError(err)), nil
	}

	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.PostOpAttr(res.Attr)
	enc.Uint64(res.TotalBytes)
	enc.Uint64(res.FreeBytes)
	enc.Uint64(res.AvailBytes)
	enc.Uint64(res.TotalFiles)
	enc.Uint64(res.FreeFiles)
	enc.Uint64(res.AvailFiles)
	enc.Uint32(res.Invarsec)
	return enc.Bytes(), nil
}

// handleFSInfo reports static filesystem capabilities.
// RFC 1813 Section 3.3.19
func handleFSInfo(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	handle, err := dec.Handle("root")
	if err != nil {
		return nil, err
	}

	res, err := d.FSInfo(ctx, &vfs.FSInfoArgs{Handle: handle})
	if err != nil {
		return statusPostOp(StatusFromError(err)), nil
	}

	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.PostOpAttr(res.Attr)
	enc.Uint32(res.ReadMax)
	enc.Uint32(res.ReadPref)
	enc.Uint32(res.ReadMult)
	enc.Uint32(res.WriteMax)
	enc.Uint32(res.WritePref)
	enc.Uint32(res.WriteMult)
	enc.Uint32(res.DirPref)
	enc.Uint64(res.MaxFileSz)
	// time_delta as nfstime3
	enc.Uint32(0)
	enc.Uint32(res.TimeDelta)
	enc.Uint32(res.Properties)
	return enc.Bytes(), nil
}

// handlePathConf reports POSIX pathconf limits.
// RFC 1813 Section 3.3.20
func handlePathConf(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	handle, err := dec.Handle("object")
	if err != nil {
		return nil, err
	}

	res, err := d.PathConf(ctx, &vfs.PathConfArgs{Handle: handle})
	if err != nil {
		return statusPostOp(StatusFromError(err)), nil
	}

	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.PostOpAttr(res.Attr)
	enc.Uint32(res.LinkMax)
	enc.Uint32(res.NameMax)
	enc.Bool(res.NoTrunc)
	enc.Bool(res.ChownRestricted)
	enc.Bool(res.CaseInsensitive)
	enc.Bool(res.CasePreserving)
	return enc.Bytes(), nil
}
