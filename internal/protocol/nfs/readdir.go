package nfs

import (
	"context"

	"github.com/driftfs/driftfs/internal/protocol/nfs/xdr"
	"github.com/driftfs/driftfs/pkg/vfs"
)

// dirReplyOverhead counts the fixed bytes of a READDIR/READDIRPLUS reply
// outside the entry list: status, post_op_attr with attributes present,
// cookie verifier, the final value-follows false and the EOF flag.
const dirReplyOverhead = 4 + (4 + fileAttrSize) + 8 + 4 + 4

// fileAttrSize is the wire size of a fattr3.
const fileAttrSize = 84

// entrySize returns the encoded size of one entry3.
func entrySize(e *vfs.DirEntry) int {
	return 4 + 8 + xdrOpaqueSize(len(e.Name)) + 8
}

// entryPlusSize returns the encoded size of one entryplus3.
func entryPlusSize(e *vfs.DirEntryPlus) int {
	size := entrySize(&e.DirEntry) + 4 + 4
	if e.Attr != nil {
		size += fileAttrSize
	}
	if len(e.Handle) > 0 {
		size += xdrOpaqueSize(len(e.Handle))
	}
	return size
}

// xdrOpaqueSize is the wire size of variable-length opaque data: length
// prefix plus payload padded to a 4-byte boundary.
func xdrOpaqueSize(n int) int {
	return 4 + ((n + 3) &^ 3)
}

// handleReadDir lists directory entries.
// RFC 1813 Section 3.3.16
//
// The entry list is trimmed to the client's count budget; a trimmed reply
// reports EOF false so the client continues from the last cookie. A budget
// too small for even the first entry is NFS3ERR_TOOSMALL.
func handleReadDir(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	dir, err := dec.Handle("dir")
	if err != nil {
		return nil, err
	}
	cookie, err := dec.Uint64("cookie")
	if err != nil {
		return nil, err
	}
	verifier, err := dec.Uint64("cookieverf")
	if err != nil {
		return nil, err
	}
	count, err := dec.Uint32("count")
	if err != nil {
		return nil, err
	}

	res, err := d.ReadDir(ctx, &vfs.ReadDirArgs{
		Dir:      dir,
		Cookie:   cookie,
		Verifier: verifier,
		Count:    count,
	})
	if err != nil {
		return statusPostOp(StatusFromError(err)), nil
	}

	budget := int(count) - dirReplyOverhead
	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.PostOpAttr(res.DirAttr)
	enc.Uint64(res.Verifier)

	eof := res.EOF
	used := 0
	for i := range res.Entries {
		entry := &res.Entries[i]
		size := entrySize(entry)
		if used+size > budget {
			if i == 0 {
				return statusPostOp(StatusErrTooSmall), nil
			}
			eof = false
			break
		}
		used += size

		enc.Bool(true)
		enc.Uint64(entry.FileID)
		enc.String(entry.Name)
		enc.Uint64(entry.Cookie)
	}
	enc.Bool(false)
	enc.Bool(eof)
	return enc.Bytes(), nil
}

// handleReadDirPlus lists directory entries with attributes and handles.
// RFC 1813 Section 3.3.17
//
// The dircount budget bounds the directory information alone (names and
// cookies); maxcount bounds the whole reply.
func handleReadDirPlus(ctx context.Context, d vfs.Dispatcher, data []byte) ([]byte, error) {
	dec := xdr.NewDecoder(data)
	dir, err := dec.Handle("dir")
	if err != nil {
		return nil, err
	}
	cookie, err := dec.Uint64("cookie")
	if err != nil {
		return nil, err
	}
	verifier, err := dec.Uint64("cookieverf")
	if err != nil {
		return nil, err
	}
	dirCount, err := dec.Uint32("dircount")
	if err != nil {
		return nil, err
	}
	maxCount, err := dec.Uint32("maxcount")
	if err != nil {
		return nil, err
	}

	res, err := d.ReadDirPlus(ctx, &vfs.ReadDirPlusArgs{
		Dir:      dir,
		Cookie:   cookie,
		Verifier: verifier,
		DirCount: dirCount,
		MaxCount: maxCount,
	})
	if err != nil {
		return statusPostOp(StatusFromError(err)), nil
	}

	dirBudget := int(dirCount)
	replyBudget := int(maxCount) - dirReplyOverhead
	enc := xdr.NewEncoder()
	enc.Uint32(StatusOK)
	enc.PostOpAttr(res.DirAttr)
	enc.Uint64(res.Verifier)

	eof := res.EOF
	dirUsed := 0
	replyUsed := 0
	for i := range res.Entries {
		entry := &res.Entries[i]
		dirSize := entrySize(&entry.DirEntry)
		replySize := entryPlusSize(entry)
		if dirUsed+dirSize > dirBudget || replyUsed+replySize > replyBudget {
			if i == 0 {
				return statusPostOp(StatusErrTooSmall), nil
			}
			eof = false
			break
		}
		dirUsed += dirSize
		replyUsed += replySize

		enc.Bool(true)
		enc.Uint64(entry.FileID)
		enc.String(entry.Name)
		enc.Uint64(entry.Cookie)
		enc.PostOpAttr(entry.Attr)
		enc.PostOpHandle(entry.Handle)
	}
	enc.Bool(false)
	enc.Bool(eof)
	return enc.Bytes(), nil
}
