package nfs

import (
	"encoding/hex"
	"fmt"

	"github.com/driftfs/driftfs/internal/protocol/nfs/xdr"
	"github.com/driftfs/driftfs/pkg/vfs"
)

// Argument formatters for sampled trace events. Each decodes from its own
// reader over the payload, so running one never disturbs the handler's
// decode. Malformed payloads format as "<garbage>" - the handler reports the
// actual failure.

// handlePrefixLen bounds how much of a file handle appears in summaries.
const handlePrefixLen = 8

func shortHandle(h vfs.Handle) string {
	if len(h) > handlePrefixLen {
		return hex.EncodeToString(h[:handlePrefixLen]) + ".."
	}
	return hex.EncodeToString(h)
}

func formatNoArgs(data []byte) string {
	return ""
}

func formatHandleArg(data []byte) string {
	dec := xdr.NewDecoder(data)
	handle, err := dec.Handle("handle")
	if err != nil {
		return "<garbage>"
	}
	return fmt.Sprintf("handle=%s", shortHandle(handle))
}

func formatDirOpArgs(data []byte) string {
	dec := xdr.NewDecoder(data)
	dir, err := dec.Handle("dir")
	if err != nil {
		return "<garbage>"
	}
	name, err := dec.Name("name")
	if err != nil {
		return "<garbage>"
	}
	return fmt.Sprintf("dir=%s name=%q", shortHandle(dir), name)
}

func formatReadArgs(data []byte) string {
	dec := xdr.NewDecoder(data)
	handle, err := dec.Handle("handle")
	if err != nil {
		return "<garbage>"
	}
	offset, err := dec.Uint64("offset")
	if err != nil {
		return "<garbage>"
	}
	count, err := dec.Uint32("count")
	if err != nil {
		return "<garbage>"
	}
	return fmt.Sprintf("handle=%s offset=%d count=%d", shortHandle(handle), offset, count)
}

func formatWriteArgs(data []byte) string {
	dec := xdr.NewDecoder(data)
	handle, err := dec.Handle("handle")
	if err != nil {
		return "<garbage>"
	}
	offset, err := dec.Uint64("offset")
	if err != nil {
		return "<garbage>"
	}
	count, err := dec.Uint32("count")
	if err != nil {
		return "<garbage>"
	}
	stable, err := dec.Uint32("stable")
	if err != nil {
		return "<garbage>"
	}
	return fmt.Sprintf("handle=%s offset=%d count=%d stable=%d", shortHandle(handle), offset, count, stable)
}

func formatRenameArgs(data []byte) string {
	dec := xdr.NewDecoder(data)
	fromDir, err := dec.Handle("from dir")
	if err != nil {
		return "<garbage>"
	}
	fromName, err := dec.Name("from name")
	if err != nil {
		return "<garbage>"
	}
	toDir, err := dec.Handle("to dir")
	if err != nil {
		return "<garbage>"
	}
	toName, err := dec.Name("to name")
	if err != nil {
		return "<garbage>"
	}
	return fmt.Sprintf("from=%s/%q to=%s/%q", shortHandle(fromDir), fromName, shortHandle(toDir), toName)
}
