package nfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/internal/protocol/nfs/xdr"
	"github.com/driftfs/driftfs/pkg/vfs"
)

// ============================================================================
// Procedure Table Tests
// ============================================================================

func TestProcTableIsDense(t *testing.T) {
	// Every procedure number 0..21 must resolve to a fully populated entry.
	for procedure := uint32(0); procedure < ProcedureCount; procedure++ {
		entry := LookupProc(procedure)
		require.NotNil(t, entry, "procedure %d has no table entry", procedure)
		assert.NotEmpty(t, entry.Name)
		assert.NotNil(t, entry.Handler, "%s has no handler", entry.Name)
		assert.NotNil(t, entry.FormatArgs, "%s has no formatter", entry.Name)
	}
}

func TestLookupProcOutOfRange(t *testing.T) {
	assert.Nil(t, LookupProc(ProcedureCount))
	assert.Nil(t, LookupProc(1<<31))
}

func TestProcNames(t *testing.T) {
	names := ProcNames()
	require.Len(t, names, int(ProcedureCount))
	assert.Equal(t, "NULL", names[ProcNull])
	assert.Equal(t, "GETATTR", names[ProcGetAttr])
	assert.Equal(t, "COMMIT", names[ProcCommit])
}

func TestSampleGroupIntervals(t *testing.T) {
	assert.Equal(t, uint64(1), SampleAlways.Interval())
	assert.Equal(t, uint64(64), SampleCommon.Interval())
	assert.Equal(t, uint64(256), SampleBulk.Interval())

	// Data-path procedures are sampled sparsely; mutations always.
	assert.Equal(t, SampleBulk, LookupProc(ProcRead).Sampling)
	assert.Equal(t, SampleBulk, LookupProc(ProcWrite).Sampling)
	assert.Equal(t, SampleAlways, LookupProc(ProcRename).Sampling)
}

// ============================================================================
// Argument Formatter Tests
// ============================================================================

func TestArgumentFormatters(t *testing.T) {
	handle := vfs.Handle{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A}

	t.Run("HandleArg", func(t *testing.T) {
		enc := xdr.NewEncoder()
		enc.Opaque(handle)
		// Long handles are truncated to a hex prefix.
		assert.Equal(t, "handle=0102030405060708..", formatHandleArg(enc.Bytes()))
	})

	t.Run("ShortHandleNotTruncated", func(t *testing.T) {
		enc := xdr.NewEncoder()
		enc.Opaque(handle[:4])
		assert.Equal(t, "handle=01020304", formatHandleArg(enc.Bytes()))
	})

	t.Run("DirOpArgs", func(t *testing.T) {
		enc := xdr.NewEncoder()
		enc.Opaque(handle[:4])
		enc.String("file.txt")
		assert.Equal(t, `dir=01020304 name="file.txt"`, formatDirOpArgs(enc.Bytes()))
	})

	t.Run("ReadArgs", func(t *testing.T) {
		enc := xdr.NewEncoder()
		enc.Opaque(handle[:4])
		enc.Uint64(8192)
		enc.Uint32(4096)
		assert.Equal(t, "handle=01020304 offset=8192 count=4096", formatReadArgs(enc.Bytes()))
	})

	t.Run("WriteArgs", func(t *testing.T) {
		enc := xdr.NewEncoder()
		enc.Opaque(handle[:4])
		enc.Uint64(0)
		enc.Uint32(512)
		enc.Uint32(uint32(vfs.FileSync))
		assert.Equal(t, "handle=01020304 offset=0 count=512 stable=2", formatWriteArgs(enc.Bytes()))
	})

	t.Run("RenameArgs", func(t *testing.T) {
		enc := xdr.NewEncoder()
		enc.Opaque(handle[:2])
		enc.String("a")
		enc.Opaque(handle[2:4])
		enc.String("b")
		assert.Equal(t, `from=0102/"a" to=0304/"b"`, formatRenameArgs(enc.Bytes()))
	})

	t.Run("GarbageIsContained", func(t *testing.T) {
		for procedure := uint32(ProcGetAttr); procedure < ProcedureCount; procedure++ {
			entry := LookupProc(procedure)
			assert.Equal(t, "<garbage>", entry.FormatArgs([]byte{0xFF}),
				"%s formatter must not fail on malformed input", entry.Name)
		}
	})

	t.Run("NullHasNoSummary", func(t *testing.T) {
		assert.Empty(t, formatNoArgs(nil))
	})
}
