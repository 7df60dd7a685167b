package rpc

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Record marking per RFC 5531 Section 11: every RPC message on a stream
// transport is preceded by a 4-byte big-endian header whose high bit flags
// the last fragment and whose low 31 bits carry the fragment length.
//
// This server only speaks single-fragment records. Every NFS client in
// practice sends one fragment per message; a record whose first fragment is
// not marked last is treated as a protocol violation fatal to that message.

const (
	// lastFragmentBit flags the final fragment of a record.
	lastFragmentBit = 0x80000000

	// fragmentLengthMask extracts the 31-bit fragment length.
	fragmentLengthMask = 0x7FFFFFFF

	// MaxFragmentSize bounds accepted fragments to keep a malicious length
	// field from exhausting memory. NFS messages are far smaller; the READ
	// and WRITE transfer sizes advertised by FSINFO fit comfortably.
	MaxFragmentSize = 1 << 20
)

// ErrFragmentedRecord reports a record whose first fragment is not marked
// last. Multi-fragment records are unsupported.
var ErrFragmentedRecord = errors.New("multi-fragment record not supported")

// ErrFragmentTooLarge reports a fragment whose declared length exceeds
// MaxFragmentSize.
var ErrFragmentTooLarge = errors.New("fragment exceeds maximum size")

// RecordBuffer reassembles record-marked messages from stream reads.
//
// Feed raw bytes with Append as they arrive; Next yields one complete
// message payload at a time and leaves partial data buffered. A RecordBuffer
// belongs to a single connection's read loop and is not safe for concurrent
// use.
type RecordBuffer struct {
	buf []byte

	// discarding is set after a multi-fragment record is rejected; the
	// remaining fragments of that record are consumed and dropped so the
	// next record parses cleanly.
	discarding bool
}

// Append adds raw stream bytes to the buffer.
func (b *RecordBuffer) Append(p []byte) {
	b.buf = append(b.buf, p...)
}

// Buffered returns the number of bytes waiting to be parsed.
func (b *RecordBuffer) Buffered() int {
	return len(b.buf)
}

// Next returns the next complete message payload, or (nil, false, nil) when
// more stream bytes are needed.
//
// A zero-length payload is legal and returned as an empty non-nil slice.
//
// A record whose first fragment is not marked last yields
// ErrFragmentedRecord once; that record's remaining fragments are consumed
// and discarded so parsing of later records on the same stream is
// unaffected. An oversized length yields ErrFragmentTooLarge, which is
// unrecoverable: the length field cannot be trusted, so the connection must
// be torn down.
func (b *RecordBuffer) Next() ([]byte, bool, error) {
	for {
		if len(b.buf) < 4 {
			return nil, false, nil
		}

		header := binary.BigEndian.Uint32(b.buf[:4])
		length := header & fragmentLengthMask
		last := header&lastFragmentBit != 0

		if length > MaxFragmentSize {
			return nil, false, fmt.Errorf("fragment of %d bytes: %w", length, ErrFragmentTooLarge)
		}

		total := 4 + int(length)
		if len(b.buf) < total {
			return nil, false, nil
		}

		if b.discarding {
			b.buf = b.buf[total:]
			if last {
				b.discarding = false
			}
			continue
		}

		if !last {
			b.buf = b.buf[total:]
			b.discarding = true
			return nil, false, fmt.Errorf("fragment of %d bytes: %w", length, ErrFragmentedRecord)
		}

		payload := make([]byte, length)
		copy(payload, b.buf[4:total])
		b.buf = b.buf[total:]

		return payload, true, nil
	}
}

// MarshalRecord frames a message payload with a record-marking header. The
// last-fragment bit is always set.
func MarshalRecord(payload []byte) []byte {
	framed := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(framed, lastFragmentBit|uint32(len(payload)))
	copy(framed[4:], payload)
	return framed
}
