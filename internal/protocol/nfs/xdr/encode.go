package xdr

import (
	"bytes"
	"encoding/binary"
	"time"
)

// Encoder builds XDR result payloads. Writes go to an in-memory buffer and
// cannot fail, which keeps handler encode paths free of error plumbing.
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns the encoded payload.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Len returns the number of bytes encoded so far.
func (e *Encoder) Len() int {
	return e.buf.Len()
}

// Uint32 writes a 4-byte big-endian unsigned integer.
func (e *Encoder) Uint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

// Uint64 writes an 8-byte big-endian unsigned integer.
func (e *Encoder) Uint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

// Bool writes an XDR boolean.
func (e *Encoder) Bool(v bool) {
	if v {
		e.Uint32(1)
	} else {
		e.Uint32(0)
	}
}

// Opaque writes variable-length opaque data with its length prefix and
// padding to a 4-byte boundary.
func (e *Encoder) Opaque(data []byte) {
	e.Uint32(uint32(len(data)))
	e.buf.Write(data)
	padding := (4 - (len(data) % 4)) % 4
	for i := 0; i < padding; i++ {
		e.buf.WriteByte(0)
	}
}

// String writes an XDR string.
func (e *Encoder) String(s string) {
	e.Opaque([]byte(s))
}

// Time writes an nfstime3 (seconds + nanoseconds).
func (e *Encoder) Time(t time.Time) {
	e.Uint32(uint32(t.Unix()))
	e.Uint32(uint32(t.Nanosecond()))
}
