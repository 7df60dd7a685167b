// Package xdr implements the XDR field codec for NFS v3 argument and result
// structures (RFC 4506 encoding rules, RFC 1813 structures).
//
// Decoding happens from a byte slice owned by the caller; every failure is
// reported as a *DecodeError so the dispatch layer can distinguish malformed
// arguments (GARBAGE_ARGS) from server-side failures.
package xdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/driftfs/driftfs/pkg/vfs"
)

// DecodeError reports malformed argument bytes. The dispatch layer maps it
// to GARBAGE_ARGS rather than a server fault.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// maxOpaqueLength bounds variable-length fields so a malicious length prefix
// cannot force a huge allocation. WRITE data is the largest legitimate field
// and stays under the 1 MiB record cap.
const maxOpaqueLength = 1 << 20

// maxNameLength bounds path component names.
const maxNameLength = 4096

// Decoder reads XDR primitives from an argument payload.
//
// A Decoder is a cheap value tied to one payload; handlers create one per
// request. It never mutates the underlying bytes, so a second Decoder over
// the same payload (argument formatters do this) sees identical input.
type Decoder struct {
	r *bytes.Reader
}

// NewDecoder returns a Decoder positioned at the start of data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{r: bytes.NewReader(data)}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return d.r.Len()
}

func (d *Decoder) fail(field string, err error) *DecodeError {
	return &DecodeError{Field: field, Err: err}
}

// Uint32 reads a 4-byte big-endian unsigned integer.
func (d *Decoder) Uint32(field string) (uint32, error) {
	var v uint32
	if err := binary.Read(d.r, binary.BigEndian, &v); err != nil {
		return 0, d.fail(field, err)
	}
	return v, nil
}

// Uint64 reads an 8-byte big-endian unsigned integer.
func (d *Decoder) Uint64(field string) (uint64, error) {
	var v uint64
	if err := binary.Read(d.r, binary.BigEndian, &v); err != nil {
		return 0, d.fail(field, err)
	}
	return v, nil
}

// Bool reads an XDR boolean (uint32, 0 or 1).
func (d *Decoder) Bool(field string) (bool, error) {
	v, err := d.Uint32(field)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Opaque reads variable-length opaque data with its padding, enforcing max.
func (d *Decoder) Opaque(field string, max uint32) ([]byte, error) {
	length, err := d.Uint32(field + " length")
	if err != nil {
		return nil, err
	}
	if length > max {
		return nil, d.fail(field, fmt.Errorf("length %d exceeds maximum %d", length, max))
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(d.r, data); err != nil {
		return nil, d.fail(field, err)
	}

	padding := (4 - (length % 4)) % 4
	if padding > 0 {
		if _, err := io.CopyN(io.Discard, d.r, int64(padding)); err != nil {
			return nil, d.fail(field+" padding", err)
		}
	}
	return data, nil
}

// String reads an XDR string (opaque interpreted as UTF-8).
func (d *Decoder) String(field string, max uint32) (string, error) {
	data, err := d.Opaque(field, max)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Handle reads an nfs_fh3, enforcing the 64-byte handle limit.
func (d *Decoder) Handle(field string) (vfs.Handle, error) {
	data, err := d.Opaque(field, vfs.MaxHandleSize)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, d.fail(field, fmt.Errorf("empty file handle"))
	}
	return vfs.Handle(data), nil
}

// Name reads a path component (filename3).
func (d *Decoder) Name(field string) (string, error) {
	return d.String(field, maxNameLength)
}

// Time reads an nfstime3 (seconds + nanoseconds).
func (d *Decoder) Time(field string) (time.Time, error) {
	sec, err := d.Uint32(field + " seconds")
	if err != nil {
		return time.Time{}, err
	}
	nsec, err := d.Uint32(field + " nseconds")
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(sec), int64(nsec)), nil
}

// Set-time discriminants of sattr3 time fields (RFC 1813 Section 2.5.3).
const (
	dontChange      = 0
	setToServerTime = 1
	setToClientTime = 2
)

// SetAttr reads a full sattr3 structure. Absent fields come back as nil
// pointers; SET_TO_SERVER_TIME is reported through the boolean flags.
func (d *Decoder) SetAttr() (vfs.SetAttr, error) {
	var attr vfs.SetAttr

	if set, err := d.Bool("set_mode"); err != nil {
		return attr, err
	} else if set {
		mode, err := d.Uint32("mode")
		if err != nil {
			return attr, err
		}
		attr.Mode = &mode
	}

	if set, err := d.Bool("set_uid"); err != nil {
		return attr, err
	} else if set {
		uid, err := d.Uint32("uid")
		if err != nil {
			return attr, err
		}
		attr.UID = &uid
	}

	if set, err := d.Bool("set_gid"); err != nil {
		return attr, err
	} else if set {
		gid, err := d.Uint32("gid")
		if err != nil {
			return attr, err
		}
		attr.GID = &gid
	}

	if set, err := d.Bool("set_size"); err != nil {
		return attr, err
	} else if set {
		size, err := d.Uint64("size")
		if err != nil {
			return attr, err
		}
		attr.Size = &size
	}

	how, err := d.Uint32("set_atime")
	if err != nil {
		return attr, err
	}
	switch how {
	case setToServerTime:
		attr.SetAtimeToServer = true
	case setToClientTime:
		at, err := d.Time("atime")
		if err != nil {
			return attr, err
		}
		attr.Atime = &at
	}

	how, err = d.Uint32("set_mtime")
	if err != nil {
		return attr, err
	}
	switch how {
	case setToServerTime:
		attr.SetMtimeToServer = true
	case setToClientTime:
		mt, err := d.Time("mtime")
		if err != nil {
			return attr, err
		}
		attr.Mtime = &mt
	}

	return attr, nil
}
