package nfs

import "github.com/driftfs/driftfs/internal/protocol/nfs/xdr"

// Failure-variant result bodies. Per RFC 1813, most procedures return
// consistency data even on failure; when the operation never reached the
// object the optional attributes are simply marked absent, which every
// client accepts.

// statusOnly encodes a bare status (GETATTR failure shape).
func statusOnly(status uint32) []byte {
	enc := xdr.NewEncoder()
	enc.Uint32(status)
	return enc.Bytes()
}

// statusPostOp encodes status followed by an absent post_op_attr.
func statusPostOp(status uint32) []byte {
	enc := xdr.NewEncoder()
	enc.Uint32(status)
	enc.PostOpAttr(nil)
	return enc.Bytes()
}

// statusWcc encodes status followed by an absent wcc_data.
func statusWcc(status uint32) []byte {
	enc := xdr.NewEncoder()
	enc.Uint32(status)
	enc.WccData(nil, nil)
	return enc.Bytes()
}

// statusWccPair encodes status followed by two absent wcc_data (RENAME
// failure shape).
func statusWccPair(status uint32) []byte {
	enc := xdr.NewEncoder()
	enc.Uint32(status)
	enc.WccData(nil, nil)
	enc.WccData(nil, nil)
	return enc.Bytes()
}

// statusPostOpWcc encodes status, absent post_op_attr, absent wcc_data
// (LINK failure shape).
func statusPostOpWcc(status uint32) []byte {
	enc := xdr.NewEncoder()
	enc.Uint32(status)
	enc.PostOpAttr(nil)
	enc.WccData(nil, nil)
	return enc.Bytes()
}
