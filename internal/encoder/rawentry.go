// rawentry.go: Layout of a raw, uncompacted entry as written by a producer
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package encoder

import "encoding/binary"

// RawHeaderSize is the fixed size of a raw entry's header: site_id (u32),
// timestamp (u64), entry_size (u32).
const RawHeaderSize = 4 + 8 + 4

// RawScalarWidth is the fixed width every non-string argument occupies
// in a raw entry, regardless of its native type. Using one width for
// every scalar kind (rather than the original's per-type template
// specialization) keeps raw-entry parsing branch-free; ArgKind tells
// the compactor how to interpret the 8 bytes.
const RawScalarWidth = 8

// PutRawHeader writes a raw entry's fixed header at the front of dst.
func PutRawHeader(dst []byte, siteID uint32, timestamp uint64, entrySize uint32) {
	binary.LittleEndian.PutUint32(dst[0:4], siteID)
	binary.LittleEndian.PutUint64(dst[4:12], timestamp)
	binary.LittleEndian.PutUint32(dst[12:16], entrySize)
}

// RawHeader is the decoded form of a raw entry's header.
type RawHeader struct {
	SiteID    uint32
	Timestamp uint64
	EntrySize uint32
}

// ReadRawHeader parses a raw entry's fixed header.
func ReadRawHeader(src []byte) RawHeader {
	return RawHeader{
		SiteID:    binary.LittleEndian.Uint32(src[0:4]),
		Timestamp: binary.LittleEndian.Uint64(src[4:12]),
		EntrySize: binary.LittleEndian.Uint32(src[12:16]),
	}
}

// PutRawScalar writes an 8-byte scalar slot, bit-preserving regardless
// of kind (the caller already converted floats via math.Float64bits).
func PutRawScalar(dst []byte, bits uint64) {
	binary.LittleEndian.PutUint64(dst, bits)
}

// RawScalar reads back an 8-byte scalar slot.
func RawScalar(src []byte) uint64 {
	return binary.LittleEndian.Uint64(src)
}

// PutRawStringHeader writes a string argument's length prefix.
func PutRawStringHeader(dst []byte, length uint32) {
	binary.LittleEndian.PutUint32(dst, length)
}

// RawStringLength reads a string argument's length prefix.
func RawStringLength(src []byte) uint32 {
	return binary.LittleEndian.Uint32(src)
}
