// delta.go: Minimal-width signed/unsigned deltas for entry headers
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package encoder

import "encoding/binary"

// maxFmtIDDeltaBytes and maxTimestampDeltaBytes are the widest a delta
// can be given the header's 2-bit and 3-bit extra-byte-count fields.
const (
	maxFmtIDDeltaBytes     = 4
	maxTimestampDeltaBytes = 8
)

// signedDeltaWidth returns the smallest w in [1, maxFmtIDDeltaBytes]
// bytes whose two's-complement range holds delta, clamping to the
// widest representable width if delta is pathologically large (site
// ids are dense small integers in practice, so this never triggers).
func signedDeltaWidth(delta int64) int {
	for w := 1; w < maxFmtIDDeltaBytes; w++ {
		bits := uint(8 * w)
		lo := -(int64(1) << (bits - 1))
		hi := (int64(1) << (bits - 1)) - 1
		if delta >= lo && delta <= hi {
			return w
		}
	}
	return maxFmtIDDeltaBytes
}

// unsignedDeltaWidth returns the smallest w in [1, maxTimestampDeltaBytes]
// bytes that hold delta.
func unsignedDeltaWidth(delta uint64) int {
	w := 1
	for w < maxTimestampDeltaBytes && delta >= uint64(1)<<(8*w) {
		w++
	}
	return w
}

func putSignedDelta(dst []byte, delta int64, width int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(delta))
	copy(dst, buf[:width])
}

func readSignedDelta(src []byte, width int) int64 {
	var buf [8]byte
	copy(buf[:width], src[:width])
	if width < 8 && buf[width-1]&0x80 != 0 {
		for i := width; i < 8; i++ {
			buf[i] = 0xFF
		}
	}
	return int64(binary.LittleEndian.Uint64(buf[:]))
}

// DecodeLogMsgHeader reads a log_msg record's header byte plus its
// delta-compressed site-id and timestamp fields from src, applying them
// against last's running anchors. It returns the reconstructed site id,
// timestamp, and the number of bytes consumed (including the header
// byte itself) so the caller can advance past the record's fixed
// portion to the nibble table.
func DecodeLogMsgHeader(src []byte, lastSiteID uint32, lastTimestamp uint64) (siteID uint32, timestamp uint64, consumed int) {
	header := CompressedHeader(src[0])
	fmtWidth := header.FmtIDExtraBytes()
	tsWidth := header.TSExtraBytes()

	cursor := 1
	fmtDelta := readSignedDelta(src[cursor:], fmtWidth)
	cursor += fmtWidth

	tsDelta := readUnsignedDelta(src[cursor:], tsWidth)
	cursor += tsWidth

	siteID = uint32(int64(lastSiteID) + fmtDelta)
	timestamp = lastTimestamp + tsDelta
	return siteID, timestamp, cursor
}

func putUnsignedDelta(dst []byte, delta uint64, width int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], delta)
	copy(dst, buf[:width])
}

func readUnsignedDelta(src []byte, width int) uint64 {
	var buf [8]byte
	copy(buf[:width], src[:width])
	return binary.LittleEndian.Uint64(buf[:])
}
