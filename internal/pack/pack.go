// pack.go: Variable-byte packer for scalar log arguments
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package pack implements the variable-byte encoding used to compact
// integer, float, and pointer arguments down to the minimum number of
// bytes that represents them, plus a 4-bit "pack code" the decoder needs
// to know how many bytes to read back.
//
// This mirrors BufferUtils::pack/unpack from the original NanoLog runtime
// (Runtime/Packer.h): unsigned values use the smallest k in {0..8} bytes
// that hold them, signed values that are "sufficiently negative" encode
// their negated magnitude and set the nibble's high bit, and floats are
// always written bit-exact at their native width.
package pack

import (
	"encoding/binary"
	"math"
)

// MaxScalarBytes is the widest an encoded scalar can be.
const MaxScalarBytes = 8

// NegatedBit marks a pack code as carrying a negated magnitude rather
// than the value itself.
const NegatedBit = 8

// Uint64 writes val into dst using the smallest number of little-endian
// bytes that represent it (0 bytes for the value 0) and returns that byte
// count as the pack code. dst must have at least MaxScalarBytes of space.
func Uint64(dst []byte, val uint64) int {
	n := byteWidth(val)
	putUintLE(dst, val, n)
	return n
}

// byteWidth returns the smallest k in {0..8} such that val fits in k
// little-endian bytes.
func byteWidth(val uint64) int {
	switch {
	case val == 0:
		return 0
	case val < 1<<8:
		return 1
	case val < 1<<16:
		return 2
	case val < 1<<24:
		return 3
	case val < 1<<32:
		return 4
	case val < 1<<40:
		return 5
	case val < 1<<48:
		return 6
	case val < 1<<56:
		return 7
	default:
		return 8
	}
}

func putUintLE(dst []byte, val uint64, n int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], val)
	copy(dst, buf[:n])
}

// Int64 packs a signed value. Nonnegative values (or values negative
// enough that the magnitude needs the full 8 bytes anyway) are packed as
// unsigned; otherwise the negated magnitude is packed and the pack code
// is offset by NegatedBit.
func Int64(dst []byte, val int64) int {
	if val >= 0 {
		return Uint64(dst, uint64(val))
	}

	mag := uint64(-val)
	if byteWidth(mag) >= MaxScalarBytes {
		// No space is saved representing a negated 8-byte magnitude, so
		// fall back to encoding the two's complement bit pattern directly.
		return Uint64(dst, uint64(val))
	}
	return NegatedBit + Uint64(dst, mag)
}

// Float64 writes a float64 bit-exact in 8 bytes and returns its pack
// code (always 8 — floats never take the variable-width path).
func Float64(dst []byte, val float64) int {
	binary.LittleEndian.PutUint64(dst, math.Float64bits(val))
	return MaxScalarBytes
}

// Float32 writes a float32 bit-exact in 4 bytes and returns its pack
// code (always 4).
func Float32(dst []byte, val float32) int {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(val))
	return 4
}

// Pointer packs the 64-bit address underlying a pointer-typed argument.
// Callers that want ASLR-robust replay should rebase against the
// checkpoint's relative pointer before calling this — Pointer itself only
// does the raw unsigned pack.
func Pointer(dst []byte, addr uint64) int {
	return Uint64(dst, addr)
}

// UnpackUint64 reads back a value encoded with a given pack code. code
// must be in [0, 8]; codes with the NegatedBit set are not valid here —
// use UnpackInt64 for those.
func UnpackUint64(src []byte, code uint8) (uint64, int) {
	if code == 0 {
		return 0, 0
	}
	n := int(code)
	var buf [8]byte
	copy(buf[:n], src[:n])
	return binary.LittleEndian.Uint64(buf[:]), n
}

// UnpackInt64 reads back a value encoded by Int64, whose codes span
// [0, 15]; codes 9-15 are negated magnitudes.
func UnpackInt64(src []byte, code uint8) (int64, int) {
	if code <= MaxScalarBytes {
		v, n := UnpackUint64(src, code)
		return int64(v), n
	}
	mag, n := UnpackUint64(src, code-NegatedBit)
	return -int64(mag), n
}

// UnpackFloat64 reads a bit-exact float64. code is expected to be 8; a
// code of 0 yields 0.0, matching the original's handling of an elided
// zero-valued float.
func UnpackFloat64(src []byte, code uint8) (float64, int) {
	if code == 0 {
		return 0, 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(src)), int(code)
}

// UnpackFloat32 reads a bit-exact float32.
func UnpackFloat32(src []byte, code uint8) (float32, int) {
	if code == 0 {
		return 0, 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(src)), int(code)
}

// UnpackPointer reads back a packed pointer address.
func UnpackPointer(src []byte, code uint8) (uint64, int) {
	return UnpackUint64(src, code)
}

// ConsumedBytes returns how many raw bytes a pack code occupies on the
// wire, without decoding the value. Negated codes (9-15) occupy
// code-NegatedBit bytes, same as their unsigned counterpart.
func ConsumedBytes(code uint8) int {
	if code == 0 {
		return 0
	}
	if code <= MaxScalarBytes {
		return int(code)
	}
	return int(code - NegatedBit)
}
