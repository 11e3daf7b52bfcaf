// pack_test.go: Round-trip and minimality properties for the variable-byte packer
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pack

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint64RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 255, 256, 1 << 16, 1<<24 - 1, 1 << 32, 1<<48 + 7, math.MaxUint64}
	for _, v := range values {
		var buf [8]byte
		code := Uint64(buf[:], v)
		got, n := UnpackUint64(buf[:], uint8(code))
		require.Equal(t, v, got, "value %d", v)
		require.Equal(t, code, n)
	}
}

func TestUint64Minimality(t *testing.T) {
	cases := map[uint64]int{
		0:        0,
		1:        1,
		255:      1,
		256:      2,
		1<<16 - 1: 2,
		1 << 16:  3,
		1<<24 - 1: 3,
		1 << 24:  4,
		1 << 32:  5,
		1 << 40:  6,
		1 << 48:  7,
		1 << 56:  8,
	}
	for v, want := range cases {
		var buf [8]byte
		got := Uint64(buf[:], v)
		require.Equal(t, want, got, "value %d", v)
	}
}

func TestInt64RoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 127, -127, 1 << 20, -(1 << 20), math.MinInt64, math.MaxInt64}
	for _, v := range values {
		var buf [8]byte
		code := Int64(buf[:], v)
		got, n := UnpackInt64(buf[:], uint8(code))
		require.Equal(t, v, got, "value %d", v)
		require.Equal(t, ConsumedBytes(uint8(code)), n)
	}
}

// TestPackerSpotCheck pins down a known value: 0xF23456789012 packs to the
// 6-byte little-endian stream 12 90 78 56 34 F2 with pack code 6.
func TestPackerSpotCheck(t *testing.T) {
	var buf [8]byte
	code := Uint64(buf[:], 0xF23456789012)
	require.Equal(t, 6, code)
	require.Equal(t, []byte{0x12, 0x90, 0x78, 0x56, 0x34, 0xF2}, buf[:6])

	got, n := UnpackUint64(buf[:6], 6)
	require.Equal(t, uint64(0xF23456789012), got)
	require.Equal(t, 6, n)
}

func TestFloat64RoundTrip(t *testing.T) {
	values := []float64{0, 1.5, -1.5, math.Pi, math.Inf(1), math.Inf(-1)}
	for _, v := range values {
		var buf [8]byte
		code := Float64(buf[:], v)
		require.Equal(t, MaxScalarBytes, code)
		got, _ := UnpackFloat64(buf[:], uint8(code))
		require.Equal(t, v, got)
	}
}

func TestFloat32RoundTrip(t *testing.T) {
	var buf [4]byte
	code := Float32(buf[:], float32(3.25))
	require.Equal(t, 4, code)
	got, _ := UnpackFloat32(buf[:], uint8(code))
	require.Equal(t, float32(3.25), got)
}

func TestPointerRoundTrip(t *testing.T) {
	var buf [8]byte
	addr := uint64(0x00007ffeefbff5a0)
	code := Pointer(buf[:], addr)
	got, _ := UnpackPointer(buf[:], uint8(code))
	require.Equal(t, addr, got)
}

func TestNibbleTable(t *testing.T) {
	table := make([]byte, NibbleTableBytes(5))
	codes := []uint8{0, 3, 8, 15, 1}
	for i, c := range codes {
		SetNibble(table, i, c)
	}
	for i, c := range codes {
		require.Equal(t, c, GetNibble(table, i), "nibble %d", i)
	}
}
