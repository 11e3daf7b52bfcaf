// compact_test.go: Delta header and full entry-compaction round trips
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package encoder

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agilira/nanolog/internal/pack"
	"github.com/agilira/nanolog/internal/registry"
)

func TestCompressedHeaderRoundTrip(t *testing.T) {
	h := MakeLogMsgHeader(3, 5)
	require.Equal(t, EntryLogMsg, h.EntryType())
	require.Equal(t, 3, h.FmtIDExtraBytes())
	require.Equal(t, 5, h.TSExtraBytes())
}

func TestSignedDeltaRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 127, -128, 1000, -70000, 1 << 20}
	for _, v := range values {
		w := signedDeltaWidth(v)
		buf := make([]byte, w)
		putSignedDelta(buf, v, w)
		got := readSignedDelta(buf, w)
		require.Equal(t, v, got, "value %d width %d", v, w)
	}
}

func TestUnsignedDeltaRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 255, 256, 1 << 20, 1 << 40}
	for _, v := range values {
		w := unsignedDeltaWidth(v)
		buf := make([]byte, w)
		putUnsignedDelta(buf, v, w)
		got := readUnsignedDelta(buf, w)
		require.Equal(t, v, got)
	}
}

func TestEncodeEntryUnknownSite(t *testing.T) {
	reg := registry.New()
	e := New()

	raw := make([]byte, RawHeaderSize)
	PutRawHeader(raw, 99, 1000, uint32(RawHeaderSize))

	var out bytes.Buffer
	n, err := e.EncodeEntry(reg, raw, &out)
	require.ErrorIs(t, err, ErrUnknownSite)
	require.Equal(t, uint32(RawHeaderSize), n)
}

func TestEncodeEntryScalarsAndStrings(t *testing.T) {
	reg := registry.New()
	id := reg.Register(&registry.SiteMetadata{
		Format:     "count=%d name=%s",
		ParamTypes: []registry.ParamType{registry.NonString, registry.StringNoPrecision},
		ArgKinds:   []registry.ArgKind{registry.KindInt64, 0},
	})

	entrySize := RawHeaderSize + RawScalarWidth + 4 + len("hello")
	raw := make([]byte, entrySize)
	PutRawHeader(raw, id, 5000, uint32(entrySize))
	PutRawScalar(raw[RawHeaderSize:], uint64(int64(-42)))
	PutRawStringHeader(raw[RawHeaderSize+RawScalarWidth:], uint32(len("hello")))
	copy(raw[RawHeaderSize+RawScalarWidth+4:], "hello")

	e := New()
	var out bytes.Buffer
	n, err := e.EncodeEntry(reg, raw, &out)
	require.NoError(t, err)
	require.Equal(t, uint32(entrySize), n)

	body := out.Bytes()
	require.Greater(t, len(body), 0)

	header := CompressedHeader(body[0])
	require.Equal(t, EntryLogMsg, header.EntryType())

	cursor := 1 + header.FmtIDExtraBytes() + header.TSExtraBytes()
	nibbleBytes := pack.NibbleTableBytes(1)
	nibbleTable := body[cursor : cursor+nibbleBytes]
	code := pack.GetNibble(nibbleTable, 0)
	cursor += nibbleBytes

	scalarLen := pack.ConsumedBytes(code)
	got, _ := pack.UnpackInt64(body[cursor:cursor+scalarLen], code)
	require.Equal(t, int64(-42), got)
	cursor += scalarLen

	nulIdx := bytes.IndexByte(body[cursor:], 0)
	require.GreaterOrEqual(t, nulIdx, 0)
	require.Equal(t, "hello", string(body[cursor:cursor+nulIdx]))
}

func TestEncodeEntryTruncatesFixedPrecisionString(t *testing.T) {
	reg := registry.New()
	id := reg.Register(&registry.SiteMetadata{
		Format:     "tag=%.3s",
		ParamTypes: []registry.ParamType{registry.StringFixedPrecision},
		ArgKinds:   []registry.ArgKind{0},
		Fragments:  []registry.Fragment{{ArgType: registry.StringFixedPrecision, FixedPrecision: 3}},
	})

	entrySize := RawHeaderSize + 4 + len("hello")
	raw := make([]byte, entrySize)
	PutRawHeader(raw, id, 1000, uint32(entrySize))
	PutRawStringHeader(raw[RawHeaderSize:], uint32(len("hello")))
	copy(raw[RawHeaderSize+4:], "hello")

	e := New()
	var out bytes.Buffer
	_, err := e.EncodeEntry(reg, raw, &out)
	require.NoError(t, err)

	body := out.Bytes()
	header := CompressedHeader(body[0])
	cursor := 1 + header.FmtIDExtraBytes() + header.TSExtraBytes()
	cursor += pack.NibbleTableBytes(0)

	nulIdx := bytes.IndexByte(body[cursor:], 0)
	require.Equal(t, "hel", string(body[cursor:cursor+nulIdx]))
}

func TestEncodeCheckpointResetsAnchors(t *testing.T) {
	reg := registry.New()
	id := reg.Register(&registry.SiteMetadata{
		Format:     "x=%d",
		ParamTypes: []registry.ParamType{registry.NonString},
		ArgKinds:   []registry.ArgKind{registry.KindUint64},
	})

	e := New()
	entrySize := RawHeaderSize + RawScalarWidth
	raw := make([]byte, entrySize)
	PutRawHeader(raw, id, 9000, uint32(entrySize))
	PutRawScalar(raw[RawHeaderSize:], 7)

	var out bytes.Buffer
	_, err := e.EncodeEntry(reg, raw, &out)
	require.NoError(t, err)
	require.Equal(t, uint32(id), e.lastSiteID)

	e.EncodeCheckpoint(&out, Checkpoint{Timestamp: 9000, TicksPerSecond: 1e9})
	require.Equal(t, uint32(0), e.lastSiteID)
	require.Equal(t, uint64(0), e.lastTimestamp)
}

func TestEncodeBufferChangeShortAndExtendedForms(t *testing.T) {
	var out bytes.Buffer
	EncodeBufferChange(&out, 10, true)
	wrapped, shortForm, _ := DecodeBufferChangeHeader(out.Bytes()[0])
	require.True(t, wrapped)
	require.True(t, shortForm)
	require.Equal(t, byte(10), out.Bytes()[1])

	out.Reset()
	EncodeBufferChange(&out, 100000, false)
	wrapped, shortForm, code := DecodeBufferChangeHeader(out.Bytes()[0])
	require.False(t, wrapped)
	require.False(t, shortForm)
	got, _ := pack.UnpackUint64(out.Bytes()[1:], code)
	require.Equal(t, uint64(100000), got)
}
