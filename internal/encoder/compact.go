// compact.go: Consumer-side compaction of raw ring entries
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package encoder turns the raw, uncompacted entries a producer wrote
// into a ring into the compact on-disk record format: a 1-byte header
// carrying delta-compressed site id and timestamp, a nibble table of
// pack codes, the packed scalar bytes, and NUL-terminated strings. It
// also knows how to emit the two other record kinds a log file
// contains — checkpoints and buffer-change markers — and the matching
// decode side used by the decoder package.
package encoder

import (
	"bytes"
	"errors"
	"math"

	"github.com/agilira/nanolog/internal/pack"
	"github.com/agilira/nanolog/internal/registry"
)

// ErrUnknownSite is returned when a raw entry names a site id the
// registry has no record of. The caller should skip EntrySize raw
// bytes and count this as a malformed-entry error.
var ErrUnknownSite = errors.New("encoder: unknown site id")

// ErrWouldOverflow names the condition of an entry not fitting in a
// bounded output buffer. EncodeEntry never returns it: it writes into a
// bytes.Buffer, which grows as needed, and the consumer has no
// flush-and-retry path for it.
var ErrWouldOverflow = errors.New("encoder: output buffer would overflow")

// Encoder holds the running delta-compression state for one output
// stream. It is not safe for concurrent use; the consumer owns exactly
// one per logger.
type Encoder struct {
	lastSiteID    uint32
	lastTimestamp uint64
}

// New returns an Encoder ready to compact the first entry of a fresh
// (or freshly checkpointed) stream.
func New() *Encoder {
	return &Encoder{}
}

// ResetAnchors re-anchors delta compression, used right after writing a
// checkpoint record.
func (e *Encoder) ResetAnchors() {
	e.lastSiteID = 0
	e.lastTimestamp = 0
}

// EncodeEntry compacts one raw entry from raw[0:] into out, returning
// the number of raw bytes consumed (always header.EntrySize once
// lookup succeeds). If the site id is unknown the entry is considered
// consumed (the caller should still skip EntrySize bytes) and
// ErrUnknownSite is returned alongside that count.
func (e *Encoder) EncodeEntry(reg *registry.Registry, raw []byte, out *bytes.Buffer) (uint32, error) {
	hdr := ReadRawHeader(raw)

	meta := reg.Lookup(hdr.SiteID)
	if meta == nil {
		return hdr.EntrySize, ErrUnknownSite
	}

	fmtDelta := int64(hdr.SiteID) - int64(e.lastSiteID)
	fmtWidth := signedDeltaWidth(fmtDelta)

	tsDelta := hdr.Timestamp - e.lastTimestamp
	tsWidth := unsignedDeltaWidth(tsDelta)

	header := MakeLogMsgHeader(fmtWidth, tsWidth)
	out.WriteByte(byte(header))

	var deltaBuf [8]byte
	putSignedDelta(deltaBuf[:], fmtDelta, fmtWidth)
	out.Write(deltaBuf[:fmtWidth])

	putUnsignedDelta(deltaBuf[:], tsDelta, tsWidth)
	out.Write(deltaBuf[:tsWidth])

	nibbleTableStart := out.Len()
	nibbleBytes := pack.NibbleTableBytes(meta.NumNibbles)
	out.Write(make([]byte, nibbleBytes))
	nibbleTable := out.Bytes()[nibbleTableStart : nibbleTableStart+nibbleBytes]

	cursor := RawHeaderSize
	nibbleIdx := 0
	dynPrecision := uint32(0)
	var scratch [pack.MaxScalarBytes]byte

	// Pass 1: pack every non-string scalar, skip string payloads.
	stringCursors := make([]int, 0, len(meta.ParamTypes))
	for i, pt := range meta.ParamTypes {
		if pt.IsString() {
			length := RawStringLength(raw[cursor:])
			stringCursors = append(stringCursors, cursor)
			cursor += 4 + int(length)
			continue
		}

		bits := RawScalar(raw[cursor:])
		cursor += RawScalarWidth

		var code int
		switch meta.ArgKinds[i] {
		case registry.KindFloat64:
			code = pack.Float64(scratch[:], math.Float64frombits(bits))
			out.Write(scratch[:code])
		case registry.KindFloat32:
			code = pack.Float32(scratch[:], float32(math.Float64frombits(bits)))
			out.Write(scratch[:code])
		case registry.KindPointer:
			code = pack.Pointer(scratch[:], bits)
			out.Write(scratch[:code])
		case registry.KindInt64:
			code = pack.Int64(scratch[:], int64(bits))
			out.Write(scratch[:pack.ConsumedBytes(uint8(code))])
		default: // KindUint64
			code = pack.Uint64(scratch[:], bits)
			out.Write(scratch[:code])
		}

		if pt == registry.DynamicPrecision {
			dynPrecision = uint32(bits)
		}

		pack.SetNibble(nibbleTable, nibbleIdx, uint8(code))
		nibbleIdx++
	}

	// Pass 2: strings, trimmed to their effective length, NUL-terminated.
	si := 0
	for i, pt := range meta.ParamTypes {
		if !pt.IsString() {
			continue
		}
		sc := stringCursors[si]
		si++
		length := RawStringLength(raw[sc:])
		data := raw[sc+4 : sc+4+int(length)]

		var fixedPrecision uint32
		if i < len(meta.Fragments) {
			fixedPrecision = meta.Fragments[i].FixedPrecision
		}

		effective := effectiveStringLength(pt, length, dynPrecision, fixedPrecision)
		out.Write(data[:effective])
		out.WriteByte(0)
	}

	e.lastSiteID = hdr.SiteID
	e.lastTimestamp = hdr.Timestamp

	return hdr.EntrySize, nil
}

// effectiveStringLength implements the truncation rules a string
// argument is subject to based on its static ParamType.
func effectiveStringLength(pt registry.ParamType, rawLen uint32, dynPrecision uint32, fixedPrecision uint32) uint32 {
	switch pt {
	case registry.StringNoPrecision:
		return rawLen
	case registry.StringDynamicPrecision:
		if dynPrecision < rawLen {
			return dynPrecision
		}
		return rawLen
	case registry.StringFixedPrecision:
		if fixedPrecision < rawLen {
			return fixedPrecision
		}
		return rawLen
	default:
		return rawLen
	}
}

// EncodeCheckpoint writes an uncompressed resynchronization anchor and
// resets this encoder's delta state, matching the "checkpoint resets
// last_site_id/last_timestamp" rule the decoder depends on.
func (e *Encoder) EncodeCheckpoint(out *bytes.Buffer, cp Checkpoint) {
	out.WriteByte(byte(EntryCheckpoint))

	var buf [8]byte
	putLE64(buf[:], cp.Timestamp)
	out.Write(buf[:])
	putLE64(buf[:], uint64(cp.WallTimeNanos))
	out.Write(buf[:])
	putLE64(buf[:], math.Float64bits(cp.TicksPerSecond))
	out.Write(buf[:])
	putLE64(buf[:], cp.RelativePointer)
	out.Write(buf[:])
	out.WriteByte(cp.WideCharWidth)

	e.ResetAnchors()
}

// EncodeBufferChange emits the marker the decoder uses to correlate
// subsequent entries with a producer ring. wrapped is set when the
// consumer's scan index has passed zero since the previous marker.
func EncodeBufferChange(out *bytes.Buffer, producerID uint32, wrapped bool) {
	var wrapBit byte
	if wrapped {
		wrapBit = 1
	}

	if producerID <= BufferChangeShortFormInlineMax {
		header := byte(EntryBufferChange) | wrapBit<<2 | 1<<3
		out.WriteByte(header)
		out.WriteByte(byte(producerID))
		return
	}

	var scratch [pack.MaxScalarBytes]byte
	code := pack.Uint64(scratch[:], uint64(producerID))
	header := byte(EntryBufferChange) | wrapBit<<2 | byte(code)<<4
	out.WriteByte(header)
	out.Write(scratch[:code])
}

// DecodeBufferChangeHeader reads back a buffer-change marker's flags
// from its header byte.
func DecodeBufferChangeHeader(header byte) (wrapped bool, shortForm bool, extendedCode uint8) {
	wrapped = header&(1<<2) != 0
	shortForm = header&(1<<3) != 0
	extendedCode = (header >> 4) & 0xF
	return
}

func putLE64(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}
