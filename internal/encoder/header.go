// header.go: Compacted entry tag byte and record type constants
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package encoder

// EntryType identifies what follows a compacted record's header byte.
type EntryType uint8

const (
	EntryInvalid      EntryType = 0
	EntryLogMsg       EntryType = 1
	EntryCheckpoint   EntryType = 2
	EntryBufferChange EntryType = 3
)

// CompressedHeader is the 1-byte tag that precedes every log_msg record:
// a 2-bit entry type, a 2-bit count of extra site-id delta bytes beyond
// the first, and a 3-bit count of extra timestamp delta bytes.
type CompressedHeader uint8

func MakeLogMsgHeader(fmtExtraBytes, tsExtraBytes int) CompressedHeader {
	return CompressedHeader(uint8(EntryLogMsg) | uint8(fmtExtraBytes-1)<<2 | uint8(tsExtraBytes-1)<<4)
}

func (h CompressedHeader) EntryType() EntryType {
	return EntryType(h & 0x3)
}

func (h CompressedHeader) FmtIDExtraBytes() int {
	return int((h>>2)&0x3) + 1
}

func (h CompressedHeader) TSExtraBytes() int {
	return int((h>>4)&0x7) + 1
}

// Checkpoint is the uncompressed resynchronization anchor written at
// file creation and whenever the consumer wants to re-anchor the
// delta-encoded stream.
type Checkpoint struct {
	Timestamp       uint64
	WallTimeNanos   int64
	TicksPerSecond  float64
	RelativePointer uint64
	WideCharWidth   uint8
}

// EntryDictionaryBatch is the sentinel byte the consumer writes
// immediately before a streamed dictionary batch (a registry-serialized
// record count, its FormatMetadata records, and their xxhash checksum).
// It deliberately shares EntryInvalid's low 2 bits — a FormatMetadata
// record has no type tag of its own, so this marker has to live in the
// same "not a tagged data record" family a decoder already checks first
// — but its nonzero upper bits keep it from ever being mistaken for
// literal pad (0x00) or for any byte a log_msg/checkpoint/buffer_change
// header can produce.
const EntryDictionaryBatch byte = 0x04

// BufferChangeShortFormInlineMax is the largest producer id that fits in
// the marker's one-byte inline form. A buffer-change header byte is laid
// out as entry_type:2 | wrap:1 | short_form:1 | code_or_reserved:4; when
// short_form is set, a single inline byte carrying the producer id
// follows. When it is clear, code_or_reserved holds the pack code for an
// extended id and that many bytes follow, packed via the scalar packer.
const BufferChangeShortFormInlineMax = 255
