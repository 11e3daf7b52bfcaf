// decoder.go: Sequential reader and state machine for a nanolog file
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package decoder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/s2"

	"github.com/agilira/nanolog/internal/encoder"
	"github.com/agilira/nanolog/internal/pack"
)

// State is the decoder's position in its dispatch state machine.
type State int

const (
	// NeedDictionary is the initial state: the stream tag byte has
	// been read but no dictionary batch has been seen yet.
	NeedDictionary State = iota
	// InRecords is the steady state: the decoder has a checkpoint to
	// anchor timestamps against and is dispatching log_msg,
	// buffer_change, and interleaved dictionary-batch+checkpoint pairs.
	InRecords
	// AwaitingCheckpoint means a dictionary batch was just read and a
	// checkpoint record is expected immediately after it.
	AwaitingCheckpoint
	// Errored is terminal: the decoder hit ErrMalformed and gave up
	// resynchronizing.
	Errored
)

const (
	plainStreamTag      byte = 0
	compressedStreamTag byte = 1
)

// Decoder reads one nanolog binary file sequentially, maintaining the
// running dictionary and delta-compression anchors a fresh consumer
// would build up from scratch.
type Decoder struct {
	r     *bufio.Reader
	close func() error

	state State
	dict  *Dictionary

	lastSiteID    uint32
	lastTimestamp uint64
	checkpoint    Checkpoint

	activeProducer uint32
	invalidRun     int
}

// Open opens path and returns a Decoder ready to read its stream tag
// and dictionary.
func Open(path string) (*Decoder, error) {
	// #nosec G304 -- path is an operator-supplied CLI argument, not untrusted input
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decoder: open %s: %w", path, err)
	}
	d, err := NewDecoder(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	d.close = f.Close
	return d, nil
}

// NewDecoder wraps r, reading the leading stream tag byte to determine
// whether the rest of the stream is s2-block-compressed.
func NewDecoder(r io.Reader) (*Decoder, error) {
	br := bufio.NewReaderSize(r, 1<<16)

	tag, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("decoder: read stream tag: %w", err)
	}

	var body *bufio.Reader
	switch tag {
	case plainStreamTag:
		body = br
	case compressedStreamTag:
		body = bufio.NewReaderSize(s2.NewReader(br), 1<<16)
	default:
		return nil, fmt.Errorf("%w: unrecognized stream tag %d", ErrMalformed, tag)
	}

	return &Decoder{
		r:     body,
		dict:  newDictionary(),
		state: NeedDictionary,
	}, nil
}

// Close releases the underlying file, if Open opened one.
func (d *Decoder) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}

// Dictionary returns the decoder's current site table. It grows as
// further interleaved dictionary batches are read.
func (d *Decoder) Dictionary() *Dictionary {
	return d.dict
}

// Next reads and returns the next record: *LogMessage, *BufferChange,
// or *Checkpoint. It returns io.EOF on a clean end of stream, and
// ErrMalformed (wrapped) if the stream cannot be resynchronized.
func (d *Decoder) Next() (interface{}, error) {
	for {
		if d.state == Errored {
			return nil, ErrMalformed
		}

		tagByte, err := d.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("decoder: read tag: %w", err)
		}

		switch {
		case tagByte == encoder.EntryDictionaryBatch:
			if err := d.dict.readDictionaryBatch(d.r); err != nil {
				d.state = Errored
				return nil, err
			}
			d.invalidRun = 0
			d.state = AwaitingCheckpoint
			continue

		case tagByte&0x3 == uint8(encoder.EntryCheckpoint):
			cp, err := d.readCheckpointBody()
			if err != nil {
				d.state = Errored
				return nil, err
			}
			d.lastSiteID = 0
			d.lastTimestamp = 0
			d.checkpoint = cp
			d.invalidRun = 0
			d.state = InRecords
			return &cp, nil

		case tagByte&0x3 == uint8(encoder.EntryLogMsg):
			msg, err := d.readLogMessage(tagByte)
			if err != nil {
				d.state = Errored
				return nil, err
			}
			d.invalidRun = 0
			return msg, nil

		case tagByte&0x3 == uint8(encoder.EntryBufferChange):
			bc, err := d.readBufferChange(tagByte)
			if err != nil {
				d.state = Errored
				return nil, err
			}
			d.invalidRun = 0
			d.activeProducer = bc.ProducerID
			return bc, nil

		default: // tagByte&0x3 == 0: either literal pad or truly invalid
			if tagByte == 0 {
				continue
			}
			d.invalidRun++
			if d.invalidRun > maxConsecutiveInvalidBytes {
				d.state = Errored
				return nil, fmt.Errorf("%w: too many consecutive invalid tag bytes (last 0x%02x)", ErrMalformed, tagByte)
			}
			continue
		}
	}
}

func (d *Decoder) readCheckpointBody() (Checkpoint, error) {
	var raw [33]byte
	if _, err := io.ReadFull(d.r, raw[:]); err != nil {
		return Checkpoint{}, fmt.Errorf("%w: truncated checkpoint: %v", ErrMalformed, err)
	}

	cp := encoder.Checkpoint{
		Timestamp:       binary.LittleEndian.Uint64(raw[0:8]),
		WallTimeNanos:   int64(binary.LittleEndian.Uint64(raw[8:16])),
		TicksPerSecond:  math.Float64frombits(binary.LittleEndian.Uint64(raw[16:24])),
		RelativePointer: binary.LittleEndian.Uint64(raw[24:32]),
		WideCharWidth:   raw[32],
	}
	return checkpointFromWire(cp), nil
}

func (d *Decoder) readLogMessage(tagByte byte) (*LogMessage, error) {
	var headerBuf [1 + 4 + 8]byte
	headerBuf[0] = tagByte

	header := encoder.CompressedHeader(tagByte)
	deltaLen := header.FmtIDExtraBytes() + header.TSExtraBytes()
	if _, err := io.ReadFull(d.r, headerBuf[1:1+deltaLen]); err != nil {
		return nil, fmt.Errorf("%w: truncated log_msg header: %v", ErrMalformed, err)
	}

	siteID, timestamp, consumed := encoder.DecodeLogMsgHeader(headerBuf[:1+deltaLen], d.lastSiteID, d.lastTimestamp)
	_ = consumed

	info := d.dict.Lookup(siteID)
	if info == nil {
		return nil, fmt.Errorf("%w: site id %d", ErrUnknownSite, siteID)
	}

	// Read enough of the argument area to decode this one entry. The
	// nibble table length is known; scalar and string lengths are not
	// known up front, so pull from the buffered reader incrementally
	// via Peek, growing the window only as far as unpackAndRender
	// needs.
	text, n, err := decodeArgsFromReader(d.r, info)
	if err != nil {
		return nil, err
	}
	_ = n

	d.lastSiteID = siteID
	d.lastTimestamp = timestamp

	return &LogMessage{
		SiteID:    siteID,
		Timestamp: timestamp,
		WallTime:  wallTimeFor(timestamp, d.checkpoint),
		Severity:  info.Severity,
		File:      info.File,
		Line:      info.Line,
		Text:      text,
	}, nil
}

// decodeArgsFromReader buffers progressively larger windows of r until
// unpackAndRender succeeds or the underlying reader is exhausted. A
// compacted entry's exact byte length depends on its pack codes and
// string contents, which are only known once decoded, so there is no
// fixed-size read to issue up front — this mirrors the encoder writing
// directly into a growable buffer rather than a pre-sized one.
func decodeArgsFromReader(r *bufio.Reader, info *SiteInfo) (string, int, error) {
	window := 64
	for {
		peeked, _ := r.Peek(window)
		text, n, err := unpackAndRender(info, peeked)
		if err == nil {
			if _, discardErr := r.Discard(n); discardErr != nil {
				return "", 0, fmt.Errorf("%w: %v", ErrMalformed, discardErr)
			}
			return text, n, nil
		}
		if len(peeked) < window {
			// The reader is exhausted and decoding still failed: this
			// entry is genuinely truncated.
			return "", 0, fmt.Errorf("%w: truncated log_msg body: %v", ErrMalformed, err)
		}
		window *= 2
	}
}

func (d *Decoder) readBufferChange(tagByte byte) (*BufferChange, error) {
	wrapped, shortForm, code := encoder.DecodeBufferChangeHeader(tagByte)

	if shortForm {
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated buffer_change id: %v", ErrMalformed, err)
		}
		return &BufferChange{ProducerID: uint32(b), Wrapped: wrapped}, nil
	}

	n := int(code)
	if n == 0 {
		return &BufferChange{ProducerID: 0, Wrapped: wrapped}, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, fmt.Errorf("%w: truncated extended buffer_change id: %v", ErrMalformed, err)
	}
	id, _ := pack.UnpackUint64(buf, code)
	return &BufferChange{ProducerID: uint32(id), Wrapped: wrapped}, nil
}
