// dictionary.go: Site metadata table rebuilt from a streamed dictionary
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package decoder

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/agilira/nanolog/internal/registry"
)

// SiteInfo is everything the decoder needs to unpack and render entries
// logged against one site: its severity, source location, and the
// fragment list the encoder's nibble table and string terminators were
// built against.
type SiteInfo struct {
	SiteID     uint32
	File       string
	Line       uint32
	Severity   uint8
	NumNibbles int
	Fragments  []registry.Fragment

	// argFragments is the prefix of Fragments that corresponds to a
	// real packed argument; a format string with no trailing literal
	// after its last specifier has argFragments == len(Fragments), and
	// one that ends in plain text (or has no specifiers at all) has
	// one extra Fragment holding only trailing text.
	argFragments int
}

// Dictionary is the decoder's in-memory mirror of a logger's site
// registry, rebuilt entirely from the wire format — it never shares
// state with a live registry.Registry.
type Dictionary struct {
	sites map[uint32]*SiteInfo
}

func newDictionary() *Dictionary {
	return &Dictionary{sites: make(map[uint32]*SiteInfo)}
}

// Lookup returns the site registered under id, or nil if the dictionary
// has no record of it — the decoder's equivalent of an unknown site id.
func (d *Dictionary) Lookup(id uint32) *SiteInfo {
	return d.sites[id]
}

// Len returns how many sites the dictionary currently holds.
func (d *Dictionary) Len() int {
	return len(d.sites)
}

// readDictionaryBatch parses one streamed dictionary batch — a u32
// record count, that many FormatMetadata+PrintFragment records, and a
// trailing xxhash-64 checksum over just the records — merging the
// result into d. It returns ErrMalformed if the checksum does not
// match, since a truncated or corrupted dictionary means every site id
// referenced by it is untrustworthy.
func (d *Dictionary) readDictionaryBatch(r io.Reader) error {
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return fmt.Errorf("decoder: read dictionary batch count: %w", err)
	}
	count := binary.LittleEndian.Uint32(countBuf[:])

	h := xxhash.New()
	tee := io.TeeReader(r, h)

	nextID := uint32(len(d.sites) + 1)
	infos := make([]*SiteInfo, 0, count)
	for i := uint32(0); i < count; i++ {
		info, err := readFormatMetadata(tee)
		if err != nil {
			return fmt.Errorf("decoder: dictionary record %d: %w", i, err)
		}
		info.SiteID = nextID + i
		infos = append(infos, info)
	}

	var wantSum uint64
	if err := binary.Read(r, binary.LittleEndian, &wantSum); err != nil {
		return fmt.Errorf("decoder: read dictionary checksum: %w", err)
	}
	if gotSum := h.Sum64(); count > 0 && gotSum != wantSum {
		return fmt.Errorf("%w: dictionary batch checksum mismatch", ErrMalformed)
	}

	for _, info := range infos {
		d.sites[info.SiteID] = info
	}
	return nil
}

func readFormatMetadata(r io.Reader) (*SiteInfo, error) {
	var header struct {
		NumNibbles   uint8
		NumFragments uint8
		LogLevel     uint8
		Line         uint32
		FilenameLen  uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read FormatMetadata header: %w", err)
	}

	file, err := readNulTerminated(r, int(header.FilenameLen))
	if err != nil {
		return nil, fmt.Errorf("read filename: %w", err)
	}

	fragments := make([]registry.Fragment, 0, header.NumFragments)
	for i := uint8(0); i < header.NumFragments; i++ {
		frag, err := readPrintFragment(r)
		if err != nil {
			return nil, fmt.Errorf("read PrintFragment %d: %w", i, err)
		}
		fragments = append(fragments, frag)
	}

	info := &SiteInfo{
		File:       file,
		Line:       header.Line,
		Severity:   header.LogLevel,
		NumNibbles: int(header.NumNibbles),
		Fragments:  fragments,
	}
	info.argFragments = countArgFragments(fragments, info.NumNibbles)
	return info, nil
}

func readPrintFragment(r io.Reader) (registry.Fragment, error) {
	var header struct {
		ArgType             uint8
		ArgKind             uint8
		HasDynamicWidth     bool
		HasDynamicPrecision bool
		FragmentLength      uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return registry.Fragment{}, err
	}

	text, err := readNulTerminated(r, int(header.FragmentLength))
	if err != nil {
		return registry.Fragment{}, err
	}

	return registry.Fragment{
		ArgType:             registry.ParamType(header.ArgType),
		ArgKind:             registry.ArgKind(header.ArgKind),
		HasDynamicWidth:     header.HasDynamicWidth,
		HasDynamicPrecision: header.HasDynamicPrecision,
		Text:                text,
	}, nil
}

// readNulTerminated reads exactly length content bytes followed by the
// single NUL byte the writer always appends, and returns the content.
func readNulTerminated(r io.Reader, length int) (string, error) {
	buf := make([]byte, length+1)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	if buf[length] != 0 {
		return "", fmt.Errorf("%w: missing NUL terminator", ErrMalformed)
	}
	return string(buf[:length]), nil
}

// countArgFragments returns how many of fragments actually precede a
// packed argument, versus a single dangling trailing-literal fragment
// the registration pass appends when the format string ends in plain
// text (or has no specifiers at all). Every real argument fragment is
// either string-typed or consumes one of numNibbles nibble slots; if
// the two don't already account for every fragment, the last one must
// be the trailing marker.
func countArgFragments(fragments []registry.Fragment, numNibbles int) int {
	if len(fragments) == 0 {
		return 0
	}

	stringFrags := 0
	for _, f := range fragments {
		if f.ArgType.IsString() {
			stringFrags++
		}
	}

	real := numNibbles + stringFrags
	if real >= len(fragments) {
		return len(fragments)
	}
	return real
}
