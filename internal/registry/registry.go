// registry.go: Process-wide site metadata table
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package registry assigns every distinct log call site a dense,
// process-unique id and holds its immutable metadata: the format
// string, source location, severity, and the argument-type vector the
// encoder needs to dispatch packing. Ids are never reused, and a site's
// metadata never changes after registration — the registry is the
// dictionary the decoder reads to make sense of the compacted stream.
package registry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// ParamType classifies one parameter of a log call's format string.
type ParamType uint8

const (
	// NonString is a fixed-width scalar or pointer argument.
	NonString ParamType = iota
	// DynamicWidth supplies a width for a later specifier.
	DynamicWidth
	// DynamicPrecision supplies a precision for a later specifier.
	DynamicPrecision
	// StringNoPrecision is a string argument emitted at full length.
	StringNoPrecision
	// StringDynamicPrecision truncates to the precision most recently
	// seen from a DynamicPrecision argument in the same entry.
	StringDynamicPrecision
	// StringFixedPrecision truncates to a precision fixed at
	// registration time (spec's STRING(n)).
	StringFixedPrecision
)

// IsString reports whether this parameter contributes a length-prefixed
// byte string to the raw entry, as opposed to a fixed-width scalar.
func (p ParamType) IsString() bool {
	switch p {
	case StringNoPrecision, StringDynamicPrecision, StringFixedPrecision:
		return true
	default:
		return false
	}
}

// RequiresNibble reports whether this parameter consumes a pack-code
// nibble (every non-string argument does; strings never do).
func (p ParamType) RequiresNibble() bool {
	return !p.IsString()
}

// Fragment is one contiguous run of literal text between two argument
// specifiers in a format string, paired with the type of the argument
// that follows it (if any).
type Fragment struct {
	ArgType             ParamType
	ArgKind             ArgKind // meaningful only when ArgType is non-string
	HasDynamicWidth     bool
	HasDynamicPrecision bool
	FixedPrecision      uint32
	Text                string
}

// ArgKind tells the compactor how to interpret a non-string argument's
// raw 8-byte slot: which pack.* function to apply and, for the decoder,
// how to format the unpacked result.
type ArgKind uint8

const (
	KindInt64 ArgKind = iota
	KindUint64
	KindFloat64
	KindFloat32
	KindPointer
)

// SiteMetadata is the immutable record created the first time a log
// call site is registered.
type SiteMetadata struct {
	SiteID     uint32
	Format     string
	File       string
	Line       uint32
	Severity   uint8
	ParamTypes []ParamType
	ArgKinds   []ArgKind // parallel to ParamTypes; meaningless for string entries
	Fragments  []Fragment
	NumNibbles int
}

// Registry is the process-wide site_id -> SiteMetadata table. It is safe
// for concurrent use by many producer goroutines registering sites
// concurrently with the consumer reading them back.
type Registry struct {
	mu    sync.RWMutex
	sites []*SiteMetadata // index i holds site id i+1
	next  uint32
}

// New returns an empty registry. Site id 0 is reserved for "unassigned"
// and is never handed out.
func New() *Registry {
	return &Registry{}
}

// Register assigns the next dense site id to meta and stores it. meta.SiteID
// is overwritten with the assigned id.
func (r *Registry) Register(meta *SiteMetadata) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := atomic.AddUint32(&r.next, 1)
	meta.SiteID = id
	for _, pt := range meta.ParamTypes {
		if pt.RequiresNibble() {
			meta.NumNibbles++
		}
	}
	r.sites = append(r.sites, meta)
	return id
}

// Lookup returns the metadata for siteID, or nil if siteID is 0 or was
// never registered.
func (r *Registry) Lookup(siteID uint32) *SiteMetadata {
	if siteID == 0 {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := int(siteID) - 1
	if idx < 0 || idx >= len(r.sites) {
		return nil
	}
	return r.sites[idx]
}

// Count returns the number of registered sites.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sites)
}

// SerializeDictionary writes a FormatMetadata + PrintFragment record for
// every registered site, in ascending site-id order, followed by an
// xxhash-64 checksum of those records (not of the leading record count
// SerializeSince writes ahead of them). The decoder uses the
// checksum to detect a truncated or corrupted dictionary before trusting
// any site's metadata.
func (r *Registry) SerializeDictionary(w *bytes.Buffer) error {
	_, err := r.SerializeSince(0, w)
	return err
}

// SerializeSince writes a batch header (a u32 record count), a
// FormatMetadata record for every site registered at or after index
// from, and an xxhash-64 checksum of the records (not the count),
// returning the registry's current site count. A consumer that has
// already written sites[0:from] calls this again whenever the registry
// grows, so a dictionary can be streamed incrementally instead of
// requiring every site to exist before the first record is written. The
// leading count lets a reader with no other side-channel (the decoder,
// running in a separate process) know exactly how many FormatMetadata
// records to parse before it reaches the checksum — a FormatMetadata
// record has no type tag of its own to distinguish it from a checkpoint
// or buffer-change record otherwise.
func (r *Registry) SerializeSince(from int, w *bytes.Buffer) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	batch := r.sites[from:]
	if err := binary.Write(w, binary.LittleEndian, uint32(len(batch))); err != nil {
		return from, err
	}

	start := w.Len()
	for _, meta := range batch {
		if err := writeFormatMetadata(w, meta); err != nil {
			return from, fmt.Errorf("registry: site %d: %w", meta.SiteID, err)
		}
	}

	sum := xxhash.Sum64(w.Bytes()[start:])
	if err := binary.Write(w, binary.LittleEndian, sum); err != nil {
		return from, err
	}
	return len(r.sites), nil
}

func writeFormatMetadata(w *bytes.Buffer, meta *SiteMetadata) error {
	header := struct {
		NumNibbles   uint8
		NumFragments uint8
		LogLevel     uint8
		Line         uint32
		FilenameLen  uint16
	}{
		NumNibbles:   uint8(meta.NumNibbles),
		NumFragments: uint8(len(meta.Fragments)),
		LogLevel:     meta.Severity,
		Line:         meta.Line,
		FilenameLen:  uint16(len(meta.File)),
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	w.WriteString(meta.File)
	w.WriteByte(0)

	for _, frag := range meta.Fragments {
		fragHeader := struct {
			ArgType             uint8
			ArgKind             uint8
			HasDynamicWidth     bool
			HasDynamicPrecision bool
			FragmentLength      uint32
		}{
			ArgType:             uint8(frag.ArgType),
			ArgKind:             uint8(frag.ArgKind),
			HasDynamicWidth:     frag.HasDynamicWidth,
			HasDynamicPrecision: frag.HasDynamicPrecision,
			FragmentLength:      uint32(len(frag.Text)),
		}
		if err := binary.Write(w, binary.LittleEndian, fragHeader); err != nil {
			return err
		}
		w.WriteString(frag.Text)
		w.WriteByte(0)
	}
	return nil
}
