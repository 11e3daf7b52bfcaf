// ring.go: Per-producer staging ring for raw log entries
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package ring implements the single-producer/single-consumer byte ring
// that sits between a logging call site and the background consumer
// goroutine. Each goroutine that logs gets its own Ring; producer and
// consumer sides never contend on the same cache line.
//
// The algorithm follows the original staging buffer design: the producer
// claims contiguous space with Reserve/Commit, and when the tail of the
// buffer doesn't have enough room it wraps by recording where the valid
// data ends (endOfRecordedSpace) and restarting at the front. The
// consumer's Peek/Consume pair mirrors that on read-out. All space
// checks are strict inequalities; producerPos and consumerPos are never
// allowed to become equal except when the ring is completely empty, so
// that state never has to be tracked separately from position.
package ring

import (
	"sync/atomic"

	"github.com/agilira/nanolog/internal/zephyroslite"
)

// bytesPerCacheLine separates producer-owned fields from consumer-owned
// ones so the two sides never false-share.
const bytesPerCacheLine = 64

// Ring is a fixed-capacity circular byte buffer with single-producer,
// single-consumer access. The zero value is not usable; construct with
// New.
type Ring struct {
	// --- producer-owned ---
	producerPos        int
	endOfRecordedSpace int
	minFreeSpace       int

	_ [bytesPerCacheLine]byte

	// --- shared, atomically updated ---
	consumerPosAtomic zephyroslite.AtomicPaddedInt64

	_ [bytesPerCacheLine]byte

	// --- consumer-owned ---
	consumerPos int

	storage []byte

	// --- lifecycle ---
	shouldDelete int32
	wrapped      bool

	// --- counters, atomic so Stats() can run concurrently ---
	numAllocations          zephyroslite.AtomicPaddedInt64
	numTimesProducerBlocked zephyroslite.AtomicPaddedInt64

	idle IdleStrategy
}

// IdleStrategy is satisfied by zephyroslite.IdleStrategy; it is
// redeclared here so callers of this package don't need to import
// zephyroslite directly to pass one in.
type IdleStrategy interface {
	Idle() bool
	Reset()
	String() string
}

// New allocates a Ring with the given capacity in bytes. idle governs
// how Reserve spins while waiting for the consumer to free space; pass
// nil to get a pure-spin default.
func New(capacity int, idle IdleStrategy) *Ring {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	if idle == nil {
		idle = zephyroslite.NewSpinningIdleStrategy()
	}
	r := &Ring{
		storage:            make([]byte, capacity),
		endOfRecordedSpace: capacity,
		minFreeSpace:       capacity,
		idle:               idle,
	}
	return r
}

// Capacity returns the ring's fixed byte capacity.
func (r *Ring) Capacity() int {
	return len(r.storage)
}

// MarkForDeletion flags the ring as retiring. The consumer drains it
// one last time and then drops its reference; the producer must not
// call Reserve again afterward.
func (r *Ring) MarkForDeletion() {
	atomic.StoreInt32(&r.shouldDelete, 1)
}

// ShouldDelete reports whether MarkForDeletion was called.
func (r *Ring) ShouldDelete() bool {
	return atomic.LoadInt32(&r.shouldDelete) == 1
}

// Reserve returns nbytes of contiguous space for the producer to write
// into. It blocks, spinning per the configured IdleStrategy, until the
// consumer has freed enough room. The returned slice must be committed
// with Commit before Reserve is called again.
func (r *Ring) Reserve(nbytes int) []byte {
	if nbytes < r.minFreeSpace {
		return r.storage[r.producerPos : r.producerPos+nbytes]
	}
	return r.reserveSlow(nbytes)
}

// TryReserve is the non-blocking counterpart to Reserve: it returns
// (nil, false) instead of spinning when there isn't enough room.
func (r *Ring) TryReserve(nbytes int) ([]byte, bool) {
	if nbytes < r.minFreeSpace {
		return r.storage[r.producerPos : r.producerPos+nbytes], true
	}
	buf := r.reserveSpaceInternal(nbytes, false)
	return buf, buf != nil
}

func (r *Ring) reserveSlow(nbytes int) []byte {
	buf := r.reserveSpaceInternal(nbytes, true)
	if buf == nil {
		panic("ring: blocking reserve returned nil")
	}
	return buf
}

// reserveSpaceInternal implements the wrap-around and wait logic.
// All comparisons are strict so that producerPos == consumerPos can
// only ever mean "empty", never "full".
func (r *Ring) reserveSpaceInternal(nbytes int, blocking bool) []byte {
	bufEnd := len(r.storage)
	first := true
	for r.minFreeSpace <= nbytes {
		if !first {
			if !r.idle.Idle() {
				return nil
			}
			r.numTimesProducerBlocked.Add(1)
		}
		first = false

		cachedConsumerPos := int(r.consumerPosAtomic.Load())

		if cachedConsumerPos <= r.producerPos {
			r.minFreeSpace = bufEnd - r.producerPos

			if r.minFreeSpace > nbytes {
				r.idle.Reset()
				return r.storage[r.producerPos : r.producerPos+nbytes]
			}

			// Not enough room at the tail; wrap to the front, unless
			// the consumer is still sitting at the front itself — that
			// would make producerPos == consumerPos == 0, which is
			// indistinguishable from empty.
			r.endOfRecordedSpace = r.producerPos
			if cachedConsumerPos != 0 {
				r.producerPos = 0
			}
		}

		r.minFreeSpace = cachedConsumerPos - r.producerPos

		if !blocking && r.minFreeSpace <= nbytes {
			return nil
		}
	}

	r.idle.Reset()
	return r.storage[r.producerPos : r.producerPos+nbytes]
}

// Commit makes the nbytes most recently returned by Reserve visible to
// the consumer.
func (r *Ring) Commit(nbytes int) {
	r.minFreeSpace -= nbytes
	r.producerPos += nbytes
	r.numAllocations.Add(1)
}

// Peek returns the bytes currently available for the consumer to read,
// following endOfRecordedSpace across a wrap if necessary. A zero-length
// result means the ring is empty.
func (r *Ring) Peek() []byte {
	cachedProducerPos := r.producerPos

	if cachedProducerPos < r.consumerPos {
		available := r.endOfRecordedSpace - r.consumerPos
		if available > 0 {
			return r.storage[r.consumerPos : r.consumerPos+available]
		}
		// Roll over.
		r.consumerPos = 0
		r.wrapped = true
	}

	available := cachedProducerPos - r.consumerPos
	if available <= 0 {
		return nil
	}
	return r.storage[r.consumerPos : r.consumerPos+available]
}

// ConsumeWrap reports whether the ring has rolled its read position back
// to the front since the last call, and clears the flag. The consumer
// uses this to decide when a buffer-change marker needs its wrap bit set.
func (r *Ring) ConsumeWrap() bool {
	w := r.wrapped
	r.wrapped = false
	return w
}

// Consume releases nbytes back to the producer after the consumer has
// finished reading them out of the slice returned by Peek.
func (r *Ring) Consume(nbytes int) {
	r.consumerPos += nbytes
	r.consumerPosAtomic.Store(int64(r.consumerPos))
}

// Touch pages in the ring's backing storage by writing a zero byte to
// the start of every page. Call outside any latency-sensitive section
// to force the allocation the first Reserve would otherwise pay for.
func (r *Ring) Touch() {
	const pageSize = 4096
	for off := 0; off < len(r.storage); off += pageSize {
		r.storage[off] = r.storage[off]
	}
}

// Stats is a snapshot of the ring's lifetime performance counters.
type Stats struct {
	NumAllocations          int64
	NumTimesProducerBlocked int64
}

// Stats returns a snapshot safe to read concurrently with producer and
// consumer activity.
func (r *Ring) Stats() Stats {
	return Stats{
		NumAllocations:          r.numAllocations.Load(),
		NumTimesProducerBlocked: r.numTimesProducerBlocked.Load(),
	}
}
