// ring_test.go: FIFO, no-straddle, and no-overlap properties for the staging ring
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFIFO writes a sequence of variable-length records and confirms
// they come back out through Peek/Consume in the same order, byte for
// byte, across several wrap-arounds.
func TestFIFO(t *testing.T) {
	r := New(256, nil)
	rng := rand.New(rand.NewSource(1))

	var written [][]byte
	var read [][]byte

	produce := func() {
		n := 1 + rng.Intn(20)
		buf, ok := r.TryReserve(n)
		if !ok {
			return
		}
		for i := range buf {
			buf[i] = byte(len(written) + i)
		}
		r.Commit(n)
		rec := make([]byte, n)
		copy(rec, buf)
		written = append(written, rec)
	}

	drain := func() {
		for {
			avail := r.Peek()
			if len(avail) == 0 {
				return
			}
			n := len(written[len(read)])
			if n > len(avail) {
				return
			}
			rec := make([]byte, n)
			copy(rec, avail[:n])
			read = append(read, rec)
			r.Consume(n)
		}
	}

	for i := 0; i < 500; i++ {
		produce()
		if i%3 == 0 {
			drain()
		}
	}
	drain()

	require.Equal(t, len(written), len(read))
	for i := range written {
		require.Equal(t, written[i], read[i], "record %d", i)
	}
}

// TestNoStraddle confirms a reservation is always returned as a single
// contiguous slice that never wraps past the end of storage.
func TestNoStraddle(t *testing.T) {
	r := New(64, nil)
	for i := 0; i < 100; i++ {
		n := 1 + (i % 10)
		buf, ok := r.TryReserve(n)
		if !ok {
			avail := r.Peek()
			r.Consume(len(avail))
			buf, ok = r.TryReserve(n)
			require.True(t, ok)
		}
		require.Len(t, buf, n)
		r.Commit(n)
		avail := r.Peek()
		r.Consume(len(avail))
	}
}

// TestNoOverlap confirms the producer never advances past the
// consumer's position, i.e. producerPos == consumerPos only ever means
// the ring is empty.
func TestNoOverlap(t *testing.T) {
	r := New(32, nil)

	buf, ok := r.TryReserve(31)
	require.True(t, ok)
	r.Commit(len(buf))

	_, ok = r.TryReserve(1)
	require.False(t, ok, "producer must not overlap unread consumer data")

	avail := r.Peek()
	require.Len(t, avail, 31)
	r.Consume(31)

	buf, ok = r.TryReserve(10)
	require.True(t, ok)
	r.Commit(len(buf))
}

func TestCapacity(t *testing.T) {
	r := New(128, nil)
	require.Equal(t, 128, r.Capacity())
}

func TestMarkForDeletion(t *testing.T) {
	r := New(16, nil)
	require.False(t, r.ShouldDelete())
	r.MarkForDeletion()
	require.True(t, r.ShouldDelete())
}

// TestConsumeWrap confirms the wrap flag is only raised once Peek has
// actually rolled the read cursor back to the front, and that reading
// it clears it for the next call.
func TestConsumeWrap(t *testing.T) {
	r := New(16, nil)
	require.False(t, r.ConsumeWrap())

	buf, ok := r.TryReserve(12)
	require.True(t, ok)
	r.Commit(len(buf))
	avail := r.Peek()
	require.Len(t, avail, 12)
	r.Consume(12)
	require.False(t, r.ConsumeWrap(), "no wrap yet; nothing written at the front")

	// Only 4 bytes remain at the tail; this forces the producer to
	// wrap back to offset 0.
	buf, ok = r.TryReserve(6)
	require.True(t, ok)
	r.Commit(len(buf))

	avail = r.Peek()
	require.Len(t, avail, 6)
	require.True(t, r.ConsumeWrap(), "peek should have rolled over to the front")
	require.False(t, r.ConsumeWrap(), "flag clears after being read once")
}

func TestTouch(t *testing.T) {
	r := New(4096*3, nil)
	require.NotPanics(t, func() { r.Touch() })
}

func TestStats(t *testing.T) {
	r := New(64, nil)
	buf, ok := r.TryReserve(8)
	require.True(t, ok)
	r.Commit(len(buf))

	stats := r.Stats()
	require.Equal(t, int64(1), stats.NumAllocations)
}
