// filewriter.go: Double-buffered asynchronous output for the consumer
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package filewriter buffers the consumer's compacted byte stream and
// flushes it to disk, optionally aligned for direct I/O, optionally
// block-compressed, and optionally rotated through a lethe-backed sink.
// Two buffers are swapped so a pending async write never blocks the
// consumer from staging the next chunk.
package filewriter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/s2"

	"github.com/agilira/nanolog/internal/lethe"
)

// alignment is the block size direct I/O mode pads writes to.
const alignment = 512

// compressedStreamTag and plainStreamTag are the single leading bytes a
// log file opens with, telling the decoder whether to route the rest
// of the stream through an s2 reader.
const (
	plainStreamTag      byte = 0
	compressedStreamTag byte = 1
)

// Metrics mirrors the counters the file writer is required to expose:
// bytes moved in each direction, padding overhead, and timing spent in
// the writer's own phases. There is no portable cycle counter in Go, so
// the cycle fields are wall-clock durations instead.
type Metrics struct {
	BytesRead            uint64
	BytesWritten         uint64
	PadBytes             uint64
	EventsProcessed      uint64
	AsyncWritesCompleted uint64
	FlushTime            time.Duration
	EncodeTime           time.Duration
	AwakeTime            time.Duration
}

// Snapshot is an atomically-read-consistent copy of Metrics.
type Snapshot = Metrics

// Writer owns the output file (or lethe-backed sink), the double
// buffer, and the accumulated metrics. It is not safe for concurrent
// use by more than one consumer goroutine; Logger owns exactly one.
type Writer struct {
	mu sync.Mutex

	out       io.WriteCloser
	letheSink lethe.LetheWriter // non-nil when out is rotation-capable

	directIO bool
	compress bool

	buffers [2][]byte
	active  int

	pending sync.WaitGroup
	asyncMu sync.Mutex // serializes the single in-flight async write's completion bookkeeping

	bytesRead            uint64
	bytesWritten         uint64
	padBytes             uint64
	eventsProcessed      uint64
	asyncWritesCompleted uint64
	flushNanos           int64
	encodeNanos          int64
	awakeNanos           int64

	closed bool
}

// Options configures a new Writer.
type Options struct {
	Path         string
	DirectIO     bool
	Compress     bool
	BufferHint   int
	RotationSink lethe.LetheWriter // non-nil when an adapted lethe sink should own rotation
}

// New opens path (or adopts opts.RotationSink) and prepares the double
// buffer. The leading stream tag byte is written immediately so the
// decoder always knows whether to expect compressed blocks.
func New(opts Options) (*Writer, error) {
	bufSize := opts.BufferHint
	if bufSize <= 0 {
		bufSize = 1 << 16
	}

	w := &Writer{
		directIO: opts.DirectIO,
		compress: opts.Compress,
	}
	w.buffers[0] = make([]byte, 0, bufSize)
	w.buffers[1] = make([]byte, 0, bufSize)

	if opts.RotationSink != nil {
		w.out = opts.RotationSink
		w.letheSink = opts.RotationSink
	} else {
		// #nosec G304 -- path is operator-supplied configuration, not end-user input
		file, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("filewriter: open %s: %w", opts.Path, err)
		}
		w.out = file
	}

	tag := []byte{plainStreamTag}
	if w.compress {
		tag[0] = compressedStreamTag
	}
	if err := w.writeRaw(tag); err != nil {
		_ = w.out.Close()
		return nil, err
	}

	return w, nil
}

// Stage appends data to the active buffer. The caller is expected to
// call Flush once enough data has accumulated (the runtime logger's
// release-threshold policy decides when).
func (w *Writer) Stage(data []byte) {
	w.mu.Lock()
	w.buffers[w.active] = append(w.buffers[w.active], data...)
	atomic.AddUint64(&w.bytesRead, uint64(len(data)))
	atomic.AddUint64(&w.eventsProcessed, 1)
	w.mu.Unlock()
}

// Buffered returns the number of bytes staged in the active buffer,
// letting the caller decide when to Flush against its own
// release-threshold policy.
func (w *Writer) Buffered() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffers[w.active])
}

// Flush swaps the active buffer out and writes its contents. When
// async is true the write is submitted on a background goroutine and
// Flush returns immediately; Sync waits for it to finish.
func (w *Writer) Flush(async bool) error {
	start := time.Now()
	defer func() { atomic.AddInt64(&w.flushNanos, int64(time.Since(start))) }()

	w.pending.Wait()

	w.mu.Lock()
	idx := w.active
	w.active = 1 - w.active
	chunk := w.buffers[idx]
	w.buffers[idx] = w.buffers[idx][:0]
	w.mu.Unlock()

	if len(chunk) == 0 {
		return nil
	}

	if w.compress {
		var buf bytes.Buffer
		zw := s2.NewWriter(&buf)
		if _, err := zw.Write(chunk); err != nil {
			return fmt.Errorf("filewriter: compress: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("filewriter: compress close: %w", err)
		}
		chunk = buf.Bytes()
	}

	if !async {
		return w.writeRaw(chunk)
	}

	w.pending.Add(1)
	go func() {
		defer w.pending.Done()
		w.asyncMu.Lock()
		defer w.asyncMu.Unlock()
		if err := w.writeRaw(chunk); err == nil {
			atomic.AddUint64(&w.asyncWritesCompleted, 1)
		}
	}()

	return nil
}

// writeRaw writes data to the underlying sink, applying direct-I/O
// alignment (padding the length up to a 512-byte boundary) when
// enabled, and updates byte/pad counters.
func (w *Writer) writeRaw(data []byte) error {
	if !w.directIO {
		n, err := w.out.Write(data)
		atomic.AddUint64(&w.bytesWritten, uint64(n))
		return err
	}

	padded := len(data)
	if rem := padded % alignment; rem != 0 {
		padded += alignment - rem
	}
	if padded == len(data) {
		n, err := w.out.Write(data)
		atomic.AddUint64(&w.bytesWritten, uint64(n))
		return err
	}

	aligned := make([]byte, padded)
	copy(aligned, data)
	n, err := w.out.Write(aligned)
	atomic.AddUint64(&w.bytesWritten, uint64(n))
	atomic.AddUint64(&w.padBytes, uint64(padded-len(data)))
	return err
}

// Sync flushes any staged data synchronously, waits for outstanding
// async writes, and fsyncs the underlying file (skipped for sinks
// without a Sync method).
func (w *Writer) Sync() error {
	if err := w.Flush(false); err != nil {
		return err
	}
	w.pending.Wait()

	if syncer, ok := w.out.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}

// Close flushes, waits, and releases the underlying sink.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	if err := w.Sync(); err != nil {
		return err
	}
	return w.out.Close()
}

// Metrics returns a consistent snapshot of the writer's counters.
func (w *Writer) Metrics() Snapshot {
	return Snapshot{
		BytesRead:            atomic.LoadUint64(&w.bytesRead),
		BytesWritten:         atomic.LoadUint64(&w.bytesWritten),
		PadBytes:             atomic.LoadUint64(&w.padBytes),
		EventsProcessed:      atomic.LoadUint64(&w.eventsProcessed),
		AsyncWritesCompleted: atomic.LoadUint64(&w.asyncWritesCompleted),
		FlushTime:            time.Duration(atomic.LoadInt64(&w.flushNanos)),
		EncodeTime:           time.Duration(atomic.LoadInt64(&w.encodeNanos)),
		AwakeTime:            time.Duration(atomic.LoadInt64(&w.awakeNanos)),
	}
}

// RecordEncodeTime lets the caller (the consumer loop, which owns the
// encoder) attribute cycles spent encoding separately from cycles spent
// flushing.
func (w *Writer) RecordEncodeTime(d time.Duration) {
	atomic.AddInt64(&w.encodeNanos, int64(d))
}

// RecordAwakeTime attributes cycles spent awake (scanning rings with
// nothing to do) separately from productive flush/encode time.
func (w *Writer) RecordAwakeTime(d time.Duration) {
	atomic.AddInt64(&w.awakeNanos, int64(d))
}
