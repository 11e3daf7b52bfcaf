// logger.go: Runtime logger — producer rings, consumer goroutine, public API
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package nanolog

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/nanolog/internal/bufferpool"
	"github.com/agilira/nanolog/internal/clock"
	"github.com/agilira/nanolog/internal/encoder"
	"github.com/agilira/nanolog/internal/filewriter"
	"github.com/agilira/nanolog/internal/registry"
	"github.com/agilira/nanolog/internal/ring"
)

// Logger owns a fleet of producer rings, the site dictionary, and the
// background consumer goroutine that drains them into a file. The zero
// value is not usable; construct with New or NewMagicLogger.
type Logger struct {
	cfg *Config
	fw  *filewriter.Writer
	reg *registry.Registry
	lvl *AtomicLevel
	enc *encoder.Encoder

	// outBuf is the consumer's own compaction scratch space; only the
	// consumer goroutine ever touches it.
	outBuf *bytes.Buffer

	mu             sync.Mutex
	producers      []*Producer
	nextProducerID uint32
	lastChecked    int
	activeRing     uint32
	pendingWrap    map[uint32]bool
	dictSerialized int

	wakeCh     chan struct{}
	syncReq    chan chan struct{}
	shutdownCh chan struct{}
	doneCh     chan struct{}
	closed     int32

	startedAt        time.Time
	entriesEncoded   uint64
	entriesDropped   uint64
	malformedEntries uint64
}

// New opens cfg.LogFilePath, wires a consumer goroutine, and returns a
// ready Logger. Most callers that just want package-level Log/RegisterSite
// convenience never call this directly; it exists for programs that want
// more than one independently configured logger.
func New(cfg Config, opts ...Option) (*Logger, error) {
	full := applyOptions(&cfg, opts...)
	if err := full.Validate(); err != nil {
		return nil, err
	}

	if full.Rotation.MaxSizeBytes > 0 {
		if sink, ok := createRotationSink(full.LogFilePath, full.Rotation); ok {
			return newWithRotationSink(*full, sink, opts...)
		}
	}

	fw, err := filewriter.New(filewriter.Options{
		Path:       full.LogFilePath,
		DirectIO:   full.DirectIO,
		Compress:   full.Compress,
		BufferHint: full.ReleaseThreshold,
	})
	if err != nil {
		return nil, WrapLoggerError(err, ErrCodeFileOpenFailed, "failed to open log file")
	}

	return newLogger(full, fw)
}

// newLogger builds a Logger around an already-open filewriter.Writer,
// shared by New (which opens a plain file) and the Lethe rotation path
// in magic.go (which hands in a sink it already constructed).
func newLogger(cfg *Config, fw *filewriter.Writer) (*Logger, error) {
	l := &Logger{
		cfg:         cfg,
		fw:          fw,
		reg:         siteRegistry,
		lvl:         NewAtomicLevel(cfg.Level),
		enc:         encoder.New(),
		outBuf:      bufferpool.Get(),
		pendingWrap: make(map[uint32]bool),
		wakeCh:      make(chan struct{}, 1),
		syncReq:     make(chan chan struct{}),
		shutdownCh:  make(chan struct{}),
		doneCh:      make(chan struct{}),
		startedAt:   time.Now(),
	}

	if err := l.writeCheckpointedDictionary(); err != nil {
		_ = fw.Close()
		return nil, WrapLoggerError(err, ErrCodeFileOpenFailed, "failed to write initial dictionary")
	}

	go l.run()
	return l, nil
}

func (l *Logger) wake() {
	select {
	case l.wakeCh <- struct{}{}:
	default:
	}
}

// NewProducer allocates a fresh staging ring and registers it with the
// logger's consumer. Call once per goroutine that logs and reuse the
// returned handle — it is the idiomatic stand-in for a thread-local
// ring in a language without one.
func (l *Logger) NewProducer() *Producer {
	r := ring.New(l.cfg.RingCapacity, l.cfg.IdleStrategy)

	l.mu.Lock()
	l.nextProducerID++
	id := l.nextProducerID
	p := &Producer{logger: l, id: id, ring: r}
	l.producers = append(l.producers, p)
	l.mu.Unlock()

	l.wake()
	return p
}

// Producer is a single goroutine's private staging ring plus the
// producer-side handle used to reserve and commit raw entries into it.
// A Producer must not be shared across goroutines without external
// synchronization — that would defeat the single-producer contract the
// underlying ring depends on.
type Producer struct {
	logger  *Logger
	id      uint32
	ring    *ring.Ring
	dropped uint64
}

// Close retires the producer's ring. The consumer drains whatever is
// still staged and then drops its reference; Log must not be called
// again afterward.
func (p *Producer) Close() {
	p.ring.MarkForDeletion()
	p.logger.wake()
}

// Preallocate forces the producer's ring storage to be paged in outside
// any latency-sensitive section, mirroring the original API's
// preallocate() call.
func (p *Producer) Preallocate() {
	p.ring.Touch()
}

// Dropped returns the number of entries this producer's ring has
// dropped because it filled up under DropOnFull backpressure.
func (p *Producer) Dropped() uint64 {
	return atomic.LoadUint64(&p.dropped)
}

// Log gates on the site's severity against the logger's current level,
// then reserves, writes, and commits a raw entry into this producer's
// ring. args must match site's parameter count and kinds; a mismatch is
// reported to the active ErrorHandler and the call is dropped rather
// than corrupting the ring.
func (p *Producer) Log(site *Site, args ...interface{}) {
	l := p.logger
	if !l.lvl.Enabled(site.severity) {
		return
	}

	size, strs, err := layoutRawEntry(site.meta, args)
	if err != nil {
		handleError(WrapLoggerError(err, ErrCodeMalformed, "argument mismatch at log site"))
		return
	}

	var buf []byte
	if l.cfg.BackpressurePolicy == BlockOnFull {
		buf = p.ring.Reserve(size)
	} else {
		var ok bool
		buf, ok = p.ring.TryReserve(size)
		if !ok {
			atomic.AddUint64(&p.dropped, 1)
			atomic.AddUint64(&l.entriesDropped, 1)
			return
		}
	}

	encoder.PutRawHeader(buf, site.id, clock.Now(), uint32(size))
	if err := writeRawArgs(buf[encoder.RawHeaderSize:], site.meta, args, strs); err != nil {
		handleError(WrapLoggerError(err, ErrCodeMalformed, "failed to encode log arguments"))
		return
	}
	p.ring.Commit(size)

	l.wake()
}

// layoutRawEntry validates args against meta and computes the total raw
// entry size (header + fixed scalar slots + length-prefixed strings).
func layoutRawEntry(meta *registry.SiteMetadata, args []interface{}) (int, [][]byte, error) {
	if len(args) != len(meta.ParamTypes) {
		return 0, nil, fmt.Errorf("nanolog: site %q expects %d args, got %d", meta.Format, len(meta.ParamTypes), len(args))
	}

	size := encoder.RawHeaderSize
	strs := make([][]byte, len(args))

	for i, pt := range meta.ParamTypes {
		if pt.IsString() {
			s := argToBytes(args[i])
			strs[i] = s
			size += 4 + len(s)
			continue
		}
		size += encoder.RawScalarWidth
	}

	return size, strs, nil
}

func writeRawArgs(buf []byte, meta *registry.SiteMetadata, args []interface{}, strs [][]byte) error {
	cursor := 0
	for i, pt := range meta.ParamTypes {
		if pt.IsString() {
			s := strs[i]
			encoder.PutRawStringHeader(buf[cursor:], uint32(len(s)))
			cursor += 4
			cursor += copy(buf[cursor:], s)
			continue
		}

		bits, err := argToScalarBits(meta.ArgKinds[i], args[i])
		if err != nil {
			return err
		}
		encoder.PutRawScalar(buf[cursor:], bits)
		cursor += encoder.RawScalarWidth
	}
	return nil
}

func argToBytes(v interface{}) []byte {
	switch x := v.(type) {
	case string:
		return []byte(x)
	case []byte:
		return x
	case fmt.Stringer:
		return []byte(x.String())
	default:
		return []byte(fmt.Sprint(v))
	}
}

func argToScalarBits(kind registry.ArgKind, v interface{}) (uint64, error) {
	switch kind {
	case registry.KindFloat64, registry.KindFloat32:
		switch x := v.(type) {
		case float64:
			return math.Float64bits(x), nil
		case float32:
			return math.Float64bits(float64(x)), nil
		}
	case registry.KindPointer:
		if x, ok := v.(uintptr); ok {
			return uint64(x), nil
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr {
			return uint64(rv.Pointer()), nil
		}
	case registry.KindUint64:
		switch x := v.(type) {
		case uint:
			return uint64(x), nil
		case uint8:
			return uint64(x), nil
		case uint16:
			return uint64(x), nil
		case uint32:
			return uint64(x), nil
		case uint64:
			return x, nil
		case int:
			return uint64(x), nil
		case int64:
			return uint64(x), nil
		}
	default: // KindInt64
		switch x := v.(type) {
		case int:
			return uint64(int64(x)), nil
		case int8:
			return uint64(int64(x)), nil
		case int16:
			return uint64(int64(x)), nil
		case int32:
			return uint64(int64(x)), nil
		case int64:
			return uint64(x), nil
		case uint:
			return uint64(x), nil
		case uint32:
			return uint64(x), nil
		case uint64:
			return x, nil
		case bool:
			if x {
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, fmt.Errorf("nanolog: argument %v (%T) does not match expected kind %d", v, v, kind)
}

// run is the single background consumer goroutine. It round-robins the
// producer rings starting from the last one it left off at, compacts
// whatever it finds into outBuf, stages completed chunks with the file
// writer, and answers sync/shutdown requests between passes.
func (l *Logger) run() {
	defer close(l.doneCh)

	for {
		foundWork := l.drainPass()

		select {
		case req := <-l.syncReq:
			l.drainPass()
			l.flushStaged()
			if err := l.fw.Sync(); err != nil {
				handleError(WrapLoggerError(err, ErrCodeAsyncWriteFailed, "sync failed"))
			}
			close(req)
			continue
		case <-l.shutdownCh:
			l.drainPass()
			l.flushStaged()
			_ = l.fw.Sync()
			return
		default:
		}

		if foundWork {
			l.cfg.IdleStrategy.Reset()
			continue
		}

		awakeStart := time.Now()
		select {
		case <-l.wakeCh:
		case <-l.shutdownCh:
		case req := <-l.syncReq:
			l.drainPass()
			l.flushStaged()
			_ = l.fw.Sync()
			close(req)
		case <-time.After(5 * time.Millisecond):
			l.cfg.IdleStrategy.Idle()
		}
		l.fw.RecordAwakeTime(time.Since(awakeStart))
	}
}

// drainPass makes one round-robin scan over every live producer ring,
// compacting entries into outBuf and flushing whenever the release
// threshold is crossed. It returns whether any ring had data.
func (l *Logger) drainPass() bool {
	if err := l.absorbNewSites(); err != nil {
		handleError(WrapLoggerError(err, ErrCodeMalformed, "failed to stream new dictionary entries"))
	}

	l.mu.Lock()
	producers := l.producers
	l.mu.Unlock()

	n := len(producers)
	if n == 0 {
		return false
	}

	found := false
	start := l.lastChecked % n
	var toRemove []uint32

	for k := 0; k < n; k++ {
		idx := (start + k) % n
		p := producers[idx]

		data := p.ring.Peek()
		if len(data) == 0 {
			if p.ring.ShouldDelete() {
				toRemove = append(toRemove, p.id)
			}
			continue
		}

		found = true
		l.lastChecked = idx + 1

		if l.activeRing != p.id {
			wrapped := l.pendingWrap[p.id]
			delete(l.pendingWrap, p.id)
			encoder.EncodeBufferChange(l.outBuf, p.id, wrapped)
			l.activeRing = p.id
		}

		l.drainRing(p, data)
		if p.ring.ConsumeWrap() {
			l.pendingWrap[p.id] = true
		}

		if l.outBuf.Len() >= l.cfg.ReleaseThreshold {
			l.flushStaged()
		}
	}

	if len(toRemove) > 0 {
		l.removeProducers(toRemove)
	}

	if l.outBuf.Len() > 0 && l.outBuf.Len()+l.fw.Buffered() >= l.cfg.ReleaseThreshold {
		l.flushStaged()
	}

	return found
}

// drainRing compacts as many complete raw entries as it finds in data,
// stopping early if the release threshold is reached mid-ring so other
// producers stay fair, and consumes exactly the bytes it compacted.
func (l *Logger) drainRing(p *Producer, data []byte) {
	cursor := 0
	for cursor+encoder.RawHeaderSize <= len(data) {
		hdr := encoder.ReadRawHeader(data[cursor:])
		if hdr.EntrySize == 0 || cursor+int(hdr.EntrySize) > len(data) {
			break
		}
		raw := data[cursor : cursor+int(hdr.EntrySize)]

		encodeStart := time.Now()
		n, err := l.enc.EncodeEntry(l.reg, raw, l.outBuf)
		l.fw.RecordEncodeTime(time.Since(encodeStart))

		if err != nil {
			atomic.AddUint64(&l.malformedEntries, 1)
			handleError(WrapLoggerError(err, ErrCodeUnknownSiteID, "dropped entry with unknown site id"))
		} else {
			atomic.AddUint64(&l.entriesEncoded, 1)
		}

		cursor += int(n)
		if l.outBuf.Len() >= l.cfg.ReleaseThreshold {
			break
		}
	}

	p.ring.Consume(cursor)
}

// absorbNewSites streams dictionary records for any sites registered
// since the last snapshot, each batch self-terminated by its own
// checksum, and re-anchors delta compression with a fresh checkpoint so
// the decoder never has to interpret an id it hasn't seen metadata for.
func (l *Logger) absorbNewSites() error {
	count := l.reg.Count()
	if count <= l.dictSerialized {
		return nil
	}

	l.outBuf.WriteByte(encoder.EntryDictionaryBatch)
	next, err := l.reg.SerializeSince(l.dictSerialized, l.outBuf)
	if err != nil {
		return err
	}
	l.dictSerialized = next

	l.enc.EncodeCheckpoint(l.outBuf, l.freshCheckpoint())
	return nil
}

func (l *Logger) writeCheckpointedDictionary() error {
	if err := l.absorbNewSites(); err != nil {
		return err
	}
	if l.dictSerialized == 0 {
		// No sites registered yet; still emit an empty dictionary
		// batch plus checkpoint so the file has a well-formed start.
		l.outBuf.WriteByte(encoder.EntryDictionaryBatch)
		if _, err := l.reg.SerializeSince(0, l.outBuf); err != nil {
			return err
		}
		l.enc.EncodeCheckpoint(l.outBuf, l.freshCheckpoint())
	}
	l.flushStaged()
	return l.fw.Sync()
}

func (l *Logger) freshCheckpoint() encoder.Checkpoint {
	clock.Calibrate()
	return encoder.Checkpoint{
		Timestamp:       clock.Now(),
		WallTimeNanos:   l.cfg.TimeFn().UnixNano(),
		TicksPerSecond:  clock.TicksPerSecond(),
		RelativePointer: 0,
		WideCharWidth:   2,
	}
}

func (l *Logger) flushStaged() {
	if l.outBuf.Len() == 0 {
		return
	}
	l.fw.Stage(l.outBuf.Bytes())
	l.outBuf.Reset()

	if l.fw.Buffered() >= l.cfg.ReleaseThreshold {
		if err := l.fw.Flush(true); err != nil {
			handleError(WrapLoggerError(err, ErrCodeAsyncWriteFailed, "async flush failed"))
		}
	}
}

func (l *Logger) removeProducers(ids []uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := make([]*Producer, 0, len(l.producers))
outer:
	for _, p := range l.producers {
		for _, id := range ids {
			if p.id == id {
				continue outer
			}
		}
		kept = append(kept, p)
	}
	l.producers = kept
}

// SetLogLevel changes the minimum severity producers gate on. Takes
// effect immediately for every producer sharing this logger.
func (l *Logger) SetLogLevel(level Level) {
	l.lvl.SetLevel(level)
}

// LogLevel returns the logger's current minimum severity.
func (l *Logger) LogLevel() Level {
	return l.lvl.Level()
}

// Sync blocks until the consumer has completed one full pass over every
// ring and flushed the result to the file writer's sink.
func (l *Logger) Sync() error {
	if atomic.LoadInt32(&l.closed) == 1 {
		return nil
	}
	req := make(chan struct{})
	select {
	case l.syncReq <- req:
	case <-l.doneCh:
		return nil
	}
	<-req
	return nil
}

// Preallocate touches every currently registered producer's ring
// storage, forcing the backing pages to be resident outside any
// latency-sensitive section.
func (l *Logger) Preallocate() {
	l.mu.Lock()
	producers := l.producers
	l.mu.Unlock()
	for _, p := range producers {
		p.ring.Touch()
	}
}

// Stats is a human-readable snapshot of the logger's lifetime counters,
// shaped after the metrics the original runtime's printStats emitted.
type Stats struct {
	Uptime               time.Duration
	EntriesEncoded       uint64
	EntriesDropped       uint64
	MalformedEntries     uint64
	BytesWritten         uint64
	PadBytes             uint64
	AsyncWritesCompleted uint64
	FlushTime            time.Duration
	EncodeTime           time.Duration
	AwakeTime            time.Duration
}

// GetStats returns the logger's current Stats.
func (l *Logger) GetStats() Stats {
	m := l.fw.Metrics()
	return Stats{
		Uptime:               time.Since(l.startedAt),
		EntriesEncoded:       atomic.LoadUint64(&l.entriesEncoded),
		EntriesDropped:       atomic.LoadUint64(&l.entriesDropped),
		MalformedEntries:     atomic.LoadUint64(&l.malformedEntries),
		BytesWritten:         m.BytesWritten,
		PadBytes:             m.PadBytes,
		AsyncWritesCompleted: m.AsyncWritesCompleted,
		FlushTime:            m.FlushTime,
		EncodeTime:           m.EncodeTime,
		AwakeTime:            m.AwakeTime,
	}
}

// String renders Stats the way the original runtime's printStats did:
// throughput and raw counters.
func (s Stats) String() string {
	mbWritten := float64(s.BytesWritten) / (1024 * 1024)
	throughput := 0.0
	if s.Uptime > 0 {
		throughput = mbWritten / s.Uptime.Seconds()
	}
	return fmt.Sprintf(
		"nanolog stats: uptime=%s entries=%d dropped=%d malformed=%d written=%.2fMB (%.2fMB/s) pad=%dB async_writes=%d flush=%s encode=%s awake=%s",
		s.Uptime.Round(time.Millisecond), s.EntriesEncoded, s.EntriesDropped, s.MalformedEntries,
		mbWritten, throughput, s.PadBytes, s.AsyncWritesCompleted, s.FlushTime, s.EncodeTime, s.AwakeTime,
	)
}

// PrintConfig renders the logger's effective configuration, mirroring
// the original runtime's printConfig diagnostic.
func (l *Logger) PrintConfig() string {
	c := l.cfg
	return fmt.Sprintf(
		"nanolog config: ring_capacity=%dB backpressure=%s level=%s log_file=%q release_threshold=%dB direct_io=%t compress=%t",
		c.RingCapacity, c.BackpressurePolicy, l.lvl.Level(), c.LogFilePath, c.ReleaseThreshold, c.DirectIO, c.Compress,
	)
}

// Close stops the consumer after one final pass and releases the
// underlying file writer. A Logger must not be used after Close.
func (l *Logger) Close() error {
	if !atomic.CompareAndSwapInt32(&l.closed, 0, 1) {
		return nil
	}
	close(l.shutdownCh)
	<-l.doneCh
	bufferpool.Put(l.outBuf)
	return l.fw.Close()
}
