// Package nanolog provides nanosecond-scale structured logging for
// performance-sensitive applications.
//
// A log call on the hot path does the minimum possible work: it
// records a monotonic timestamp, a numeric site identifier, and the
// raw argument bytes into a thread-local staging ring. Formatting,
// format-string deduplication, variable-width packing, and disk I/O
// are all deferred to a single background consumer goroutine, which
// produces a compact binary log file. A companion decoder reconstructs
// human-readable text from that file offline, outside the hot path
// entirely.
//
// # Quick Start
//
//	logger, err := nanolog.New(nanolog.Config{LogFilePath: "/var/log/app.nanolog"})
//	if err != nil {
//		panic(err)
//	}
//	defer logger.Close()
//
//	site := nanolog.RegisterSite("request took %dms for user %s", nanolog.Notice)
//	p := logger.NewProducer()
//	p.Log(site, 42, "alice")
//
// # Architecture
//
//   - Each calling goroutine gets its own lock-free staging ring
//     (internal/ring), so producers never contend with each other.
//   - internal/pack variable-byte-encodes each argument only once,
//     in the consumer, not on every hot-path call.
//   - internal/registry assigns a dense id to every distinct call site
//     the first time it logs, and remembers its format string and
//     argument shape for the decoder's dictionary.
//   - internal/encoder compacts each raw ring entry into the on-disk
//     record format: a delta-compressed header, a nibble table of pack
//     codes, packed scalars, then NUL-terminated strings.
//   - internal/filewriter buffers and flushes the compacted stream to
//     disk, with optional compression, direct I/O alignment, and
//     rotation.
//
// # Decoding
//
// The binary log a Logger produces is meant to be read by
// cmd/nanolog-decode, or by importing the decoder package directly:
//
//	nanolog-decode -i app.nanolog -o app.json
//
// # Error Handling
//
// Producer-side errors (a full ring under DropOnFull) are counted and
// dropped silently; they never block or panic a caller. Consumer-side
// errors (a write failure, an unknown site id) are reported through
// the configured ErrorHandler and logged to stderr by default; they
// never stop the consumer goroutine. Only a failure to open the output
// file surfaces synchronously, from New or SetLogFile.
package nanolog
