// clock.go: Monotonic timestamp source for the staging ring hot path
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package clock samples a monotonic counter on every log record and
// exposes the calibration factor needed to convert raw counter values
// back into seconds.
//
// Real rdtsc-style cycle counters are not available portably from Go, so
// the "counter" here is the monotonic reading embedded in time.Now() (Go
// guarantees this is cheap and immune to NTP step adjustments). The
// calibration factor is therefore always 1e9 ticks per second, but it is
// still carried explicitly through Calibrate() and threaded into the wire
// format's checkpoint record rather than assumed by decoders, so a future
// backend with a true cycle counter only has to change this package.
package clock

import (
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
)

// ticksPerSecond is the calibration factor relating Now()'s return value
// to wall-clock seconds. Go's monotonic clock reads in nanoseconds, so
// this is always 1e9; it is defined once here (not repeated as a literal
// everywhere) so that a future backend with a coarser counter only needs
// to change Calibrate().
const ticksPerSecond = 1e9

var epoch = time.Now()

// Now returns a monotonically non-decreasing counter value, suitable for
// stamping a raw ring entry. It never allocates.
func Now() uint64 {
	return uint64(time.Since(epoch))
}

// TicksPerSecond returns the calibration factor needed to convert a delta
// of two Now() values into seconds.
func TicksPerSecond() float64 {
	return ticksPerSecond
}

// ToSeconds converts a difference of two Now() values into seconds.
func ToSeconds(ticks uint64) float64 {
	return float64(ticks) / ticksPerSecond
}

// WallTime returns the current wall-clock time in unix nanoseconds, using
// the cached time source so hot paths that also need a human-readable
// anchor (checkpoints, getStats) don't pay for an extra time.Now() syscall
// path beyond what the timecache's background ticker already amortizes.
func WallTime() int64 {
	return timecache.CachedTimeNano()
}

// calibrationGeneration lets tests observe that Calibrate() was invoked
// without re-measuring anything (the factor is a compile-time constant on
// this backend).
var calibrationGeneration int64

// Calibrate recomputes the calibration factor. On this backend it is a
// no-op beyond bumping a generation counter, since TicksPerSecond() never
// drifts, but the entry point exists so the checkpoint writer always has
// something to call before stamping a fresh anchor, mirroring the
// original Cycles::init() calibration step.
func Calibrate() float64 {
	atomic.AddInt64(&calibrationGeneration, 1)
	return ticksPerSecond
}
