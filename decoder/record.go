// record.go: The three record kinds a decoded stream yields
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package decoder

import (
	"time"

	"github.com/agilira/nanolog/internal/encoder"
)

// LogMessage is one decoded, fully rendered log entry.
type LogMessage struct {
	SiteID    uint32
	Timestamp uint64 // raw monotonic ticks, matching the original entry
	WallTime  time.Time
	Severity  uint8
	File      string
	Line      uint32
	Text      string
}

// BufferChange marks that subsequent LogMessage records until the next
// BufferChange come from a different producer ring.
type BufferChange struct {
	ProducerID uint32
	Wrapped    bool
}

// Checkpoint is a resynchronization anchor: the raw monotonic counter
// value, the wall-clock time it corresponds to, the calibration factor
// relating counter ticks to seconds, and the pointer-rebasing base.
type Checkpoint struct {
	Timestamp       uint64
	WallTime        time.Time
	TicksPerSecond  float64
	RelativePointer uint64
	WideCharWidth   uint8
}

func checkpointFromWire(cp encoder.Checkpoint) Checkpoint {
	return Checkpoint{
		Timestamp:       cp.Timestamp,
		WallTime:        time.Unix(0, cp.WallTimeNanos),
		TicksPerSecond:  cp.TicksPerSecond,
		RelativePointer: cp.RelativePointer,
		WideCharWidth:   cp.WideCharWidth,
	}
}

// wallTimeFor converts a raw timestamp into wall-clock time by
// projecting it forward from the most recent checkpoint, the same way
// the original runtime's decoder re-anchors after every checkpoint
// record instead of assuming a fixed tick-to-nanosecond ratio.
func wallTimeFor(ts uint64, cp Checkpoint) time.Time {
	if cp.TicksPerSecond <= 0 {
		return cp.WallTime
	}
	deltaTicks := int64(ts) - int64(cp.Timestamp)
	deltaNanos := float64(deltaTicks) / cp.TicksPerSecond * 1e9
	return cp.WallTime.Add(time.Duration(deltaNanos))
}
