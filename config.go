// config.go: Runtime logger configuration
//
// This file provides the core configuration structure for a nanolog
// Logger. Config centralizes every tunable the runtime logger needs —
// ring sizing, backpressure policy, idle behavior, and output shape —
// with defaults chosen the way the original runtime chose them.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package nanolog

import (
	"fmt"
	"time"

	"github.com/agilira/nanolog/internal/clock"
	"github.com/agilira/nanolog/internal/zephyroslite"
)

// BackpressurePolicy determines what a producer's reserve does when its
// ring has no free space.
type BackpressurePolicy int

const (
	// DropOnFull returns immediately and drops the log line, incrementing
	// a per-ring dropped counter. This is the default: the original
	// runtime never lets a slow consumer stall application threads.
	DropOnFull BackpressurePolicy = iota
	// BlockOnFull spins (per the configured IdleStrategy) until the
	// consumer frees enough space.
	BlockOnFull
)

func (p BackpressurePolicy) String() string {
	switch p {
	case DropOnFull:
		return "drop_on_full"
	case BlockOnFull:
		return "block_on_full"
	default:
		return "unknown"
	}
}

// defaultRingCapacity matches the original StagingBuffer's default: big
// enough that an 8x compression ratio amortizes disk seeks well.
const defaultRingCapacity = 1 << 20 // 1 MiB

// defaultReleaseThreshold is how many compacted bytes the consumer
// accumulates in its output buffer before flushing to the file writer.
const defaultReleaseThreshold = 1 << 19 // 512 KiB

// Config centralizes every parameter a Logger needs. The zero value is
// not meant to be used directly; call Config.withDefaults() (done
// automatically by New) to fill in the production defaults.
type Config struct {
	// RingCapacity is the byte capacity of each producer's staging
	// ring. Must be a positive number of bytes; default 1 MiB.
	RingCapacity int

	// BackpressurePolicy controls reserve's behavior when a ring is
	// full. Default DropOnFull.
	BackpressurePolicy BackpressurePolicy

	// IdleStrategy governs how a blocking reserve spins, and how the
	// consumer goroutine waits when every ring is empty. Default is a
	// progressive strategy (spin, then yield, then sleep).
	IdleStrategy zephyroslite.IdleStrategy

	// Level is the initial minimum severity; entries below it are
	// dropped before a ring reservation is even attempted. Default
	// Notice.
	Level Level

	// LogFilePath is where the consumer writes the compacted log.
	// Default "/tmp/nanolog".
	LogFilePath string

	// ReleaseThreshold is how many compacted bytes accumulate in the
	// consumer's output buffer before it flushes to the file writer.
	ReleaseThreshold int

	// DirectIO aligns file writes to 512-byte boundaries and pads
	// short writes, mirroring the original's O_DIRECT mode. Default
	// false (ordinary buffered writes).
	DirectIO bool

	// Compress block-compresses the encoder's output before it
	// reaches the file writer. Default false.
	Compress bool

	// Rotation, when MaxSizeBytes is positive and a lethe provider is
	// registered, hands file lifecycle to that backend; otherwise the log
	// is a single never-rotated file. The original
	// runtime never rotates; this is an opt-in beyond its scope.
	Rotation RotationConfig

	// TimeFn allows overriding the wall-clock source used to stamp
	// checkpoints; defaults to the cached time source.
	TimeFn func() time.Time
}

// RotationConfig configures the optional lethe-backed rotation bridge.
// A zero value (MaxSizeBytes == 0) disables rotation.
type RotationConfig struct {
	MaxSizeBytes int64
	MaxBackups   int
}

// withDefaults returns a copy of c with every unset field given its
// production default.
func (c *Config) withDefaults() *Config {
	out := *c

	if out.RingCapacity <= 0 {
		out.RingCapacity = defaultRingCapacity
	}
	if out.ReleaseThreshold <= 0 {
		out.ReleaseThreshold = defaultReleaseThreshold
	}
	if out.LogFilePath == "" {
		out.LogFilePath = "/tmp/nanolog"
	}
	if out.IdleStrategy == nil {
		out.IdleStrategy = zephyroslite.NewProgressiveIdleStrategy()
	}
	if out.TimeFn == nil {
		out.TimeFn = func() time.Time { return time.Unix(0, clock.WallTime()) }
	}
	if !IsValidLevel(out.Level) {
		out.Level = Notice
	}

	return &out
}

// Validate checks the configuration for common errors.
func (c *Config) Validate() error {
	if c.RingCapacity < 0 {
		return NewLoggerErrorWithField(ErrCodeInvalidConfig, "ring capacity cannot be negative", "ring_capacity", fmt.Sprintf("%d", c.RingCapacity))
	}
	if c.ReleaseThreshold < 0 {
		return NewLoggerErrorWithField(ErrCodeInvalidConfig, "release threshold cannot be negative", "release_threshold", fmt.Sprintf("%d", c.ReleaseThreshold))
	}
	if !IsValidLevel(c.Level) {
		return NewLoggerErrorWithField(ErrCodeInvalidLevel, "invalid logging level", "level", fmt.Sprintf("%d", int(c.Level)))
	}
	if c.Rotation.MaxSizeBytes < 0 {
		return NewLoggerErrorWithField(ErrCodeInvalidConfig, "rotation max size cannot be negative", "max_size_bytes", fmt.Sprintf("%d", c.Rotation.MaxSizeBytes))
	}
	return nil
}

// Clone returns a deep-enough copy of c; Config holds no slices or maps
// that need independent copying beyond the struct itself.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
