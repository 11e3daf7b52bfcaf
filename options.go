// options.go: Functional options for logger construction
//
// nanolog's hot path is deliberately minimal: a log call records a
// timestamp, a site id, and raw argument bytes, nothing else. There is
// no caller capture, no stack traces, and no hook system on that path
// — all of that work belongs to the consumer side, which formats
// entries only when the decoder runs, offline. Options here configure
// the runtime side of the logger instead: ring sizing, idle behavior,
// and output shape.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package nanolog

import "github.com/agilira/nanolog/internal/zephyroslite"

// Option modifies a Config during logger construction.
type Option func(*Config)

// WithRingCapacity sets the byte capacity of each producer's staging ring.
func WithRingCapacity(bytes int) Option {
	return func(c *Config) { c.RingCapacity = bytes }
}

// WithBackpressurePolicy controls what reserve does when a ring fills up.
func WithBackpressurePolicy(p BackpressurePolicy) Option {
	return func(c *Config) { c.BackpressurePolicy = p }
}

// WithIdleStrategy overrides how a blocking reserve spins and how the
// consumer waits when every ring is empty.
func WithIdleStrategy(s zephyroslite.IdleStrategy) Option {
	return func(c *Config) { c.IdleStrategy = s }
}

// WithLevel sets the initial minimum severity.
func WithLevel(lvl Level) Option {
	return func(c *Config) { c.Level = lvl }
}

// WithLogFile sets the path the consumer writes the compacted log to.
func WithLogFile(path string) Option {
	return func(c *Config) { c.LogFilePath = path }
}

// WithReleaseThreshold sets how many compacted bytes accumulate in the
// consumer's output buffer before it flushes to the file writer.
func WithReleaseThreshold(bytes int) Option {
	return func(c *Config) { c.ReleaseThreshold = bytes }
}

// WithDirectIO enables 512-byte aligned, padded file writes.
func WithDirectIO() Option {
	return func(c *Config) { c.DirectIO = true }
}

// WithCompression enables block compression of the consumer's output
// stream before it reaches the file writer.
func WithCompression() Option {
	return func(c *Config) { c.Compress = true }
}

// WithRotation enables size-based log rotation via the lethe backend.
func WithRotation(maxSizeBytes int64, maxBackups int) Option {
	return func(c *Config) {
		c.Rotation = RotationConfig{MaxSizeBytes: maxSizeBytes, MaxBackups: maxBackups}
	}
}

// applyOptions returns a new Config with every opt applied in order,
// followed by withDefaults to fill in anything still unset.
func applyOptions(base *Config, opts ...Option) *Config {
	cfg := base.Clone()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg.withDefaults()
}
