// magic.go: Seamless nanolog + Lethe rotation integration
//
// When both nanolog and github.com/agilira/lethe are imported, Lethe's
// init() registers a CapabilityProvider here; NewMagicLogger then hands
// file lifecycle to Lethe's optimized sink instead of a single
// never-rotated file, with no import of Lethe's package required in
// this module's own go.mod.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package nanolog

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agilira/nanolog/internal/filewriter"
	"github.com/agilira/nanolog/internal/lethe"
)

// NewMagicLogger creates a Logger with automatic Lethe-backed rotation
// when Lethe is registered, falling back to a single plain output file
// otherwise. filename and level are required; opts layer on top of the
// detected output configuration.
func NewMagicLogger(filename string, level Level, opts ...Option) (*Logger, error) {
	cleanPath := filepath.Clean(filename)
	if containsTraversal(cleanPath) {
		return nil, fmt.Errorf("nanolog: invalid file path %q", filename)
	}

	cfg := Config{Level: level, LogFilePath: cleanPath}

	if lethe.HasLetheCapabilities() {
		if sink, ok := createMagicLetheSink(cleanPath); ok {
			return newWithRotationSink(cfg, sink, opts...)
		}
	}

	return New(cfg, opts...)
}

// createMagicLetheSink asks the registered Lethe provider for an
// optimized sink with sensible rotation defaults. It reports ok=false
// on any failure so the caller can fall back to a plain file.
func createMagicLetheSink(filename string) (lethe.LetheWriter, bool) {
	return createRotationSink(filename, RotationConfig{MaxSizeBytes: 100 << 20, MaxBackups: 5})
}

// createRotationSink asks the registered Lethe provider for an
// optimized sink honoring an explicit RotationConfig. It reports
// ok=false on any failure or absent provider so the caller can fall
// back to a plain, never-rotated file.
func createRotationSink(filename string, rot RotationConfig) (lethe.LetheWriter, bool) {
	provider, exists := lethe.GetLetheProvider()
	if !exists {
		return nil, false
	}

	sink, err := provider.CreateOptimizedSink(filename,
		"maxSize", fmt.Sprintf("%dB", rot.MaxSizeBytes),
		"maxBackups", rot.MaxBackups,
		"compress", true,
		"hotReload", true,
	)
	if err != nil {
		return nil, false
	}

	letheWriter := lethe.DetectLetheCapabilities(sink)
	if letheWriter == nil {
		return nil, false
	}

	return letheWriter, true
}

// newWithRotationSink builds a Logger whose filewriter.Writer wraps an
// already-constructed Lethe sink instead of opening cfg.LogFilePath
// itself.
func newWithRotationSink(cfg Config, sink lethe.LetheWriter, opts ...Option) (*Logger, error) {
	full := applyOptions(&cfg, opts...)
	if err := full.Validate(); err != nil {
		return nil, err
	}

	fw, err := filewriter.New(filewriter.Options{
		RotationSink: sink,
		DirectIO:     full.DirectIO,
		Compress:     full.Compress,
		BufferHint:   full.ReleaseThreshold,
	})
	if err != nil {
		return nil, WrapLoggerError(err, ErrCodeFileOpenFailed, "failed to open magic log sink")
	}

	return newLogger(full, fw)
}

// containsTraversal rejects path patterns that would let a log path
// escape the caller's intended directory or touch a sensitive system
// path.
func containsTraversal(path string) bool {
	if strings.Contains(path, "..") || strings.Contains(path, "~") {
		return true
	}

	if strings.HasPrefix(path, "/etc/") ||
		strings.HasPrefix(path, "/proc/") ||
		strings.HasPrefix(path, "/sys/") {
		return true
	}

	if strings.HasPrefix(path, "C:\\Windows\\") ||
		strings.HasPrefix(path, "C:\\Program Files\\") {
		return true
	}

	return false
}
