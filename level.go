// level.go: Logging level definitions and utilities for nanolog
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package nanolog

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Level represents the severity of a log site.
//
// Performance Notes:
// - Level is implemented as int32 for fast comparisons
// - Atomic operations used for thread-safe level changes
// - Zero allocation for level checks via inlined comparisons
type Level int32

// Log levels in order of increasing severity. Debug starts at 1, so the
// zero Level is not a valid level and an unset Config.Level becomes
// Notice.
const (
	Debug   Level = iota + 1 // Debug information, typically disabled in production
	Notice               // General information messages
	Warning              // Warning messages for potentially harmful situations
	Error                // Error messages for failure conditions
	Silent               // Disables all logging
)

// levelNamesMap provides reverse lookup from string to level.
// Pre-computed map for faster parsing operations.
var levelNamesMap = map[string]Level{
	"debug":   Debug,
	"notice":  Notice,
	"info":    Notice, // Alias for notice
	"warning": Warning,
	"warn":    Warning, // Alias for warning
	"error":   Error,
	"err":     Error, // Alias for error
	"silent":  Silent,
	"":        Notice, // Empty string defaults to Notice
}

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Notice:
		return "notice"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Silent:
		return "silent"
	default:
		return "unknown"
	}
}

// Enabled determines if this level is enabled given a minimum level.
// This is a critical hot path function, checked on every log site call.
func (l Level) Enabled(min Level) bool {
	return l >= min
}

// IsDebug returns true if the level is Debug.
func (l Level) IsDebug() bool {
	return l == Debug
}

// IsNotice returns true if the level is Notice.
func (l Level) IsNotice() bool {
	return l == Notice
}

// IsWarning returns true if the level is Warning.
func (l Level) IsWarning() bool {
	return l == Warning
}

// IsError returns true if the level is Error.
func (l Level) IsError() bool {
	return l == Error
}

// ParseLevel parses a string representation of a level and returns the
// corresponding Level. It handles common aliases and is case-insensitive.
// Returns Notice for an empty string as a sensible default.
func ParseLevel(s string) (Level, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))

	if level, exists := levelNamesMap[normalized]; exists {
		return level, nil
	}

	return Notice, fmt.Errorf("unknown level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	str := l.String()
	if str == "unknown" {
		return nil, fmt.Errorf("cannot marshal unknown level %d", l)
	}
	return []byte(str), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	if l == nil {
		return fmt.Errorf("cannot unmarshal into nil Level pointer")
	}

	parsed, err := ParseLevel(string(b))
	if err != nil {
		return fmt.Errorf("failed to unmarshal level: %w", err)
	}

	*l = parsed
	return nil
}

// AtomicLevel provides atomic operations on a Level. The runtime logger's
// current level lives in one of these so SetLogLevel can race safely
// against every producer's hot-path level check.
type AtomicLevel struct {
	level int32
}

// NewAtomicLevel creates a new AtomicLevel with the given initial level.
func NewAtomicLevel(level Level) *AtomicLevel {
	return &AtomicLevel{level: int32(level)}
}

// Level returns the current level atomically.
func (al *AtomicLevel) Level() Level {
	return Level(atomic.LoadInt32(&al.level))
}

// SetLevel sets the level atomically.
func (al *AtomicLevel) SetLevel(level Level) {
	atomic.StoreInt32(&al.level, int32(level))
}

// Enabled checks if the given level is enabled atomically.
func (al *AtomicLevel) Enabled(level Level) bool {
	return level >= Level(atomic.LoadInt32(&al.level))
}

// String returns the string representation of the current level.
func (al *AtomicLevel) String() string {
	return al.Level().String()
}

// MarshalText implements encoding.TextMarshaler for AtomicLevel.
func (al *AtomicLevel) MarshalText() ([]byte, error) {
	return al.Level().MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler for AtomicLevel.
func (al *AtomicLevel) UnmarshalText(b []byte) error {
	var level Level
	if err := level.UnmarshalText(b); err != nil {
		return err
	}
	al.SetLevel(level)
	return nil
}

// LevelFlag is a command-line flag implementation for Level, implementing
// the flag.Value interface.
type LevelFlag struct {
	level *Level
}

// NewLevelFlag creates a new LevelFlag pointing to the given Level.
func NewLevelFlag(level *Level) *LevelFlag {
	return &LevelFlag{level: level}
}

// String returns the string representation of the level.
func (lf *LevelFlag) String() string {
	if lf.level == nil {
		return Notice.String()
	}
	return lf.level.String()
}

// Set parses and sets the level from a string.
func (lf *LevelFlag) Set(s string) error {
	if lf.level == nil {
		return fmt.Errorf("cannot set level on nil LevelFlag")
	}

	parsed, err := ParseLevel(s)
	if err != nil {
		return fmt.Errorf("failed to set level flag: %w", err)
	}

	*lf.level = parsed
	return nil
}

// Type returns the type description for help text.
func (lf *LevelFlag) Type() string {
	return "level"
}

// AllLevels returns every valid level in ascending severity order.
func AllLevels() []Level {
	return []Level{Debug, Notice, Warning, Error, Silent}
}

// AllLevelNames returns the string name of every valid level.
func AllLevelNames() []string {
	levels := AllLevels()
	names := make([]string, len(levels))
	for i, level := range levels {
		names[i] = level.String()
	}
	return names
}

// IsValidLevel checks if the given level is a valid predefined level.
func IsValidLevel(level Level) bool {
	return level >= Debug && level <= Silent
}
