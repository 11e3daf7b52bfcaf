// default.go: Process-wide default logger and package-level convenience API
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package nanolog

import (
	"sync"
)

var (
	defaultOnce      sync.Once
	defaultMu        sync.RWMutex
	defaultLoggerRef *Logger
	defaultInitErr   error

	defaultProducerPool = sync.Pool{
		New: func() interface{} { return defaultLogger().NewProducer() },
	}
)

// defaultLogger lazily constructs the process-wide logger on first use,
// writing to the default log path with production defaults. Programs
// that want explicit control over the output path or ring sizing should
// call New directly instead of relying on the package-level functions.
func defaultLogger() *Logger {
	defaultOnce.Do(func() {
		l, err := New(Config{})
		defaultMu.Lock()
		defaultLoggerRef, defaultInitErr = l, err
		defaultMu.Unlock()
		if err != nil {
			handleError(WrapLoggerError(err, ErrCodeFileOpenFailed, "failed to construct default logger"))
		}
	})
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLoggerRef
}

// Log records one entry against the default logger using a pooled
// producer. Most programs that log from many goroutines should instead
// call Logger.NewProducer once per goroutine and reuse that handle; this
// is the zero-setup path for simple callers and short-lived scripts.
func Log(site *Site, args ...interface{}) {
	l := defaultLogger()
	if l == nil {
		return
	}
	p := defaultProducerPool.Get().(*Producer)
	p.Log(site, args...)
	defaultProducerPool.Put(p)
}

// SetLogLevel changes the default logger's minimum severity.
func SetLogLevel(level Level) {
	if l := defaultLogger(); l != nil {
		l.SetLogLevel(level)
	}
}

// SetLogFile closes the default logger and reopens it against a new
// path, carrying over its current configuration.
func SetLogFile(path string) error {
	l := defaultLogger()
	if l == nil {
		return defaultInitErr
	}

	next := l.cfg.Clone()
	next.LogFilePath = path

	if err := l.Close(); err != nil {
		return WrapLoggerError(err, ErrCodeFileOpenFailed, "failed to close previous log file")
	}

	replacement, err := New(*next)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	defaultLoggerRef = replacement
	defaultMu.Unlock()
	return nil
}

// Sync blocks until the default logger has flushed everything staged so far.
func Sync() error {
	if l := defaultLogger(); l != nil {
		return l.Sync()
	}
	return nil
}

// Preallocate forces the default logger's producer rings to page in
// their backing storage ahead of time.
func Preallocate() {
	if l := defaultLogger(); l != nil {
		l.Preallocate()
	}
}

// GetStats returns the default logger's current Stats.
func GetStats() Stats {
	if l := defaultLogger(); l != nil {
		return l.GetStats()
	}
	return Stats{}
}

// PrintConfig renders the default logger's effective configuration.
func PrintConfig() string {
	if l := defaultLogger(); l != nil {
		return l.PrintConfig()
	}
	return ""
}

// Close shuts down the default logger. Safe to call even if it was
// never constructed.
func Close() error {
	defaultMu.RLock()
	l := defaultLoggerRef
	defaultMu.RUnlock()
	if l != nil {
		return l.Close()
	}
	return nil
}
