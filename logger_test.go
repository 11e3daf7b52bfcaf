// logger_test.go: Producer/consumer lifecycle against a real file writer
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package nanolog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	agilerrors "github.com/agilira/go-errors"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, opts ...Option) *Logger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.nanolog")
	l, err := New(Config{LogFilePath: path, Level: Debug}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLoggerLogAndSync(t *testing.T) {
	l := newTestLogger(t)
	site := RegisterSite("request %s took %f ms with code %d", Notice)

	p := l.NewProducer()
	for i := 0; i < 50; i++ {
		p.Log(site, "GET /widgets", 12.5, i)
	}

	require.NoError(t, l.Sync())

	stats := l.GetStats()
	require.Equal(t, uint64(50), stats.EntriesEncoded)
	require.Zero(t, stats.MalformedEntries)
	require.Greater(t, stats.BytesWritten, uint64(0))
}

func TestLoggerSetAndGetLogLevel(t *testing.T) {
	l := newTestLogger(t)
	require.Equal(t, Debug, l.LogLevel())

	l.SetLogLevel(Error)
	require.Equal(t, Error, l.LogLevel())

	noisy := RegisterSite("heartbeat %d", Notice)
	p := l.NewProducer()
	p.Log(noisy, 1)
	require.NoError(t, l.Sync())

	require.Zero(t, l.GetStats().EntriesEncoded)
}

func TestLoggerArgumentMismatchReportsError(t *testing.T) {
	reported := make(chan string, 1)
	SetErrorHandler(func(err *agilerrors.Error) {
		select {
		case reported <- err.Message:
		default:
		}
	})
	defer SetErrorHandler(nil)

	l := newTestLogger(t)
	site := RegisterSite("needs two args %d %s", Notice)
	p := l.NewProducer()

	p.Log(site, 1) // missing the second argument

	select {
	case msg := <-reported:
		require.Contains(t, msg, "argument mismatch")
	case <-time.After(time.Second):
		t.Fatal("expected an error report for the mismatched call")
	}
}

func TestLoggerDropOnFullCountsDropped(t *testing.T) {
	l := newTestLogger(t, WithRingCapacity(64), WithBackpressurePolicy(DropOnFull))
	site := RegisterSite("burst %d", Notice)
	p := l.NewProducer()

	for i := 0; i < 1000; i++ {
		p.Log(site, i)
	}

	require.Greater(t, p.Dropped(), uint64(0))
}

func TestLoggerCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "close.nanolog")
	l, err := New(Config{LogFilePath: path})
	require.NoError(t, err)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}

func TestLoggerPreallocateDoesNotPanic(t *testing.T) {
	l := newTestLogger(t)
	p := l.NewProducer()
	require.NotPanics(t, func() {
		p.Preallocate()
		l.Preallocate()
	})
}

func TestLoggerProducerCloseRemovesRing(t *testing.T) {
	l := newTestLogger(t)
	p := l.NewProducer()
	site := RegisterSite("closing soon %d", Notice)
	p.Log(site, 1)
	require.NoError(t, l.Sync())

	p.Close()
	require.NoError(t, l.Sync())
}

func TestLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "written.nanolog")
	l, err := New(Config{LogFilePath: path, Level: Debug})
	require.NoError(t, err)

	site := RegisterSite("file write check %d", Notice)
	p := l.NewProducer()
	p.Log(site, 7)
	require.NoError(t, l.Sync())
	require.NoError(t, l.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestLoggerPrintConfigAndStatsString(t *testing.T) {
	l := newTestLogger(t)
	require.Contains(t, l.PrintConfig(), "nanolog config:")

	stats := l.GetStats()
	require.Contains(t, stats.String(), "nanolog stats:")
}

func TestLoggerSyncAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync-after-close.nanolog")
	l, err := New(Config{LogFilePath: path})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	done := make(chan struct{})
	go func() {
		_ = l.Sync()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Sync did not return after Close")
	}
}
