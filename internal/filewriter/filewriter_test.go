// filewriter_test.go: Buffering, alignment, and compression behavior
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package filewriter

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/s2"
	"github.com/stretchr/testify/require"
)

func TestWritePlainRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.nanolog")
	w, err := New(Options{Path: path})
	require.NoError(t, err)

	w.Stage([]byte("hello "))
	w.Stage([]byte("world"))
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, byte(plainStreamTag), data[0])
	require.Equal(t, "hello world", string(data[1:]))
}

func TestDirectIOPadsToAlignment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.nanolog")
	w, err := New(Options{Path: path, DirectIO: true})
	require.NoError(t, err)

	w.Stage(make([]byte, 10))
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(0), info.Size()%alignment)
	require.Equal(t, uint64((alignment-1)+(alignment-10)), w.Metrics().PadBytes)
}

func TestCompressedStreamDecompresses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.nanolog")
	w, err := New(Options{Path: path, Compress: true})
	require.NoError(t, err)

	payload := []byte("the quick brown fox jumps over the lazy dog")
	w.Stage(payload)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, byte(compressedStreamTag), data[0])

	r := s2.NewReader(bytesReader(data[1:]))
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestAsyncFlushCompletesBeforeSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.nanolog")
	w, err := New(Options{Path: path})
	require.NoError(t, err)

	w.Stage([]byte("async payload"))
	require.NoError(t, w.Flush(true))
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	require.Equal(t, uint64(1), w.Metrics().AsyncWritesCompleted)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "async payload", string(data[1:]))
}

type byteReader struct {
	data []byte
	pos  int
}

func bytesReader(b []byte) *byteReader { return &byteReader{data: b} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
