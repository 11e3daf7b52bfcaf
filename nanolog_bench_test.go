// nanolog_bench_test.go: Throughput benchmarks for the hot Log/Sync path
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package nanolog

import (
	"path/filepath"
	"testing"
)

var benchSite = RegisterSite("benchmark request %s took %f ms with code %d", Notice)

func newBenchLogger(b *testing.B) *Logger {
	b.Helper()
	path := filepath.Join(b.TempDir(), "bench.nanolog")
	l, err := New(Config{LogFilePath: path, Level: Debug})
	if err != nil {
		b.Fatalf("failed to create logger: %v", err)
	}
	b.Cleanup(func() { _ = l.Close() })
	return l
}

// BenchmarkLog measures a single producer's steady-state reserve/write/commit
// cost with no consumer backpressure in play.
func BenchmarkLog(b *testing.B) {
	l := newBenchLogger(b)
	p := l.NewProducer()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Log(benchSite, "GET /widgets", 12.5, i)
	}
	b.StopTimer()

	if err := l.Sync(); err != nil {
		b.Fatalf("sync failed: %v", err)
	}
}

// BenchmarkLogParallel measures throughput with one producer per goroutine,
// the intended usage shape for a multi-threaded process.
func BenchmarkLogParallel(b *testing.B) {
	l := newBenchLogger(b)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		p := l.NewProducer()
		i := 0
		for pb.Next() {
			p.Log(benchSite, "GET /widgets", 12.5, i)
			i++
		}
	})
	b.StopTimer()

	if err := l.Sync(); err != nil {
		b.Fatalf("sync failed: %v", err)
	}
}

// BenchmarkSync measures the cost of draining and fsyncing a backlog of
// already-committed entries.
func BenchmarkSync(b *testing.B) {
	l := newBenchLogger(b)
	p := l.NewProducer()

	const backlog = 256
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j := 0; j < backlog; j++ {
			p.Log(benchSite, "GET /widgets", 12.5, j)
		}
		if err := l.Sync(); err != nil {
			b.Fatalf("sync failed: %v", err)
		}
	}
}
