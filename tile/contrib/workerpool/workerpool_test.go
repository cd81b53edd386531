// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNew(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	if pool.NumWorkers() != 4 {
		t.Errorf("NumWorkers() = %d, want 4", pool.NumWorkers())
	}
}

func TestNewDefault(t *testing.T) {
	pool := New(0)
	defer pool.Close()

	if pool.NumWorkers() != runtime.GOMAXPROCS(0) {
		t.Errorf("NumWorkers() = %d, want %d", pool.NumWorkers(), runtime.GOMAXPROCS(0))
	}
}

func TestRunLanes(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	// More lanes than workers: the extra lanes queue.
	n := 37
	hits := make([]atomic.Int32, n)
	pool.RunLanes(n, func(lane int) {
		hits[lane].Add(1)
	})

	for lane := range hits {
		if got := hits[lane].Load(); got != 1 {
			t.Errorf("lane %d ran %d times, want 1", lane, got)
		}
	}
}

func TestRunLanesConcurrent(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	// Every lane blocks until all four have started, which only succeeds
	// if the pool runs them at the same time.
	var started sync.WaitGroup
	started.Add(4)
	pool.RunLanes(4, func(int) {
		started.Done()
		started.Wait()
	})
}

func TestRunLanesZeroN(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	var called bool
	pool.RunLanes(0, func(int) {
		called = true
	})
	if called {
		t.Error("RunLanes with n=0 should not call fn")
	}
}

func TestParallelFor(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 100
	results := make([]int, n)

	pool.ParallelFor(n, func(start, end int) {
		for i := start; i < end; i++ {
			results[i] = i * 2
		}
	})

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestParallelForSmallN(t *testing.T) {
	pool := New(8)
	defer pool.Close()

	// Test with n smaller than workers
	n := 3
	var count atomic.Int32

	pool.ParallelFor(n, func(start, end int) {
		count.Add(int32(end - start))
	})

	if count.Load() != int32(n) {
		t.Errorf("count = %d, want %d", count.Load(), n)
	}
}

func TestCloseMultipleTimes(t *testing.T) {
	pool := New(4)
	pool.Close()
	pool.Close() // Should not panic
}

func TestClosedPoolFallback(t *testing.T) {
	pool := New(4)
	pool.Close()

	n := 10
	var ran atomic.Int32
	// Should still work (sequential fallback)
	pool.RunLanes(n, func(int) {
		ran.Add(1)
	})
	if ran.Load() != int32(n) {
		t.Errorf("ran %d lanes, want %d", ran.Load(), n)
	}

	results := make([]int, 100)
	pool.ParallelFor(len(results), func(start, end int) {
		for i := start; i < end; i++ {
			results[i] = i * 2
		}
	})
	for i := range results {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestCloseDuringRunLanes(t *testing.T) {
	for range 50 {
		pool := New(2)

		const callers, lanes = 8, 6
		var ran atomic.Int32
		var wg sync.WaitGroup
		for range callers {
			wg.Go(func() {
				pool.RunLanes(lanes, func(int) { ran.Add(1) })
				pool.ParallelFor(lanes, func(start, end int) { ran.Add(int32(end - start)) })
			})
		}
		pool.Close()
		wg.Wait()

		if got, want := ran.Load(), int32(2*callers*lanes); got != want {
			t.Fatalf("ran %d items, want %d", got, want)
		}
	}
}

func BenchmarkRunLanes(b *testing.B) {
	pool := New(0) // Use GOMAXPROCS
	defer pool.Close()

	lanes := pool.NumWorkers()
	var sink atomic.Int64
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.RunLanes(lanes, func(lane int) {
			sink.Add(int64(lane))
		})
	}
}
