// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool provides a persistent, reusable pool of lane workers.
// A Pool is created once per launcher and reused across launches, so a
// launch does not pay for spawning its lanes.
//
// Usage:
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	pool.RunLanes(plan.Lanes(), func(lane int) {
//	    runLane(lane)
//	})
package workerpool

import (
	"runtime"
	"sync"
)

// Pool is a persistent worker pool that can be reused across many parallel
// operations. Workers are spawned once at creation and reused.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once

	// mu orders submissions against Close: sends happen under the read
	// lock, closing the channel under the write lock.
	mu     sync.RWMutex
	closed bool
}

// workItem represents a single unit of work handed to a worker.
type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// New creates a new worker pool with the specified number of workers.
// Workers are spawned immediately and persist until Close is called.
// If numWorkers <= 0, uses GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		// Buffer enough for all workers to have pending work
		workC: make(chan workItem, numWorkers*2),
	}

	for range numWorkers {
		go p.worker()
	}

	return p
}

// worker is the main loop for each persistent worker goroutine.
func (p *Pool) worker() {
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close shuts down the worker pool. All pending work will complete.
// Calling Close multiple times is safe, and so is calling it while other
// goroutines submit work: those calls either finish on the workers or fall
// back to running sequentially.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.closed = true
		close(p.workC)
	})
}

func (p *Pool) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// submit hands fns to the workers, each one counted on wg. It reports
// false, having queued nothing, when the pool is closed.
func (p *Pool) submit(fns []func(), wg *sync.WaitGroup) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	wg.Add(len(fns))
	for _, fn := range fns {
		p.workC <- workItem{fn: fn, barrier: wg}
	}
	return true
}

// RunLanes calls fn(lane) for every lane in [0, n), one work item per lane,
// and blocks until all of them return. Lanes beyond the worker count queue
// behind the running ones.
//
// Lanes must not depend on each other: a lane that waits for another lane
// can deadlock a pool with fewer workers than lanes.
func (p *Pool) RunLanes(n int, fn func(lane int)) {
	if n <= 0 {
		return
	}

	fns := make([]func(), n)
	for lane := range n {
		fns[lane] = func() { fn(lane) }
	}

	var wg sync.WaitGroup
	if n == 1 || !p.submit(fns, &wg) {
		// Fallback to sequential for a single lane or a closed pool
		for _, f := range fns {
			f()
		}
		return
	}
	wg.Wait()
}

// ParallelFor executes fn over [0, n) using the worker pool.
// Each worker processes a contiguous range of indices.
// Blocks until all work completes.
//
// fn receives (start, end) indices where work should process [start, end).
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}

	// Don't use more workers than items
	workers := min(p.numWorkers, n)
	if workers == 1 || p.isClosed() {
		fn(0, n)
		return
	}

	chunkSize := (n + workers - 1) / workers
	var fns []func()
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		fns = append(fns, func() { fn(start, end) })
	}

	var wg sync.WaitGroup
	if !p.submit(fns, &wg) {
		// Fallback to sequential if the pool closed meanwhile
		fn(0, n)
		return
	}
	wg.Wait()
}
