// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/ajroetker/go-tilepipe/tile"
)

// newTestLauncher returns a launcher on a synthetic device with a 32-byte
// transfer block.
func newTestLauncher(tb testing.TB, lanes, scratchBytes int, opts ...Option) *Launcher {
	tb.Helper()
	opts = append([]Option{WithDevice(tile.Device{Lanes: lanes, ScratchBytes: scratchBytes, BlockBytes: 32})}, opts...)
	l := NewLauncher(opts...)
	tb.Cleanup(l.Close)
	return l
}

// ramp returns n distinct float32 values.
func ramp(n int) []float32 {
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(i)*0.5 - 3
	}
	return data
}

// filled returns a slice of n copies of v.
func filled[T tile.Element](n int, v T) []T {
	data := make([]T, n)
	for i := range data {
		data[i] = v
	}
	return data
}

func copyKernel() Kernel[float32, float32] {
	return NewKernel("copy", func(_ tile.ChunkDescriptor, in, out []float32) {
		copy(out, in)
	})
}

func inPlaceIdentity() Kernel[float32, float32] {
	return NewInPlaceKernel("identity", func(tile.ChunkDescriptor, []float32) {})
}

// jitterTracer sleeps a random time at the start of loads and stores, so
// transfers finish in a different order than in an undelayed run.
type jitterTracer struct {
	max time.Duration
}

func (j jitterTracer) Record(e Event) {
	if e.Phase == Begin && (e.Stage == StageLoad || e.Stage == StageStore) {
		time.Sleep(time.Duration(rand.Int64N(int64(j.max))))
	}
}

// slowRegion delays every transfer by a fixed amount.
type slowRegion[T tile.Element] struct {
	Region[T]
	read, write time.Duration
}

func (s slowRegion[T]) ReadAt(dst []T, off int) {
	time.Sleep(s.read)
	s.Region.ReadAt(dst, off)
}

func (s slowRegion[T]) WriteAt(src []T, off int) {
	time.Sleep(s.write)
	s.Region.WriteAt(src, off)
}

// countingTracer counts events per stage.
type countingTracer struct {
	mu     sync.Mutex
	counts map[Stage]int
}

func (c *countingTracer) Record(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[Stage]int)
	}
	c.counts[e.Stage]++
}

func (c *countingTracer) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.counts {
		n += v
	}
	return n
}
