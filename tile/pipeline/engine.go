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
	"sync"

	"github.com/ajroetker/go-tilepipe/tile"
)

// lane holds the state of one lane for one launch: two scratch halves per
// buffer, the tokens that pass them between stages, and the queues feeding
// its two transfer engines.
//
// Token protocol, for half h:
//
//	loaded[h]   Load    -> Compute  input half filled
//	computed[h] Compute -> Store    output half ready to drain
//	inFree[h]   Store   -> Load     (in place) or Compute -> Load
//	outFree[h]  Store   -> Compute  (out of place only)
//
// Free tokens start set because both halves start empty. Every wait on a
// free token is matched by exactly one later set, so after the lane has
// waited each free token once more in Drain, every token is clear and every
// store has committed.
type lane[In, Out tile.Element] struct {
	id     int
	sched  tile.Schedule
	kernel Kernel[In, Out]
	src    Region[In]
	dst    Region[Out]
	tracer Tracer

	in  [2][]In
	out [2][]Out

	loaded   [2]Token
	computed [2]Token
	inFree   [2]Token
	outFree  [2]Token

	loads   chan tile.ChunkDescriptor
	stores  chan tile.ChunkDescriptor
	engines sync.WaitGroup
}

// runLane executes every chunk the schedule assigns to lane id.
func runLane[In, Out tile.Element](id int, s tile.Schedule, kern Kernel[In, Out], src Region[In], dst Region[Out], tr Tracer) {
	newLane(id, s, kern, src, dst, tr).run()
}

func newLane[In, Out tile.Element](id int, s tile.Schedule, kern Kernel[In, Out], src Region[In], dst Region[Out], tr Tracer) *lane[In, Out] {
	return &lane[In, Out]{id: id, sched: s, kernel: kern, src: src, dst: dst, tracer: tr}
}

// run drives the lane from Idle to Done. A lane without chunks goes
// straight to Done without allocating anything.
func (l *lane[In, Out]) run() {
	l.setState(Idle)
	n := l.sched.ChunksFor(l.id)
	if n == 0 {
		l.setState(Done)
		return
	}

	l.setState(Prologue)
	l.start()
	l.issueLoad(l.sched.Chunk(l.id, 0))

	l.setState(Steady)
	for k := range n {
		c := l.sched.Chunk(l.id, k)
		if k+1 < n {
			l.issueLoad(l.sched.Chunk(l.id, k+1))
		}
		l.compute(c)
		l.stores <- c
	}

	l.setState(Drain)
	l.drain()
	l.setState(Done)
}

// start allocates scratch and tokens and launches the transfer engines.
func (l *lane[In, Out]) start() {
	size := l.sched.HalfElements()
	for h := range 2 {
		l.in[h], l.out[h] = l.kernel.alloc(size)
		l.loaded[h] = NewToken()
		l.computed[h] = NewToken()
		l.inFree[h] = NewToken()
		l.inFree[h].Set()
		if !l.kernel.inPlace {
			l.outFree[h] = NewToken()
			l.outFree[h].Set()
		}
	}

	// Two slots per queue: at most one chunk per half is in flight.
	l.loads = make(chan tile.ChunkDescriptor, 2)
	l.stores = make(chan tile.ChunkDescriptor, 2)

	l.engines.Add(2)
	go l.loadEngine()
	go l.storeEngine()
}

// issueLoad waits until the chunk's input half may be overwritten and hands
// the chunk to the load engine.
func (l *lane[In, Out]) issueLoad(c tile.ChunkDescriptor) {
	l.inFree[c.Half()].Wait()
	l.loads <- c
}

// compute transforms the chunk once its input is loaded and, out of place,
// once the previous occupant of its output half has been stored.
func (l *lane[In, Out]) compute(c tile.ChunkDescriptor) {
	h := c.Half()
	l.loaded[h].Wait()
	if !l.kernel.inPlace {
		l.outFree[h].Wait()
	}

	n := c.ScratchLen()
	l.trace(c, StageCompute, Begin)
	l.kernel.transform(c, l.in[h][:n], l.out[h][:n])
	l.trace(c, StageCompute, End)

	if !l.kernel.inPlace {
		l.inFree[h].Set()
	}
	l.computed[h].Set()
}

// drain waits for every outstanding store and stops the transfer engines.
func (l *lane[In, Out]) drain() {
	close(l.loads)
	close(l.stores)
	for h := range 2 {
		l.inFree[h].Wait()
		if !l.kernel.inPlace {
			l.outFree[h].Wait()
		}
	}
	l.engines.Wait()
}

// loadEngine copies chunks from device memory into their input half, pads
// partial rows and signals Compute.
func (l *lane[In, Out]) loadEngine() {
	defer l.engines.Done()
	for c := range l.loads {
		h := c.Half()
		l.trace(c, StageLoad, Begin)
		buf := l.in[h]
		for r := range c.Rows {
			row := buf[r*c.Stride : (r+1)*c.Stride]
			l.src.ReadAt(row[:c.Cols], c.Offset+r*c.Cols)
			if c.Cols < c.Stride {
				fill(row[c.Cols:], l.kernel.pad)
			}
		}
		l.trace(c, StageLoad, End)
		l.loaded[h].Set()
	}
}

// storeEngine drains computed halves to device memory, copying only the
// valid elements of each row, and releases the half.
func (l *lane[In, Out]) storeEngine() {
	defer l.engines.Done()
	for c := range l.stores {
		h := c.Half()
		l.computed[h].Wait()
		l.trace(c, StageStore, Begin)
		buf := l.out[h]
		for r := range c.Rows {
			l.dst.WriteAt(buf[r*c.Stride:r*c.Stride+c.Cols], c.Offset+r*c.Cols)
		}
		l.trace(c, StageStore, End)
		if l.kernel.inPlace {
			l.inFree[h].Set()
		} else {
			l.outFree[h].Set()
		}
	}
}

func (l *lane[In, Out]) setState(s State) {
	if l.tracer != nil {
		l.tracer.Record(Event{Kernel: l.kernel.name, Lane: l.id, Chunk: -1, Stage: StageLane, State: s})
	}
}

func (l *lane[In, Out]) trace(c tile.ChunkDescriptor, s Stage, p Phase) {
	if l.tracer != nil {
		l.tracer.Record(stageEvent(l.kernel.name, c, s, p))
	}
}

func fill[T tile.Element](buf []T, v T) {
	for i := range buf {
		buf[i] = v
	}
}
