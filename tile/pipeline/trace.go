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

// State is a lane's position in its pipeline state machine.
type State int

const (
	// Idle is the state before the lane looks at its assignment.
	Idle State = iota
	// Prologue allocates scratch and issues the first load.
	Prologue
	// Steady runs load, compute and store one chunk apart.
	Steady
	// Drain waits for the final stores to commit.
	Drain
	// Done means the lane has exited and touches no tokens.
	Done
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Prologue:
		return "prologue"
	case Steady:
		return "steady"
	case Drain:
		return "drain"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Stage identifies what an Event reports on.
type Stage int

const (
	// StageLoad is a transfer from device memory into scratch.
	StageLoad Stage = iota
	// StageCompute is the kernel transform.
	StageCompute
	// StageStore is a transfer from scratch back to device memory.
	StageStore
	// StageLane is a lane state transition; Event.State holds the new state.
	StageLane
)

// String returns a human-readable name for the stage.
func (s Stage) String() string {
	switch s {
	case StageLoad:
		return "load"
	case StageCompute:
		return "compute"
	case StageStore:
		return "store"
	case StageLane:
		return "lane"
	default:
		return "unknown"
	}
}

// Phase marks the start or the end of a stage.
type Phase int

const (
	Begin Phase = iota
	End
)

func (p Phase) String() string {
	if p == Begin {
		return "begin"
	}
	return "end"
}

// Event is one trace record.
type Event struct {
	Seq    uint64 // assigned by Recorder, increasing in record order
	Kernel string
	Lane   int
	Chunk  int // lane-local chunk index; -1 for lane events
	Half   int
	Stage  Stage
	Phase  Phase
	State  State
}

// Tracer receives pipeline events. Record is called synchronously from the
// lane and transfer goroutines, so a slow tracer slows the stage that
// reports; tests use this to inject latency.
type Tracer interface {
	Record(e Event)
}

// Recorder is a Tracer that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	seq    uint64
	events []Event
}

// Record appends e with the next sequence number.
func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e.Seq = r.seq
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events in sequence order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset discards all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq = 0
	r.events = r.events[:0]
}

func stageEvent(kernel string, c tile.ChunkDescriptor, s Stage, p Phase) Event {
	return Event{
		Kernel: kernel,
		Lane:   c.Lane,
		Chunk:  c.Index,
		Half:   c.Half(),
		Stage:  s,
		Phase:  p,
		State:  Steady,
	}
}
