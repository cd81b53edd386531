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

package tile

import "github.com/samber/lo"

// Planner defaults.
const (
	// DefaultAlignElements is one 32-byte block of 4-byte elements.
	DefaultAlignElements = MinBlockBytes / 4

	// DoubleBuffer is the default scratch divisor: each buffer is split
	// into two halves that alternate between chunks.
	DoubleBuffer = 2
)

// Strategy selects how chunks are dealt to lanes.
type Strategy int

const (
	// Blockwise gives every lane a contiguous run of chunks. Lanes with a
	// lower index receive the extra chunk when the count does not divide.
	Blockwise Strategy = iota

	// Interleaved deals chunk c to lane c % LaneCount.
	Interleaved
)

// String returns a human-readable name for the strategy.
func (s Strategy) String() string {
	switch s {
	case Blockwise:
		return "blockwise"
	case Interleaved:
		return "interleaved"
	default:
		return "unknown"
	}
}

// PlanOption configures Plan and PlanRows. The constants behind chunk
// sizing differ from operator to operator, so none of them is fixed here.
type PlanOption func(*planConfig)

type planConfig struct {
	align    int
	divisor  int
	reserved int
	strategy Strategy
}

func newPlanConfig(opts []PlanOption) planConfig {
	cfg := planConfig{
		align:    DefaultAlignElements,
		divisor:  DoubleBuffer,
		strategy: Blockwise,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithAlignment sets the alignment block in elements. Chunk capacities and
// scratch row pitches are multiples of it.
func WithAlignment(elements int) PlanOption {
	return func(c *planConfig) { c.align = elements }
}

// WithBufferDivisor sets how many equal parts the usable scratch budget is
// split into. One part is one chunk. The default is DoubleBuffer, which is
// also the minimum: a lane always holds two halves.
func WithBufferDivisor(n int) PlanOption {
	return func(c *planConfig) { c.divisor = n }
}

// WithReserved sets scratch elements held back for operator temporaries
// before the budget is divided.
func WithReserved(elements int) PlanOption {
	return func(c *planConfig) { c.reserved = elements }
}

// WithStrategy sets how chunks are dealt to lanes.
func WithStrategy(s Strategy) PlanOption {
	return func(c *planConfig) { c.strategy = s }
}

// PartitionPlan describes how a flat workload is divided among lanes and
// chunks. It is created once per launch and only read afterwards.
//
// Every chunk holds ChunkCapacity elements except the globally last one,
// which holds TailChunkSize elements when TailChunkSize is non-zero.
type PartitionPlan struct {
	TotalElements  int
	LanesAvailable int
	LaneCount      int // lanes with at least one chunk
	ChunkCapacity  int // elements per full chunk, a multiple of AlignElements
	AlignElements  int
	TotalChunks    int
	ChunksPerLane  []int // len == LaneCount
	LaneFirstChunk []int // global index of each lane's first chunk
	TailChunkSize  int   // 0 when the workload divides into full chunks
	Strategy       Strategy
}

// Plan partitions totalElements across at most laneCountAvailable lanes
// using chunks that fit scratchBudgetElements.
//
// A zero workload yields a plan with no lanes. Invalid settings are reported
// as a *ConfigError before anything runs.
func Plan(totalElements, laneCountAvailable, scratchBudgetElements int, opts ...PlanOption) (PartitionPlan, error) {
	cfg := newPlanConfig(opts)
	fail := func(err error) (PartitionPlan, error) {
		return PartitionPlan{}, &ConfigError{
			Op:             "plan",
			Err:            err,
			TotalElements:  totalElements,
			LanesAvailable: laneCountAvailable,
			BudgetElements: scratchBudgetElements,
			AlignElements:  cfg.align,
		}
	}

	switch {
	case cfg.align < 1 || cfg.divisor < DoubleBuffer:
		return fail(ErrBadAlignment)
	case laneCountAvailable < 1:
		return fail(ErrNoLanes)
	case totalElements < 0:
		return fail(ErrNegativeWorkload)
	}

	capacity := chunkCapacity(scratchBudgetElements, cfg)
	if capacity == 0 {
		return fail(ErrScratchTooSmall)
	}
	return distribute(totalElements, laneCountAvailable, capacity, cfg.align, cfg.strategy), nil
}

// chunkCapacity divides the usable budget and rounds down to the alignment
// block. It returns 0 when not even one block fits.
func chunkCapacity(budget int, cfg planConfig) int {
	usable := budget - cfg.reserved
	if usable <= 0 {
		return 0
	}
	return AlignDown(usable/cfg.divisor, cfg.align)
}

// distribute deals ceil(units/capacity) chunks to lanes so that chunk counts
// differ by at most one.
func distribute(units, lanes, capacity, align int, strategy Strategy) PartitionPlan {
	p := PartitionPlan{
		TotalElements:  units,
		LanesAvailable: lanes,
		ChunkCapacity:  capacity,
		AlignElements:  align,
		Strategy:       strategy,
	}
	if units > 0 {
		p.TotalChunks = CeilDiv(units, capacity)
		p.LaneCount = min(p.TotalChunks, lanes)
	}

	p.ChunksPerLane = make([]int, p.LaneCount)
	p.LaneFirstChunk = make([]int, p.LaneCount)
	if p.LaneCount == 0 {
		return p
	}

	base, extra := p.TotalChunks/p.LaneCount, p.TotalChunks%p.LaneCount
	next := 0
	for i := range p.LaneCount {
		p.ChunksPerLane[i] = base
		if i < extra {
			p.ChunksPerLane[i]++
		}
		switch strategy {
		case Interleaved:
			p.LaneFirstChunk[i] = i
		default:
			p.LaneFirstChunk[i] = next
			next += p.ChunksPerLane[i]
		}
	}

	if last := units - capacity*(p.TotalChunks-1); last < capacity {
		p.TailChunkSize = last
	}
	return p
}

// Lanes returns the number of lanes with work.
func (p PartitionPlan) Lanes() int {
	return p.LaneCount
}

// ChunksFor returns the number of chunks lane processes.
func (p PartitionPlan) ChunksFor(lane int) int {
	if lane < 0 || lane >= p.LaneCount {
		return 0
	}
	return p.ChunksPerLane[lane]
}

// HalfElements returns the size of one scratch buffer half.
func (p PartitionPlan) HalfElements() int {
	return p.ChunkCapacity
}

// Elements returns the number of elements the plan covers.
func (p PartitionPlan) Elements() int {
	return p.TotalElements
}

// GlobalChunk returns the workload-wide index of chunk k of lane.
func (p PartitionPlan) GlobalChunk(lane, k int) int {
	if p.Strategy == Interleaved {
		return lane + k*p.LaneCount
	}
	return p.LaneFirstChunk[lane] + k
}

// LastChunkSize returns the element count of the globally last chunk.
func (p PartitionPlan) LastChunkSize() int {
	if p.TotalChunks == 0 {
		return 0
	}
	if p.TailChunkSize > 0 {
		return p.TailChunkSize
	}
	return p.ChunkCapacity
}

// LaneOffset returns the first element index handled by lane. Lanes without
// work report TotalElements.
func (p PartitionPlan) LaneOffset(lane int) int {
	if lane < 0 || lane >= p.LaneCount {
		return p.TotalElements
	}
	return p.GlobalChunk(lane, 0) * p.ChunkCapacity
}

// LaneElements returns the number of elements lane processes.
func (p PartitionPlan) LaneElements(lane int) int {
	n := p.ChunksFor(lane) * p.ChunkCapacity
	if n > 0 && p.TailChunkSize > 0 && p.GlobalChunk(lane, p.ChunksFor(lane)-1) == p.TotalChunks-1 {
		n -= p.ChunkCapacity - p.TailChunkSize
	}
	return n
}

// Chunk describes chunk k of lane. Only the globally last chunk can be
// short; it is padded up to the alignment block in scratch.
func (p PartitionPlan) Chunk(lane, k int) ChunkDescriptor {
	g := p.GlobalChunk(lane, k)
	count := p.ChunkCapacity
	if g == p.TotalChunks-1 {
		count = p.LastChunkSize()
	}
	return ChunkDescriptor{
		Lane:   lane,
		Index:  k,
		Offset: g * p.ChunkCapacity,
		Rows:   1,
		Cols:   count,
		Stride: AlignUp(count, p.AlignElements),
	}
}

// Imbalance returns max(ChunksPerLane) - min(ChunksPerLane).
func (p PartitionPlan) Imbalance() int {
	if p.LaneCount == 0 {
		return 0
	}
	return lo.Max(p.ChunksPerLane) - lo.Min(p.ChunksPerLane)
}

// Descriptors lists every chunk of the plan, lane by lane.
func (p PartitionPlan) Descriptors() []ChunkDescriptor {
	return descriptors(p)
}

func descriptors(s Schedule) []ChunkDescriptor {
	var out []ChunkDescriptor
	for lane := range s.Lanes() {
		for k := range s.ChunksFor(lane) {
			out = append(out, s.Chunk(lane, k))
		}
	}
	return out
}
