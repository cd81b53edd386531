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

// RowPlan partitions a rows x cols workload whose chunks are whole rows, as
// needed by row reductions such as normalization and softmax.
//
// In scratch every row occupies RowStride elements, cols rounded up to the
// alignment block; the padding is refilled for every chunk.
type RowPlan struct {
	Rows         int
	Cols         int
	RowStride    int
	RowsPerChunk int

	// Units is the partition over rows. Its TotalElements counts rows and
	// its ChunkCapacity equals RowsPerChunk.
	Units PartitionPlan
}

var (
	_ Schedule = PartitionPlan{}
	_ Schedule = RowPlan{}
)

// PlanRows partitions rows of cols elements across at most
// laneCountAvailable lanes. A chunk never splits a row.
func PlanRows(rows, cols, laneCountAvailable, scratchBudgetElements int, opts ...PlanOption) (RowPlan, error) {
	cfg := newPlanConfig(opts)
	fail := func(err error) (RowPlan, error) {
		return RowPlan{}, &ConfigError{
			Op:             "plan rows",
			Err:            err,
			TotalElements:  rows * cols,
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
	case rows < 0 || cols < 0:
		return fail(ErrNegativeWorkload)
	}

	stride := AlignUp(max(cols, 1), cfg.align)
	usable := scratchBudgetElements - cfg.reserved
	if usable/cfg.divisor < cfg.align {
		return fail(ErrScratchTooSmall)
	}
	perChunk := usable / cfg.divisor / stride
	if perChunk == 0 {
		return fail(ErrRowTooWide)
	}

	units := rows
	if cols == 0 {
		units = 0
	}
	return RowPlan{
		Rows:         rows,
		Cols:         cols,
		RowStride:    stride,
		RowsPerChunk: perChunk,
		Units:        distribute(units, laneCountAvailable, perChunk, 1, cfg.strategy),
	}, nil
}

// Lanes returns the number of lanes with work.
func (p RowPlan) Lanes() int {
	return p.Units.LaneCount
}

// ChunksFor returns the number of chunks lane processes.
func (p RowPlan) ChunksFor(lane int) int {
	return p.Units.ChunksFor(lane)
}

// HalfElements returns the size of one scratch buffer half.
func (p RowPlan) HalfElements() int {
	return p.RowsPerChunk * p.RowStride
}

// Elements returns the number of elements the plan covers.
func (p RowPlan) Elements() int {
	return p.Rows * p.Cols
}

// Chunk describes chunk k of lane in elements.
func (p RowPlan) Chunk(lane, k int) ChunkDescriptor {
	u := p.Units.Chunk(lane, k)
	return ChunkDescriptor{
		Lane:   lane,
		Index:  k,
		Offset: u.Offset * p.Cols,
		Rows:   u.Cols,
		Cols:   p.Cols,
		Stride: p.RowStride,
	}
}

// FirstRow returns the first row of chunk k of lane.
func (p RowPlan) FirstRow(lane, k int) int {
	return p.Units.Chunk(lane, k).Offset
}

// Descriptors lists every chunk of the plan, lane by lane.
func (p RowPlan) Descriptors() []ChunkDescriptor {
	return descriptors(p)
}
