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

// ChunkDescriptor locates one chunk of a lane's work. It is derived from a
// plan and a loop index on every iteration and is never stored.
//
// The valid data is Rows rows of Cols contiguous elements starting at Offset
// in device memory. In scratch, rows are laid out Stride elements apart;
// elements [Cols, Stride) of each row are padding.
type ChunkDescriptor struct {
	Lane   int // lane that owns the chunk
	Index  int // position in the lane's chunk sequence
	Offset int // first element in device memory
	Rows   int // 1 for flat workloads
	Cols   int // valid elements per row
	Stride int // scratch row pitch, a multiple of the alignment block
}

// Count returns the number of valid elements in the chunk.
func (c ChunkDescriptor) Count() int {
	return c.Rows * c.Cols
}

// ScratchLen returns the number of scratch elements the chunk occupies,
// padding included.
func (c ChunkDescriptor) ScratchLen() int {
	return c.Rows * c.Stride
}

// Padded reports whether the chunk needs padding in scratch.
func (c ChunkDescriptor) Padded() bool {
	return c.Stride != c.Cols
}

// Half returns the buffer half the chunk uses under double buffering.
func (c ChunkDescriptor) Half() int {
	return HalfIndex(c.Index)
}

// HalfIndex maps a lane-local chunk index to its buffer half. Double
// buffering alternates halves, so this is a pure function of the index.
func HalfIndex(k int) int {
	return k & 1
}

// Schedule is the read-only view of a plan that a lane executes.
// PartitionPlan and RowPlan implement it.
type Schedule interface {
	// Lanes returns the number of lanes with work.
	Lanes() int
	// ChunksFor returns the number of chunks assigned to lane.
	// Lanes outside [0, Lanes()) have none.
	ChunksFor(lane int) int
	// Chunk describes chunk k of lane.
	Chunk(lane, k int) ChunkDescriptor
	// HalfElements returns the size of one scratch buffer half.
	HalfElements() int
	// Elements returns the number of elements the schedule covers.
	Elements() int
}
