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

import "github.com/ajroetker/go-tilepipe/tile"

// Region is a handle to device memory holding a workload's input or output.
// Lanes access disjoint ranges of a region concurrently.
type Region[T tile.Element] interface {
	// Len returns the number of elements in the region.
	Len() int
	// ReadAt copies len(dst) elements starting at off into dst.
	ReadAt(dst []T, off int)
	// WriteAt copies src into the region starting at off.
	WriteAt(src []T, off int)
}

// Slice adapts a Go slice to a Region.
type Slice[T tile.Element] []T

// Len returns the number of elements in the slice.
func (s Slice[T]) Len() int {
	return len(s)
}

// ReadAt copies len(dst) elements starting at off into dst.
func (s Slice[T]) ReadAt(dst []T, off int) {
	copy(dst, s[off:off+len(dst)])
}

// WriteAt copies src into the slice starting at off.
func (s Slice[T]) WriteAt(src []T, off int) {
	copy(s[off:off+len(src)], src)
}
