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

// Transform computes one chunk. in and out both have c.ScratchLen()
// elements: c.Rows rows of c.Stride elements of which the first c.Cols are
// data and the rest hold the kernel's pad value. A transform must only write
// out and must not retain either slice.
type Transform[In, Out tile.Element] func(c tile.ChunkDescriptor, in []In, out []Out)

// Kernel is a numeric transform together with its scratch requirements.
// The zero value is not usable; build kernels with NewKernel or
// NewInPlaceKernel.
type Kernel[In, Out tile.Element] struct {
	name          string
	transform     Transform[In, Out]
	inPlace       bool
	alloc         func(n int) ([]In, []Out)
	pad           In
	reservedBytes int
	divisor       int
}

// NewKernel returns a kernel that reads an input half and writes a separate
// output half. Store of one chunk then overlaps Compute of the next.
func NewKernel[In, Out tile.Element](name string, fn Transform[In, Out]) Kernel[In, Out] {
	return Kernel[In, Out]{
		name:      name,
		transform: fn,
		alloc: func(n int) ([]In, []Out) {
			return make([]In, n), make([]Out, n)
		},
		divisor: tile.DoubleBuffer,
	}
}

// NewInPlaceKernel returns a kernel that transforms each half in place,
// halving the scratch footprint.
func NewInPlaceKernel[T tile.Element](name string, fn func(c tile.ChunkDescriptor, buf []T)) Kernel[T, T] {
	return Kernel[T, T]{
		name: name,
		transform: func(c tile.ChunkDescriptor, in, _ []T) {
			fn(c, in)
		},
		inPlace: true,
		alloc: func(n int) ([]T, []T) {
			buf := make([]T, n)
			return buf, buf
		},
		divisor: tile.DoubleBuffer,
	}
}

// Name returns the kernel name used in logs and traces.
func (k Kernel[In, Out]) Name() string {
	return k.name
}

// InPlace reports whether the kernel shares input and output halves.
func (k Kernel[In, Out]) InPlace() bool {
	return k.inPlace
}

// WithPadValue returns a copy of k that fills scratch padding with v
// instead of zero, for example -Inf ahead of a max reduction.
func (k Kernel[In, Out]) WithPadValue(v In) Kernel[In, Out] {
	k.pad = v
	return k
}

// WithReservedBytes returns a copy of k that keeps n bytes of scratch
// per lane out of the chunk budget for its own temporaries.
func (k Kernel[In, Out]) WithReservedBytes(n int) Kernel[In, Out] {
	k.reservedBytes = n
	return k
}

// WithScratchDivisor returns a copy of k that splits its chunk budget into
// n parts instead of two. Values below two are raised to two, since both
// buffer halves must fit.
func (k Kernel[In, Out]) WithScratchDivisor(n int) Kernel[In, Out] {
	k.divisor = max(n, tile.DoubleBuffer)
	return k
}

// bytesPerElement returns the scratch bytes one element occupies in one
// buffer half: the input slot plus, out of place, the output slot.
func (k Kernel[In, Out]) bytesPerElement() int {
	if k.inPlace {
		return tile.SizeOf[In]()
	}
	return tile.SizeOf[In]() + tile.SizeOf[Out]()
}
