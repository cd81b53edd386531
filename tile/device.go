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

import "runtime"

// DefaultScratchBytes is the per-lane scratch budget used when none is
// configured. It matches a typical on-chip unified buffer.
const DefaultScratchBytes = 192 * 1024

// Device describes the resources a launch can use.
type Device struct {
	Lanes        int // parallel lanes available
	ScratchBytes int // scratch memory per lane
	BlockBytes   int // transfer granularity
}

// DefaultDevice returns the resources of the running machine: one lane per
// usable CPU, DefaultScratchBytes of scratch and the detected block size.
// TILE_LANES and TILE_SCRATCH_BYTES override the first two.
func DefaultDevice() Device {
	d := Device{
		Lanes:        runtime.GOMAXPROCS(0),
		ScratchBytes: DefaultScratchBytes,
		BlockBytes:   BlockBytes(),
	}
	if n, ok := envInt("TILE_LANES"); ok && n > 0 {
		d.Lanes = n
	}
	if n, ok := envInt("TILE_SCRATCH_BYTES"); ok && n > 0 {
		d.ScratchBytes = n
	}
	return d
}

// BudgetElements converts a scratch byte budget into elements, where one
// element costs bytesPerElement bytes of scratch across all buffers that
// hold it. reservedBytes are held back for operator temporaries.
func BudgetElements(scratchBytes, bytesPerElement, reservedBytes int) int {
	if bytesPerElement <= 0 {
		return 0
	}
	usable := scratchBytes - reservedBytes
	if usable <= 0 {
		return 0
	}
	return usable / bytesPerElement
}

// AlignElementsFor returns the alignment block in elements that keeps every
// buffer of the given element widths a multiple of blockBytes. The narrowest
// element decides.
func AlignElementsFor(blockBytes int, elemBytes ...int) int {
	narrowest := 0
	for _, b := range elemBytes {
		if b > 0 && (narrowest == 0 || b < narrowest) {
			narrowest = b
		}
	}
	if narrowest == 0 || blockBytes <= narrowest {
		return 1
	}
	return blockBytes / narrowest
}
