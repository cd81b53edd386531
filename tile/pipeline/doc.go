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

// Package pipeline runs a tile.Schedule on parallel lanes. Each lane moves
// its chunks through Load, Compute and Store with double-buffered scratch:
// while Compute works on one buffer half, the transfer engines fill or drain
// the other.
//
// Stages hand buffer halves to each other with Tokens. A half is only
// touched by the stage holding it, so the result never depends on timing.
//
// Usage:
//
//	l := pipeline.NewLauncher()
//	defer l.Close()
//
//	relu := pipeline.NewInPlaceKernel("relu", func(c tile.ChunkDescriptor, buf []float32) {
//	    for i, v := range buf {
//	        buf[i] = max(v, 0)
//	    }
//	})
//	if err := pipeline.Run(l, relu, input, output); err != nil {
//	    return err // rejected before any lane started
//	}
package pipeline
