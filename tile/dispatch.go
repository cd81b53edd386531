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

import (
	"os"
	"strconv"
)

// MinBlockBytes is the smallest transfer granularity the planner assumes.
// Memory movement between device memory and scratch happens in whole blocks
// of at least this many bytes.
const MinBlockBytes = 32

// currentWidth is the vector register width in bytes for this runtime.
// Set by init() in dispatch_*.go files.
var currentWidth int

// currentName is the human-readable name of the detected vector unit.
// Set by init() in dispatch_*.go files.
var currentName string

// CurrentWidth returns the vector register width in bytes.
// For example: 16 for SSE2/NEON, 32 for AVX2, 64 for AVX-512.
func CurrentWidth() int {
	return currentWidth
}

// CurrentName returns a human-readable name for the detected vector unit.
// For example: "avx2", "neon", "scalar".
func CurrentName() string {
	return currentName
}

// BlockBytes returns the transfer granularity in bytes: the detected vector
// width, but never less than MinBlockBytes. TILE_BLOCK_BYTES overrides it
// when set to a positive power of two.
func BlockBytes() int {
	if v, ok := envInt("TILE_BLOCK_BYTES"); ok && v > 0 && v&(v-1) == 0 {
		return v
	}
	return max(currentWidth, MinBlockBytes)
}

// NoSimdEnv checks if the TILE_NO_SIMD environment variable is set.
// When set, detection is skipped and the scalar width is used.
// This is useful for testing and debugging.
func NoSimdEnv() bool {
	val := os.Getenv("TILE_NO_SIMD")
	if val == "" {
		return false
	}
	// Any non-empty value is considered true, but also parse as bool
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

func setScalarMode() {
	currentWidth = 16 // Use 16-byte vectors even in scalar mode for consistency
	currentName = "scalar"
}

// envInt reads a decimal integer from the environment.
func envInt(name string) (int, bool) {
	val := os.Getenv(name)
	if val == "" {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}
